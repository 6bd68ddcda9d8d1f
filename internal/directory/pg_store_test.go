package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type mockRow struct {
	email string
	err   error
}

func (r mockRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.email
	return nil
}

type mockQuerier struct {
	lastSQL  string
	lastArgs []any
	row      mockRow
	execErr  error
}

func (m *mockQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.lastSQL = sql
	m.lastArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), m.execErr
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.lastSQL = sql
	m.lastArgs = args
	return m.row
}

func TestPgStore_GetFound(t *testing.T) {
	db := &mockQuerier{row: mockRow{email: "bob@x.com"}}
	store := &PgStore{db: db}

	email, ok, err := store.Get(context.Background(), "bob")
	if err != nil || !ok || email != "bob@x.com" {
		t.Fatalf("expected bob@x.com, got %q %v %v", email, ok, err)
	}
	if len(db.lastArgs) != 1 || db.lastArgs[0] != "bob" {
		t.Fatalf("unexpected args: %+v", db.lastArgs)
	}
}

func TestPgStore_GetNoRows(t *testing.T) {
	store := &PgStore{db: &mockQuerier{row: mockRow{err: pgx.ErrNoRows}}}
	_, ok, err := store.Get(context.Background(), "ghost")
	if err != nil || ok {
		t.Fatalf("expected missing without error, got %v %v", ok, err)
	}
}

func TestPgStore_GetError(t *testing.T) {
	store := &PgStore{db: &mockQuerier{row: mockRow{err: errors.New("conn reset")}}}
	if _, _, err := store.Get(context.Background(), "bob"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPgStore_PutAndDelete(t *testing.T) {
	db := &mockQuerier{}
	store := &PgStore{db: db}

	if err := store.Put(context.Background(), "bob", "bob@x.com"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if len(db.lastArgs) != 2 || db.lastArgs[0] != "bob" || db.lastArgs[1] != "bob@x.com" {
		t.Fatalf("unexpected put args: %+v", db.lastArgs)
	}
	if err := store.Delete(context.Background(), "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	db.execErr = errors.New("exec failed")
	if err := store.Put(context.Background(), "bob", "bob@x.com"); err == nil {
		t.Fatalf("expected put error")
	}
}
