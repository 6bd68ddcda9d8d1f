package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore implementa Store sobre la tabla user_directory usando pgxpool.
type PgStore struct {
	db pgQuerier
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{db: pool}
}

// EnsureSchema crea la tabla si no existe.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS user_directory (
			login      TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	_, err := s.db.Exec(ctx, query)
	return err
}

func (s *PgStore) Get(ctx context.Context, login string) (string, bool, error) {
	const query = `
		SELECT email
		FROM user_directory
		WHERE login = $1
	`
	var email string
	err := s.db.QueryRow(ctx, query, login).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

func (s *PgStore) Put(ctx context.Context, login, email string) error {
	const query = `
		INSERT INTO user_directory (login, email)
		VALUES ($1, $2)
		ON CONFLICT (login) DO NOTHING
	`
	_, err := s.db.Exec(ctx, query, login, email)
	return err
}

func (s *PgStore) Delete(ctx context.Context, login string) error {
	const query = `DELETE FROM user_directory WHERE login = $1`
	_, err := s.db.Exec(ctx, query, login)
	return err
}
