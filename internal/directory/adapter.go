package directory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"multiauth/internal/domain"
	"multiauth/internal/validate"
)

// Adapter resuelve handles a emails y mantiene los mapeos de registro.
type Adapter struct {
	logger *zap.Logger
	store  Store
}

func NewAdapter(logger *zap.Logger, store Store) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Adapter{logger: logger, store: store}
}

// ResolveEmail devuelve handle sin tocar el almacen cuando ya es un email valido.
func (a *Adapter) ResolveEmail(ctx context.Context, handle string) (string, error) {
	if validate.Email(handle) {
		return handle, nil
	}
	login := NormalizeLogin(handle)
	if login == "" {
		return "", domain.Invalid("login or email is required")
	}
	email, ok, err := a.store.Get(ctx, login)
	if err != nil {
		return "", fmt.Errorf("directory lookup: %w", err)
	}
	if !ok || email == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrHandleNotFound, login)
	}
	return email, nil
}

// Exists indica si login tiene un email asociado.
func (a *Adapter) Exists(ctx context.Context, login string) (bool, error) {
	login = NormalizeLogin(login)
	if login == "" {
		return false, nil
	}
	_, ok, err := a.store.Get(ctx, login)
	if err != nil {
		return false, fmt.Errorf("directory lookup: %w", err)
	}
	return ok, nil
}

// EnsureRegistered guarda login -> email solo si login no existe todavia.
func (a *Adapter) EnsureRegistered(ctx context.Context, login, email string) error {
	login = NormalizeLogin(login)
	email = strings.TrimSpace(email)
	if login == "" || email == "" {
		return domain.Invalid("login and email cannot be empty")
	}
	exists, err := a.Exists(ctx, login)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := a.store.Put(ctx, login, email); err != nil {
		return fmt.Errorf("directory store: %w", err)
	}
	a.logger.Debug("directory entry created", zap.String("login", login))
	return nil
}

// Forget elimina el mapeo; no falla si no existia.
func (a *Adapter) Forget(ctx context.Context, login string) error {
	login = NormalizeLogin(login)
	if login == "" {
		return nil
	}
	if err := a.store.Delete(ctx, login); err != nil {
		return fmt.Errorf("directory delete: %w", err)
	}
	return nil
}
