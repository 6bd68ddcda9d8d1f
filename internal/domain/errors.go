package domain

import (
	"errors"
	"fmt"
)

// Errores de entrada y configuracion: se devuelven antes de cualquier llamada de red.
var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Errores de estado y de colaboradores externos.
var (
	ErrHandleNotFound      = errors.New("login not found in directory")
	ErrProvider            = errors.New("identity provider error")
	ErrTimeout             = errors.New("operation timed out")
	ErrPlatformUnsupported = errors.New("not supported on this platform")
	ErrNoActiveSession     = errors.New("no active session")
	ErrChallengeFailed     = errors.New("human verification failed")
)

// ProviderError conserva el mensaje crudo del backend para diagnostico.
type ProviderError struct {
	Op      string
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s failed: status=%d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// Invalid envuelve ErrValidation con un detalle legible.
func Invalid(detail string) error {
	return fmt.Errorf("%w: %s", ErrValidation, detail)
}

// Misconfigured envuelve ErrConfiguration con el parametro faltante.
func Misconfigured(detail string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, detail)
}
