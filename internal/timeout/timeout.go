// Package timeout acota el tiempo de cualquier operacion asincrona.
//
// La cancelacion es de mejor esfuerzo: al vencer el plazo se cancela el
// contexto derivado, pero una operacion que lo ignore sigue ejecutandose en
// segundo plano y su resultado se descarta.
package timeout

import (
	"context"
	"time"

	"multiauth/internal/domain"
)

type outcome[T any] struct {
	val T
	err error
}

// Run ejecuta op y la compite contra un temporizador de timeoutMs milisegundos.
func Run[T any](ctx context.Context, timeoutMs int64, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if timeoutMs <= 0 {
		return zero, domain.Invalid("timeout must be positive")
	}
	if op == nil {
		return zero, domain.Invalid("operation is required")
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffer de 1: la goroutine siempre puede terminar aunque nadie lea.
	done := make(chan outcome[T], 1)
	go func() {
		val, err := op(opCtx)
		done <- outcome[T]{val: val, err: err}
	}()

	timer := time.NewTimer(Duration(timeoutMs))
	defer timer.Stop()

	select {
	case res := <-done:
		return res.val, res.err
	case <-timer.C:
		return zero, domain.ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Duration convierte milisegundos al tipo time.Duration.
func Duration(timeoutMs int64) time.Duration {
	return time.Duration(timeoutMs) * time.Millisecond
}
