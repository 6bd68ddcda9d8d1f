// Package handshake modela interacciones externas en dos fases: quien inicia
// obtiene un Pending y espera; un colaborador externo lo resuelve o lo cancela.
package handshake

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrCancelled = errors.New("handshake cancelled")
	ErrUnknown   = errors.New("handshake not found")
	ErrDuplicate = errors.New("handshake already pending")
)

// Pending es un valor futuro que se resuelve una unica vez.
type Pending[T any] struct {
	ID  string
	URL string

	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func NewPending[T any](id, url string) *Pending[T] {
	return &Pending[T]{ID: id, URL: url, done: make(chan struct{})}
}

// Resolve entrega v; devuelve false si ya estaba resuelto.
func (p *Pending[T]) Resolve(v T) bool {
	resolved := false
	p.once.Do(func() {
		p.val = v
		resolved = true
		close(p.done)
	})
	return resolved
}

// Reject termina la espera con err.
func (p *Pending[T]) Reject(err error) bool {
	if err == nil {
		err = ErrCancelled
	}
	rejected := false
	p.once.Do(func() {
		p.err = err
		rejected = true
		close(p.done)
	})
	return rejected
}

// Cancel equivale a cerrar la interaccion sin reportar nada.
func (p *Pending[T]) Cancel() bool {
	return p.Reject(ErrCancelled)
}

// Done se cierra cuando el valor esta disponible.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait bloquea hasta la resolucion o hasta que ctx termine.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// LaunchFunc notifica a la interfaz que hay una interaccion pendiente.
type LaunchFunc func(id, url string)

// Broker indexa los Pending abiertos para que otra capa (HTTP, CLI) los resuelva por id.
type Broker[T any] struct {
	mu      sync.Mutex
	pending map[string]*Pending[T]
	launch  LaunchFunc
}

func NewBroker[T any](launch LaunchFunc) *Broker[T] {
	return &Broker[T]{pending: make(map[string]*Pending[T]), launch: launch}
}

// Open registra un Pending nuevo. Solo puede haber uno por id.
func (b *Broker[T]) Open(id, url string) (*Pending[T], error) {
	b.mu.Lock()
	if existing, ok := b.pending[id]; ok {
		select {
		case <-existing.done:
		default:
			b.mu.Unlock()
			return nil, ErrDuplicate
		}
	}
	p := NewPending[T](id, url)
	b.pending[id] = p
	b.mu.Unlock()

	go func() {
		<-p.done
		b.remove(id, p)
	}()
	if b.launch != nil {
		b.launch(id, url)
	}
	return p, nil
}

// Get devuelve el Pending abierto para id.
func (b *Broker[T]) Get(id string) (*Pending[T], bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[id]
	return p, ok
}

// Resolve resuelve el Pending de id con v.
func (b *Broker[T]) Resolve(id string, v T) error {
	p, ok := b.Get(id)
	if !ok || !p.Resolve(v) {
		return ErrUnknown
	}
	return nil
}

// Cancel cancela el Pending de id.
func (b *Broker[T]) Cancel(id string) error {
	p, ok := b.Get(id)
	if !ok || !p.Cancel() {
		return ErrUnknown
	}
	return nil
}

// Len devuelve cuantas interacciones siguen abiertas.
func (b *Broker[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Broker[T]) remove(id string, p *Pending[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[id] == p {
		delete(b.pending, id)
	}
}
