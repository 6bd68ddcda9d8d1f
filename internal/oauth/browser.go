package oauth

import (
	"context"
	"net/url"

	"multiauth/internal/handshake"
)

// Browser lleva al usuario a startURL y devuelve los parametros de la redireccion a callbackURL.
type Browser interface {
	Authenticate(ctx context.Context, id, startURL, callbackURL string) (url.Values, error)
}

// BrokerBrowser deja la redireccion pendiente hasta que el callback HTTP o la CLI la completan.
type BrokerBrowser struct {
	broker *handshake.Broker[url.Values]
}

func NewBrokerBrowser(launch handshake.LaunchFunc) *BrokerBrowser {
	return &BrokerBrowser{broker: handshake.NewBroker[url.Values](launch)}
}

func (b *BrokerBrowser) Authenticate(ctx context.Context, id, startURL, _ string) (url.Values, error) {
	pending, err := b.broker.Open(id, startURL)
	if err != nil {
		return nil, err
	}
	params, err := pending.Wait(ctx)
	if err != nil {
		pending.Cancel()
		return nil, err
	}
	return params, nil
}

// Complete entrega los parametros de la redireccion; state identifica el intento.
func (b *BrokerBrowser) Complete(state string, params url.Values) error {
	return b.broker.Resolve(state, params)
}

func (b *BrokerBrowser) Cancel(id string) error {
	return b.broker.Cancel(id)
}

// StartURL devuelve la URL de autorizacion del intento abierto para id.
func (b *BrokerBrowser) StartURL(id string) (string, bool) {
	p, ok := b.broker.Get(id)
	if !ok {
		return "", false
	}
	return p.URL, true
}

// Done se cierra cuando el intento id termina por cualquier motivo.
func (b *BrokerBrowser) Done(id string) (<-chan struct{}, bool) {
	p, ok := b.broker.Get(id)
	if !ok {
		return nil, false
	}
	return p.Done(), true
}
