package challenge

import (
	"context"

	"multiauth/internal/handshake"
)

// BrokerPresenter publica los desafios en un broker para que HTTP o la CLI los resuelvan por id.
type BrokerPresenter struct {
	broker *handshake.Broker[string]
}

func NewBrokerPresenter(launch handshake.LaunchFunc) *BrokerPresenter {
	return &BrokerPresenter{broker: handshake.NewBroker[string](launch)}
}

func (p *BrokerPresenter) Present(_ context.Context, id, pageURL string) (*handshake.Pending[string], error) {
	return p.broker.Open(id, pageURL)
}

// Report entrega la URI de callback del desafio id.
func (p *BrokerPresenter) Report(id, callbackURI string) error {
	return p.broker.Resolve(id, callbackURI)
}

func (p *BrokerPresenter) Cancel(id string) error {
	return p.broker.Cancel(id)
}

// PageURL devuelve la pagina del desafio abierto para id.
func (p *BrokerPresenter) PageURL(id string) (string, bool) {
	pending, ok := p.broker.Get(id)
	if !ok {
		return "", false
	}
	return pending.URL, true
}

// Done se cierra cuando el desafio id se resuelve, se cancela o vence.
func (p *BrokerPresenter) Done(id string) (<-chan struct{}, bool) {
	pending, ok := p.broker.Get(id)
	if !ok {
		return nil, false
	}
	return pending.Done(), true
}
