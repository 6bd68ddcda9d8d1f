// Package challenge coordina la verificacion humana (reCAPTCHA) previa al envio de SMS.
package challenge

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"multiauth/internal/domain"
	"multiauth/internal/handshake"
	"multiauth/internal/timeout"
)

const DefaultTimeoutMs int64 = 120000

type State int

const (
	Idle State = iota
	Presenting
	Verified
	Rejected
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Presenting:
		return "presenting"
	case Verified:
		return "verified"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome es el estado final de un desafio. Token solo se completa en Verified.
type Outcome struct {
	State State
	Token string
}

// OK es true solo para un desafio verificado; Rejected y Cancelled se tratan igual.
func (o Outcome) OK() bool {
	return o.State == Verified && o.Token != ""
}

// Presenter muestra la pagina del desafio y devuelve la URI de callback pendiente.
type Presenter interface {
	Present(ctx context.Context, id, pageURL string) (*handshake.Pending[string], error)
}

// TokenVerifier valida el token del desafio contra el endpoint del proveedor.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, timeoutMs int64) (bool, error)
}

type GateConfig struct {
	AuthDomain     string
	CallbackScheme string
	TimeoutMs      int64
}

type Gate struct {
	logger    *zap.Logger
	presenter Presenter
	verifier  TokenVerifier
	scheme    string
	pageURL   string
	timeoutMs int64
}

func NewGate(logger *zap.Logger, presenter Presenter, verifier TokenVerifier, cfg GateConfig) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = DefaultTimeoutMs
	}
	return &Gate{
		logger:    logger,
		presenter: presenter,
		verifier:  verifier,
		scheme:    cfg.CallbackScheme,
		pageURL:   PageURL(cfg.AuthDomain),
		timeoutMs: cfg.TimeoutMs,
	}
}

// PageURL es la pagina alojada en el dominio de auth que renderiza el widget.
func PageURL(authDomain string) string {
	return "https://" + strings.TrimRight(authDomain, "/") + "/recaptcha.html"
}

// Obtain presenta un desafio identificado por id y espera su resolucion.
// timeoutMs acota la verificacion del token; la espera del usuario usa el plazo del gate.
func (g *Gate) Obtain(ctx context.Context, id string, timeoutMs int64) (Outcome, error) {
	if g.presenter == nil || g.verifier == nil {
		return Outcome{State: Idle}, domain.Misconfigured("challenge presenter and verifier are required")
	}

	pending, err := g.presenter.Present(ctx, id, g.pageURL)
	if err != nil {
		return Outcome{State: Idle}, fmt.Errorf("present challenge: %w", err)
	}
	g.logger.Debug("challenge presenting", zap.String("id", id))

	uri, err := timeout.Run(ctx, g.timeoutMs, func(ctx context.Context) (string, error) {
		return pending.Wait(ctx)
	})
	if err != nil {
		pending.Cancel()
		if errors.Is(err, handshake.ErrCancelled) {
			g.logger.Info("challenge cancelled", zap.String("id", id))
			return Outcome{State: Cancelled}, nil
		}
		return Outcome{State: Cancelled}, fmt.Errorf("await challenge: %w", err)
	}

	token := ParseCallback(g.scheme, uri)
	if token == "" {
		g.logger.Info("challenge reported no token", zap.String("id", id))
		return Outcome{State: Rejected}, nil
	}

	ok, err := g.verifier.Verify(ctx, token, timeoutMs)
	if err != nil {
		return Outcome{State: Rejected}, fmt.Errorf("verify challenge: %w", err)
	}
	if !ok {
		g.logger.Info("challenge token rejected", zap.String("id", id))
		return Outcome{State: Rejected}, nil
	}
	return Outcome{State: Verified, Token: token}, nil
}

// ParseCallback extrae el token de <scheme>://token?token=<t> o de la forma corta <scheme>://token?<t>.
// Devuelve "" si la URI no sigue la convencion.
func ParseCallback(scheme, uri string) string {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return ""
	}
	if want := strings.TrimSuffix(scheme, "://"); want != "" && !strings.EqualFold(u.Scheme, want) {
		return ""
	}
	if u.Host != "token" {
		return ""
	}
	if t := u.Query().Get("token"); t != "" {
		return t
	}
	if u.RawQuery == "" || strings.Contains(u.RawQuery, "=") {
		return ""
	}
	t, err := url.QueryUnescape(u.RawQuery)
	if err != nil {
		return ""
	}
	return t
}
