// Package oauth define los proveedores OAuth soportados y el colaborador de
// redireccion del navegador.
package oauth

import (
	"net/url"
	"strings"

	"multiauth/internal/domain"
)

// Provider arma la URL de autorizacion y traduce la redireccion a un postBody del backend.
type Provider interface {
	Name() domain.Provider
	// Enabled es false para el stub explicito de despliegues minimos.
	Enabled() bool
	Validate() error
	AuthURL(state, nonce string) string
	RedirectURI() string
	// Token extrae el token del proveedor de los parametros de la redireccion.
	Token(params url.Values) (string, bool)
	PostBody(token string) string
}

type Google struct {
	ClientID string
	Redirect string
}

func (g Google) Name() domain.Provider { return domain.ProviderGoogle }
func (g Google) Enabled() bool         { return true }
func (g Google) RedirectURI() string   { return g.Redirect }

func (g Google) Validate() error {
	if strings.TrimSpace(g.ClientID) == "" {
		return domain.Misconfigured("google client id is required")
	}
	if strings.TrimSpace(g.Redirect) == "" {
		return domain.Misconfigured("google redirect uri is required")
	}
	return nil
}

func (g Google) AuthURL(state, nonce string) string {
	q := url.Values{}
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.Redirect)
	q.Set("response_type", "id_token")
	q.Set("scope", "openid email profile")
	q.Set("nonce", nonce)
	q.Set("state", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?" + q.Encode()
}

func (g Google) Token(params url.Values) (string, bool) {
	t := params.Get("id_token")
	return t, t != ""
}

func (g Google) PostBody(token string) string {
	q := url.Values{}
	q.Set("id_token", token)
	q.Set("providerId", "google.com")
	return q.Encode()
}

type Facebook struct {
	AppID    string
	Redirect string
}

func (f Facebook) Name() domain.Provider { return domain.ProviderFacebook }
func (f Facebook) Enabled() bool         { return true }
func (f Facebook) RedirectURI() string   { return f.Redirect }

func (f Facebook) Validate() error {
	if strings.TrimSpace(f.AppID) == "" {
		return domain.Misconfigured("facebook app id is required")
	}
	if strings.TrimSpace(f.Redirect) == "" {
		return domain.Misconfigured("facebook redirect uri is required")
	}
	return nil
}

func (f Facebook) AuthURL(state, nonce string) string {
	q := url.Values{}
	q.Set("client_id", f.AppID)
	q.Set("redirect_uri", f.Redirect)
	q.Set("scope", "public_profile")
	q.Set("response_type", "token")
	q.Set("state", state)
	q.Set("nonce", nonce)
	return "https://www.facebook.com/v17.0/dialog/oauth?" + q.Encode()
}

func (f Facebook) Token(params url.Values) (string, bool) {
	t := params.Get("access_token")
	return t, t != ""
}

func (f Facebook) PostBody(token string) string {
	q := url.Values{}
	q.Set("access_token", token)
	q.Set("providerId", "facebook.com")
	return q.Encode()
}

// Disabled ocupa el lugar de un proveedor apagado por configuracion.
type Disabled struct {
	Provider domain.Provider
}

func (d Disabled) Name() domain.Provider           { return d.Provider }
func (d Disabled) Enabled() bool                   { return false }
func (d Disabled) Validate() error                 { return nil }
func (d Disabled) AuthURL(string, string) string   { return "" }
func (d Disabled) RedirectURI() string             { return "" }
func (d Disabled) Token(url.Values) (string, bool) { return "", false }
func (d Disabled) PostBody(string) string          { return "" }

type Config struct {
	GoogleClientID      string
	GoogleRedirectURI   string
	FacebookEnabled     bool
	FacebookAppID       string
	FacebookRedirectURI string
}

// Registry resuelve proveedores por nombre.
type Registry struct {
	providers map[domain.Provider]Provider
}

func NewRegistry(cfg Config) *Registry {
	r := &Registry{providers: make(map[domain.Provider]Provider)}
	r.Register(Google{ClientID: cfg.GoogleClientID, Redirect: cfg.GoogleRedirectURI})
	if cfg.FacebookEnabled {
		r.Register(Facebook{AppID: cfg.FacebookAppID, Redirect: cfg.FacebookRedirectURI})
	} else {
		r.Register(Disabled{Provider: domain.ProviderFacebook})
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name domain.Provider) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}
