// Package identity habla con el backend de identidad (Identity Toolkit y Secure Token) por HTTPS.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"multiauth/internal/domain"
)

const (
	DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL    = "https://securetoken.googleapis.com/v1"
)

// Client implementa las llamadas REST del backend de identidad.
type Client struct {
	apiKey      string
	identityURL string
	tokenURL    string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient construye un cliente; las URLs vacias usan los endpoints publicos.
func NewClient(logger *zap.Logger, apiKey, identityURL, tokenURL string, httpClient *http.Client) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if identityURL == "" {
		identityURL = DefaultIdentityURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:      apiKey,
		identityURL: strings.TrimRight(identityURL, "/"),
		tokenURL:    strings.TrimRight(tokenURL, "/"),
		client:      httpClient,
		logger:      logger,
	}
}

// Credential es la respuesta de los endpoints de login y alta.
type Credential struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`
}

// Account es el perfil devuelto por accounts:lookup.
type Account struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	PhoneNumber   string `json:"phoneNumber"`
	EmailVerified bool   `json:"emailVerified"`
}

// PhoneSignIn es la respuesta de accounts:signInWithPhoneNumber.
type PhoneSignIn struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
	PhoneNumber  string `json:"phoneNumber"`
	IsNewUser    bool   `json:"isNewUser"`
}

// TokenGrant es la respuesta del endpoint de tokens.
type TokenGrant struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Credential, error) {
	req := struct {
		Email             string `json:"email"`
		Password          string `json:"password"`
		ReturnSecureToken bool   `json:"returnSecureToken"`
	}{email, password, true}
	var out Credential
	err := c.postJSON(ctx, "signInWithPassword", c.identityURL+"/accounts:signInWithPassword", req, &out)
	return out, err
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (Credential, error) {
	req := struct {
		Email             string `json:"email"`
		Password          string `json:"password"`
		DisplayName       string `json:"displayName,omitempty"`
		ReturnSecureToken bool   `json:"returnSecureToken"`
	}{email, password, displayName, true}
	var out Credential
	err := c.postJSON(ctx, "signUp", c.identityURL+"/accounts:signUp", req, &out)
	return out, err
}

// SendPasswordReset pide al backend el envio del correo de restablecimiento.
func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	req := struct {
		RequestType string `json:"requestType"`
		Email       string `json:"email"`
	}{"PASSWORD_RESET", email}
	return c.postJSON(ctx, "sendOobCode", c.identityURL+"/accounts:sendOobCode", req, nil)
}

// SignInWithIdp canjea un token del proveedor OAuth (postBody) por credenciales del backend.
func (c *Client) SignInWithIdp(ctx context.Context, postBody, requestURI string) (Credential, error) {
	req := struct {
		PostBody            string `json:"postBody"`
		RequestURI          string `json:"requestUri"`
		ReturnSecureToken   bool   `json:"returnSecureToken"`
		ReturnIdpCredential bool   `json:"returnIdpCredential"`
	}{postBody, requestURI, true, true}
	var out Credential
	err := c.postJSON(ctx, "signInWithIdp", c.identityURL+"/accounts:signInWithIdp", req, &out)
	return out, err
}

// SendVerificationCode despacha el SMS y devuelve el sessionInfo opaco.
func (c *Client) SendVerificationCode(ctx context.Context, phoneNumber, recaptchaToken string) (string, error) {
	req := struct {
		PhoneNumber    string `json:"phoneNumber"`
		RecaptchaToken string `json:"recaptchaToken"`
	}{phoneNumber, recaptchaToken}
	var out struct {
		SessionInfo string `json:"sessionInfo"`
	}
	if err := c.postJSON(ctx, "sendVerificationCode", c.identityURL+"/accounts:sendVerificationCode", req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SessionInfo) == "" {
		return "", &domain.ProviderError{Op: "sendVerificationCode", Message: "missing sessionInfo"}
	}
	return out.SessionInfo, nil
}

func (c *Client) SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (PhoneSignIn, error) {
	req := struct {
		SessionInfo string `json:"sessionInfo"`
		Code        string `json:"code"`
	}{sessionInfo, code}
	var out PhoneSignIn
	err := c.postJSON(ctx, "signInWithPhoneNumber", c.identityURL+"/accounts:signInWithPhoneNumber", req, &out)
	return out, err
}

// Lookup obtiene el perfil del usuario dueño de idToken. ok es false si no hay usuarios.
func (c *Client) Lookup(ctx context.Context, idToken string) (Account, bool, error) {
	req := struct {
		IDToken string `json:"idToken"`
	}{idToken}
	var out struct {
		Users []Account `json:"users"`
	}
	if err := c.postJSON(ctx, "lookup", c.identityURL+"/accounts:lookup", req, &out); err != nil {
		return Account{}, false, err
	}
	if len(out.Users) == 0 {
		return Account{}, false, nil
	}
	return out.Users[0], true, nil
}

// ExchangeIDToken obtiene un refresh token a partir de un id token recien emitido.
func (c *Client) ExchangeIDToken(ctx context.Context, idToken string) (string, error) {
	req := struct {
		GrantType string `json:"grant_type"`
		Code      string `json:"code"`
	}{"authorization_code", idToken}
	var out TokenGrant
	if err := c.postJSON(ctx, "token", c.tokenURL+"/token", req, &out); err != nil {
		return "", err
	}
	return out.RefreshToken, nil
}

// RefreshIDToken renueva el id token usando el refresh token.
func (c *Client) RefreshIDToken(ctx context.Context, refreshToken string) (TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	var out TokenGrant
	err := c.post(ctx, "refreshToken", c.tokenURL+"/token", "application/x-www-form-urlencoded", []byte(form.Encode()), &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, op, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}
	return c.post(ctx, op, endpoint, "application/json", payload, out)
}

func (c *Client) post(ctx context.Context, op, endpoint, contentType string, payload []byte, out any) error {
	if strings.TrimSpace(c.apiKey) == "" {
		return domain.Misconfigured("backend api key is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode >= 400 {
		msg := backendMessage(respBody)
		c.logger.Warn("identity backend error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return &domain.ProviderError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: unmarshal response: %w", op, err)
	}
	return nil
}

// backendMessage extrae error.message del cuerpo; si no es JSON conocido devuelve el cuerpo crudo.
func backendMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.ErrorDescription != "" {
			return payload.ErrorDescription
		}
	}
	return strings.TrimSpace(string(body))
}
