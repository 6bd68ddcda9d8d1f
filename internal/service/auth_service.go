package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"multiauth/internal/directory"
	"multiauth/internal/domain"
	"multiauth/internal/identity"
	"multiauth/internal/oauth"
	"multiauth/internal/obs"
	"multiauth/internal/timeout"
	"multiauth/internal/validate"
)

// UnsupportedOAuthPlatform es el runtime donde no hay redireccion de navegador disponible.
const UnsupportedOAuthPlatform = "windows"

// IdentityBackend son las llamadas al backend que usa el dispatcher.
type IdentityBackend interface {
	SignInWithPassword(ctx context.Context, email, password string) (identity.Credential, error)
	SignUp(ctx context.Context, email, password, displayName string) (identity.Credential, error)
	SendPasswordReset(ctx context.Context, email string) error
	SignInWithIdp(ctx context.Context, postBody, requestURI string) (identity.Credential, error)
	Lookup(ctx context.Context, idToken string) (identity.Account, bool, error)
	ExchangeIDToken(ctx context.Context, idToken string) (string, error)
	RefreshIDToken(ctx context.Context, refreshToken string) (identity.TokenGrant, error)
}

type Directory interface {
	ResolveEmail(ctx context.Context, handle string) (string, error)
	EnsureRegistered(ctx context.Context, login, email string) error
	Forget(ctx context.Context, login string) error
}

type PhoneVerifier interface {
	RequestCode(ctx context.Context, id, phoneNumber string, timeoutMs int64, testMode bool) (bool, error)
	SubmitCode(ctx context.Context, id, code string, timeoutMs int64) (domain.AuthResult, error)
}

type RecaptchaVerifier interface {
	Verify(ctx context.Context, token string, timeoutMs int64) (bool, error)
}

type AuthConfig struct {
	Platform       string
	CallbackScheme string
}

type AuthDeps struct {
	Backend   IdentityBackend
	Directory Directory
	Phone     PhoneVerifier
	Recaptcha RecaptchaVerifier
	Providers *oauth.Registry
	Browser   oauth.Browser
	Metrics   *obs.Metrics
}

// AuthService es el punto de entrada unico de todos los flujos de autenticacion.
type AuthService struct {
	logger    *zap.Logger
	backend   IdentityBackend
	directory Directory
	phone     PhoneVerifier
	recaptcha RecaptchaVerifier
	providers *oauth.Registry
	browser   oauth.Browser
	metrics   *obs.Metrics
	cfg       AuthConfig
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	current *domain.UserAuthData
}

func NewAuthService(logger *zap.Logger, deps AuthDeps, cfg AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Providers == nil {
		deps.Providers = oauth.NewRegistry(oauth.Config{})
	}
	if deps.Directory == nil {
		deps.Directory = directory.NewAdapter(logger, nil)
	}
	return &AuthService{
		logger:    logger,
		backend:   deps.Backend,
		directory: deps.Directory,
		phone:     deps.Phone,
		recaptcha: deps.Recaptcha,
		providers: deps.Providers,
		browser:   deps.Browser,
		metrics:   deps.Metrics,
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// LoginWithPassword acepta un login registrado o un email.
func (s *AuthService) LoginWithPassword(ctx context.Context, handleOrEmail, password string, timeoutMs int64) (res domain.AuthResult, err error) {
	start := s.now()
	defer func() { s.observe("login", domain.ProviderEmail, start, res, err) }()

	if timeoutMs <= 0 {
		return domain.AuthResult{}, domain.Invalid("timeout must be positive")
	}
	if strings.TrimSpace(handleOrEmail) == "" {
		return domain.AuthResult{}, domain.Invalid("login or email is required")
	}
	if !validate.Password(password) {
		return domain.AuthResult{}, domain.Invalid("password does not meet requirements")
	}

	res, err = timeout.Run(ctx, timeoutMs, func(ctx context.Context) (domain.AuthResult, error) {
		email, err := s.directory.ResolveEmail(ctx, handleOrEmail)
		if err != nil {
			return domain.AuthResult{}, err
		}
		cred, err := s.backend.SignInWithPassword(ctx, email, password)
		if err != nil {
			return domain.AuthResult{}, err
		}
		if cred.LocalID == "" {
			return domain.Failed("email authentication failed"), nil
		}
		return s.complete(ctx, cred, domain.ProviderEmail)
	})
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("login: %w", err)
	}
	s.remember(res)
	return res, nil
}

// LoginWithOAuth lleva al usuario por la redireccion del proveedor. correlationID identifica
// el intento ante el navegador; vacio genera uno nuevo.
func (s *AuthService) LoginWithOAuth(ctx context.Context, provider domain.Provider, correlationID string, timeoutMs int64) (res domain.AuthResult, err error) {
	start := s.now()
	defer func() { s.observe("oauth", provider, start, res, err) }()

	if timeoutMs <= 0 {
		return domain.AuthResult{}, domain.Invalid("timeout must be positive")
	}
	if strings.EqualFold(s.cfg.Platform, UnsupportedOAuthPlatform) {
		return domain.AuthResult{}, fmt.Errorf("oauth %s: %w: %s", provider, domain.ErrPlatformUnsupported, s.cfg.Platform)
	}
	p, ok := s.providers.Get(provider)
	if !ok {
		return domain.AuthResult{}, domain.Invalid(fmt.Sprintf("unsupported oauth provider %q", provider))
	}
	if !p.Enabled() {
		return domain.Failed(fmt.Sprintf("%s login is disabled", provider)), nil
	}
	if err := p.Validate(); err != nil {
		return domain.AuthResult{}, err
	}
	if strings.TrimSpace(s.cfg.CallbackScheme) == "" {
		return domain.AuthResult{}, domain.Misconfigured("callback scheme is required")
	}
	if s.browser == nil {
		return domain.AuthResult{}, domain.Misconfigured("oauth browser is required")
	}

	id := correlationID
	if id == "" {
		id = s.newID()
	}
	nonce := s.newID()

	res, err = timeout.Run(ctx, timeoutMs, func(ctx context.Context) (domain.AuthResult, error) {
		params, err := s.browser.Authenticate(ctx, id, p.AuthURL(id, nonce), s.cfg.CallbackScheme)
		if err != nil {
			return domain.AuthResult{}, err
		}
		token, ok := p.Token(params)
		if !ok {
			return domain.AuthResult{}, &domain.ProviderError{Op: string(provider) + " redirect", Message: "no token received"}
		}
		cred, err := s.backend.SignInWithIdp(ctx, p.PostBody(token), p.RedirectURI())
		if err != nil {
			return domain.AuthResult{}, err
		}
		if cred.LocalID == "" {
			return domain.Failed(fmt.Sprintf("%s authentication failed", provider)), nil
		}
		return s.complete(ctx, cred, provider)
	})
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("oauth %s: %w", provider, err)
	}
	s.remember(res)
	return res, nil
}

// Register asegura el mapeo login -> email antes de crear la cuenta en el backend.
func (s *AuthService) Register(ctx context.Context, login, email, password string, timeoutMs int64) (res domain.AuthResult, err error) {
	start := s.now()
	defer func() { s.observe("register", domain.ProviderEmail, start, res, err) }()

	if timeoutMs <= 0 {
		return domain.AuthResult{}, domain.Invalid("timeout must be positive")
	}
	if strings.TrimSpace(login) == "" {
		return domain.AuthResult{}, domain.Invalid("login is required")
	}
	if !validate.Email(email) {
		return domain.AuthResult{}, domain.Invalid("email is not valid")
	}
	if !validate.Password(password) {
		return domain.AuthResult{}, domain.Invalid("password does not meet requirements")
	}
	email = strings.TrimSpace(email)

	res, err = timeout.Run(ctx, timeoutMs, func(ctx context.Context) (domain.AuthResult, error) {
		if err := s.directory.EnsureRegistered(ctx, login, email); err != nil {
			return domain.AuthResult{}, err
		}
		cred, err := s.backend.SignUp(ctx, email, password, strings.TrimSpace(login))
		if err != nil {
			return domain.AuthResult{}, err
		}
		if cred.LocalID == "" {
			return domain.Failed("registration failed"), nil
		}
		return s.complete(ctx, cred, domain.ProviderEmail)
	})
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("register: %w", err)
	}
	s.remember(res)
	return res, nil
}

// ResetPassword envia el correo al email resuelto y solo despues olvida el login.
func (s *AuthService) ResetPassword(ctx context.Context, handleOrEmail string, timeoutMs int64) (err error) {
	start := s.now()
	defer func() { s.observe("reset_password", domain.ProviderEmail, start, domain.AuthResult{Success: err == nil}, err) }()

	if timeoutMs <= 0 {
		return domain.Invalid("timeout must be positive")
	}
	if strings.TrimSpace(handleOrEmail) == "" {
		return domain.Invalid("login or email is required")
	}

	_, err = timeout.Run(ctx, timeoutMs, func(ctx context.Context) (struct{}, error) {
		email, err := s.directory.ResolveEmail(ctx, handleOrEmail)
		if err != nil {
			return struct{}{}, err
		}
		if err := s.backend.SendPasswordReset(ctx, email); err != nil {
			return struct{}{}, err
		}
		if err := s.directory.Forget(ctx, handleOrEmail); err != nil {
			s.logger.Warn("directory forget failed after password reset", zap.Error(err))
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// RequestVerificationCode dispara el SMS; id correlaciona con LoginWithVerificationCode.
func (s *AuthService) RequestVerificationCode(ctx context.Context, id, phoneNumber string, timeoutMs int64, testMode bool) (ok bool, err error) {
	start := s.now()
	defer func() { s.observe("phone_request", domain.ProviderPhone, start, domain.AuthResult{Success: ok}, err) }()

	if s.phone == nil {
		return false, domain.Misconfigured("phone verifier is required")
	}
	return s.phone.RequestCode(ctx, id, phoneNumber, timeoutMs, testMode)
}

func (s *AuthService) LoginWithVerificationCode(ctx context.Context, id, code string, timeoutMs int64) (res domain.AuthResult, err error) {
	start := s.now()
	defer func() { s.observe("phone_submit", domain.ProviderPhone, start, res, err) }()

	if s.phone == nil {
		return domain.AuthResult{}, domain.Misconfigured("phone verifier is required")
	}
	res, err = s.phone.SubmitCode(ctx, id, code, timeoutMs)
	if err != nil {
		return domain.AuthResult{}, err
	}
	s.remember(res)
	return res, nil
}

func (s *AuthService) VerifyRecaptchaToken(ctx context.Context, token string, timeoutMs int64) (bool, error) {
	if s.recaptcha == nil {
		return false, domain.Misconfigured("recaptcha verifier is required")
	}
	return s.recaptcha.Verify(ctx, token, timeoutMs)
}

// RefreshTokens renueva el id token; la expiracion se recalcula desde ahora.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string, timeoutMs int64) (domain.AuthTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.AuthTokens{}, domain.Invalid("refresh token is required")
	}
	grant, err := timeout.Run(ctx, timeoutMs, func(ctx context.Context) (identity.TokenGrant, error) {
		return s.backend.RefreshIDToken(ctx, refreshToken)
	})
	if err != nil {
		return domain.AuthTokens{}, fmt.Errorf("refresh tokens: %w", err)
	}
	if grant.IDToken == "" {
		return domain.AuthTokens{}, fmt.Errorf("refresh tokens: %w", &domain.ProviderError{Op: "refreshToken", Message: "missing id_token"})
	}
	rt := grant.RefreshToken
	if rt == "" {
		rt = refreshToken
	}
	return domain.NewAuthTokens(grant.IDToken, rt, s.now()), nil
}

// Logout olvida al usuario actual.
func (s *AuthService) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return fmt.Errorf("logout: %w", domain.ErrNoActiveSession)
	}
	s.logger.Info("user signed out", zap.String("user_id", s.current.UserID))
	s.current = nil
	return nil
}

func (s *AuthService) CurrentUser() (domain.UserAuthData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.UserAuthData{}, false
	}
	return *s.current, true
}

// remember registra al usuario actual. Un login por telefono sin perfil deja una identidad minima.
func (s *AuthService) remember(res domain.AuthResult) {
	if !res.Success {
		return
	}
	var user domain.UserAuthData
	switch {
	case res.UserData != nil:
		user = *res.UserData
	case res.Tokens != nil:
		user = domain.UserAuthData{Provider: domain.ProviderPhone}
	default:
		return
	}
	s.mu.Lock()
	s.current = &user
	s.mu.Unlock()
	s.logger.Info("user signed in", zap.String("user_id", user.UserID), zap.String("provider", string(user.Provider)))
}

func (s *AuthService) observe(op string, provider domain.Provider, start time.Time, res domain.AuthResult, err error) {
	if err != nil {
		s.logger.Warn("auth operation failed", zap.String("operation", op), zap.String("provider", string(provider)), zap.Error(err))
	}
	s.metrics.ObserveAuth(op, provider, obs.Outcome(res, err), time.Since(start))
}
