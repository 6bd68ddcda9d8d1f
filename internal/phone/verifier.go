package phone

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"multiauth/internal/challenge"
	"multiauth/internal/domain"
	"multiauth/internal/identity"
	"multiauth/internal/timeout"
	"multiauth/internal/validate"
)

// TestModeToken reemplaza el token de reCAPTCHA en proyectos con numeros de prueba.
const TestModeToken = "test"

type Backend interface {
	SendVerificationCode(ctx context.Context, phoneNumber, recaptchaToken string) (string, error)
	SignInWithPhoneNumber(ctx context.Context, sessionInfo, code string) (identity.PhoneSignIn, error)
	Lookup(ctx context.Context, idToken string) (identity.Account, bool, error)
	ExchangeIDToken(ctx context.Context, idToken string) (string, error)
}

// Challenger obtiene la verificacion humana previa al SMS.
type Challenger interface {
	Obtain(ctx context.Context, id string, timeoutMs int64) (challenge.Outcome, error)
}

type Verifier struct {
	logger   *zap.Logger
	backend  Backend
	gate     Challenger
	sessions SessionStore
	now      func() time.Time
}

func NewVerifier(logger *zap.Logger, backend Backend, gate Challenger, sessions SessionStore) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = NewMemoryStore()
	}
	return &Verifier{
		logger:   logger,
		backend:  backend,
		gate:     gate,
		sessions: sessions,
		now:      time.Now,
	}
}

// RequestCode despacha el SMS a phoneNumber y guarda la sesion bajo id, pisando la anterior.
func (v *Verifier) RequestCode(ctx context.Context, id, phoneNumber string, timeoutMs int64, testMode bool) (bool, error) {
	number := validate.NormalizePhone(phoneNumber)
	if !validate.Phone(number) {
		return false, domain.Invalid("phone number must be in E.164 format")
	}
	if timeoutMs <= 0 {
		return false, domain.Invalid("timeout must be positive")
	}

	token := TestModeToken
	if !testMode {
		if v.gate == nil {
			return false, domain.Misconfigured("challenge gate is required outside test mode")
		}
		outcome, err := v.gate.Obtain(ctx, id, timeoutMs)
		if err != nil {
			return false, fmt.Errorf("request code: %w", err)
		}
		if !outcome.OK() {
			return false, fmt.Errorf("request code: %w: %s", domain.ErrChallengeFailed, outcome.State)
		}
		token = outcome.Token
	}

	sessionInfo, err := timeout.Run(ctx, timeoutMs, func(ctx context.Context) (string, error) {
		return v.backend.SendVerificationCode(ctx, number, token)
	})
	if err != nil {
		return false, fmt.Errorf("request code: %w", err)
	}
	if err := v.sessions.Put(ctx, id, sessionInfo); err != nil {
		return false, fmt.Errorf("request code: store session: %w", err)
	}
	v.logger.Info("verification code sent", zap.String("session_slot", slot(id)), zap.Bool("test_mode", testMode))
	return true, nil
}

// SubmitCode canjea el codigo recibido por SMS. La sesion se consume aunque el canje falle.
func (v *Verifier) SubmitCode(ctx context.Context, id, code string, timeoutMs int64) (domain.AuthResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.AuthResult{}, domain.Invalid("verification code is required")
	}
	if timeoutMs <= 0 {
		return domain.AuthResult{}, domain.Invalid("timeout must be positive")
	}

	sessionInfo, ok, err := v.sessions.Take(ctx, id)
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("submit code: load session: %w", err)
	}
	if !ok || sessionInfo == "" {
		return domain.AuthResult{}, fmt.Errorf("submit code: %w", domain.ErrNoActiveSession)
	}

	result, err := timeout.Run(ctx, timeoutMs, func(ctx context.Context) (domain.AuthResult, error) {
		return v.redeem(ctx, sessionInfo, code)
	})
	if err != nil {
		return domain.AuthResult{}, fmt.Errorf("submit code: %w", err)
	}
	return result, nil
}

func (v *Verifier) redeem(ctx context.Context, sessionInfo, code string) (domain.AuthResult, error) {
	signIn, err := v.backend.SignInWithPhoneNumber(ctx, sessionInfo, code)
	if err != nil {
		return domain.AuthResult{}, err
	}
	if signIn.IDToken == "" {
		return domain.Failed("phone sign-in returned no identity"), nil
	}
	issuedAt := v.now()

	var (
		user         *domain.UserAuthData
		refreshToken = signIn.RefreshToken
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		account, found, err := v.backend.Lookup(gctx, signIn.IDToken)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				v.logger.Warn("phone profile lookup failed", zap.Error(err))
			}
			return nil
		}
		if found {
			user = account.UserData(domain.ProviderPhone)
		}
		return nil
	})
	if refreshToken == "" {
		g.Go(func() error {
			rt, err := v.backend.ExchangeIDToken(gctx, signIn.IDToken)
			if err != nil {
				return fmt.Errorf("exchange id token: %w", err)
			}
			refreshToken = rt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AuthResult{}, err
	}

	return domain.Successful(user, domain.NewAuthTokens(signIn.IDToken, refreshToken, issuedAt)), nil
}
