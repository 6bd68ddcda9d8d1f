package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"multiauth/internal/domain"
	"multiauth/internal/identity"
)

// complete arma el AuthResult de un login por password u OAuth: perfil fresco via lookup
// (o los campos del login si falla) y tokens con expiracion fija desde la emision.
func (s *AuthService) complete(ctx context.Context, cred identity.Credential, provider domain.Provider) (domain.AuthResult, error) {
	if cred.IDToken == "" {
		return domain.Failed(fmt.Sprintf("%s sign-in returned no id token", provider)), nil
	}
	issuedAt := s.now()

	account := cred.Account()
	fresh, found, err := s.backend.Lookup(ctx, cred.IDToken)
	switch {
	case err != nil:
		s.logger.Warn("profile lookup failed, using sign-in payload", zap.String("provider", string(provider)), zap.Error(err))
	case found:
		account = fresh
	}
	if account.LocalID == "" {
		account.LocalID = cred.LocalID
	}

	refreshToken := cred.RefreshToken
	if refreshToken == "" {
		rt, err := s.backend.ExchangeIDToken(ctx, cred.IDToken)
		if err != nil {
			return domain.AuthResult{}, fmt.Errorf("exchange id token: %w", err)
		}
		refreshToken = rt
	}

	return domain.Successful(account.UserData(provider), domain.NewAuthTokens(cred.IDToken, refreshToken, issuedAt)), nil
}
