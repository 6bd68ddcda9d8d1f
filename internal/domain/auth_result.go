package domain

import (
	"strconv"
	"time"
)

// TokenLifetime es la vida conocida del id token emitido por el backend.
const TokenLifetime = time.Hour

// AuthTokens agrupa las credenciales emitidas tras un login exitoso.
type AuthTokens struct {
	IDToken      string    `json:"idToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    string    `json:"expiresIn"`
	TokenExpiry  time.Time `json:"tokenExpiry"`
}

// NewAuthTokens calcula ExpiresIn y TokenExpiry a partir del momento de emision.
func NewAuthTokens(idToken, refreshToken string, issuedAt time.Time) AuthTokens {
	return AuthTokens{
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresIn:    strconv.FormatInt(int64(TokenLifetime.Seconds()), 10),
		TokenExpiry:  issuedAt.UTC().Add(TokenLifetime),
	}
}

// AuthResult es el resultado uniforme de todos los flujos de login.
type AuthResult struct {
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
	UserData     *UserAuthData `json:"userData,omitempty"`
	Tokens       *AuthTokens   `json:"tokens,omitempty"`
}

// Successful construye un resultado exitoso. userData puede ser nil solo en el flujo por telefono.
func Successful(userData *UserAuthData, tokens AuthTokens) AuthResult {
	return AuthResult{Success: true, UserData: userData, Tokens: &tokens}
}

// Failed construye un resultado fallido sin identidad.
func Failed(message string) AuthResult {
	return AuthResult{Success: false, ErrorMessage: message}
}
