package identity

import "multiauth/internal/domain"

// UserData normaliza el perfil del backend para el proveedor indicado.
func (a Account) UserData(provider domain.Provider) *domain.UserAuthData {
	return &domain.UserAuthData{
		UserID:          a.LocalID,
		Email:           a.Email,
		DisplayName:     a.DisplayName,
		PhotoURL:        a.PhotoURL,
		PhoneNumber:     a.PhoneNumber,
		IsEmailVerified: a.EmailVerified,
		Provider:        provider,
	}
}

// Account usa los campos del login como perfil cuando accounts:lookup no responde.
func (c Credential) Account() Account {
	return Account{
		LocalID:       c.LocalID,
		Email:         c.Email,
		DisplayName:   c.DisplayName,
		PhotoURL:      c.PhotoURL,
		EmailVerified: c.EmailVerified,
	}
}
