package domain

// Provider identifica el metodo de autenticacion que produjo la identidad.
type Provider string

const (
	ProviderEmail    Provider = "email"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderPhone    Provider = "phone"
)

// ParseProvider convierte un nombre externo (ruta, flag) en Provider.
func ParseProvider(name string) (Provider, bool) {
	switch Provider(name) {
	case ProviderEmail, ProviderGoogle, ProviderFacebook, ProviderPhone:
		return Provider(name), true
	}
	return "", false
}

// UserAuthData es la identidad normalizada; no se modifica despues de construirse.
type UserAuthData struct {
	UserID          string   `json:"userId"`
	Email           string   `json:"email"`
	DisplayName     string   `json:"displayName,omitempty"`
	PhotoURL        string   `json:"photoUrl,omitempty"`
	PhoneNumber     string   `json:"phoneNumber,omitempty"`
	IsEmailVerified bool     `json:"isEmailVerified"`
	Provider        Provider `json:"provider"`
}
