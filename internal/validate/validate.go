// Package validate contiene las comprobaciones sintacticas que se ejecutan
// antes de cualquier llamada al backend de identidad.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength es la longitud minima aceptada por la politica de contraseñas.
const MinPasswordLength = 6

// Simbolos permitidos en contraseñas ademas de letras, digitos y espacios ASCII.
const passwordSymbols = "~`!@#$%^&*()-_+=|}]{[\":;?/>.<,"

var (
	shape      = validator.New()
	phoneRegex = regexp.MustCompile(`^\+\d{10,15}$`)
)

// Email indica si s es una unica direccion local@dominio con al menos un punto en el dominio.
func Email(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.Count(s, "@") != 1 {
		return false
	}
	if err := shape.Var(s, "email"); err != nil {
		return false
	}
	domain := s[strings.LastIndex(s, "@")+1:]
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if label == "" {
			return false
		}
	}
	return true
}

// Password aplica la politica: minimo 6 caracteres, solo letras y digitos ASCII,
// espacios ASCII y un conjunto fijo de simbolos.
func Password(s string) bool {
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return false
	}
	for _, r := range s {
		if !passwordRune(r) {
			return false
		}
	}
	return true
}

func passwordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '\t', r == '\n', r == '\v', r == '\f', r == '\r':
		return true
	}
	return strings.ContainsRune(passwordSymbols, r)
}

// NormalizePhone elimina todo lo que no sea digito y antepone "+".
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	b.WriteByte('+')
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Phone indica si la forma normalizada de s es "+" seguido de 10 a 15 digitos.
func Phone(s string) bool {
	return phoneRegex.MatchString(NormalizePhone(s))
}
