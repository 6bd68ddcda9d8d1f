package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TicketService emite los tickets firmados que correlacionan "pedir codigo" con "verificar codigo".
type TicketService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

type TicketClaims struct {
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrTicketInvalid = errors.New("ticket invalid")
	ErrTicketExpired = errors.New("ticket expired")
)

const ticketType = "phone_verification"

func NewTicketService(secret string, ttl time.Duration) *TicketService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TicketService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "multiauth",
		now:    time.Now,
	}
}

// Issue genera un id de sesion nuevo y lo firma en un ticket.
func (s *TicketService) Issue() (ticket, sessionID string, err error) {
	if len(s.secret) == 0 {
		return "", "", ErrTicketInvalid
	}
	sessionID = uuid.NewString()
	now := s.now().UTC()
	claims := TicketClaims{
		SessionID: sessionID,
		TokenType: ticketType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", err
	}
	return signed, sessionID, nil
}

// Parse valida el ticket y devuelve el id de sesion que transporta.
func (s *TicketService) Parse(ticket string) (string, error) {
	if len(s.secret) == 0 || strings.TrimSpace(ticket) == "" {
		return "", ErrTicketInvalid
	}
	var claims TicketClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(ticket, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTicketExpired
		}
		return "", ErrTicketInvalid
	}
	if claims.TokenType != ticketType || strings.TrimSpace(claims.SessionID) == "" || claims.Subject != claims.SessionID {
		return "", ErrTicketInvalid
	}
	return claims.SessionID, nil
}
