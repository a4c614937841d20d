package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"intechlab/models"
)

var (
	ErrTokenExpired = errors.New("la sesion expiro, inicia sesion de nuevo")
	ErrTokenInvalid = errors.New("token invalido")
)

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Tokens firma y verifica tokens HS256.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue emite un token para la cuenta con su rol actual.
func (t *Tokens) Issue(u User) (string, error) {
	now := t.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		Name:  u.DisplayName,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	})
	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("error al firmar token: %v", err)
	}
	return signed, nil
}

// Verify valida el token y arma el Actor. Sin claim de rol el actor es worker.
func (t *Tokens) Verify(raw string) (models.Actor, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Actor{}, ErrTokenExpired
		}
		return models.Actor{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	role := models.Role(c.Role)
	if !role.Valid() {
		role = models.RoleWorker
	}
	return models.Actor{UID: c.Subject, Email: c.Email, Name: c.Name, Role: role}, nil
}
