// Package jwt emite y valida los bearer tokens del servicio (HS256, secret
// server-side).
package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrNoSubject    = errors.New("jwt: token without subject")
)

// Issuer firma tokens con el secret del servidor.
type Issuer struct {
	Secret []byte
	Iss    string        // "iss"
	TTL    time.Duration // validez por defecto (24h)
}

func NewIssuer(secret, iss string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{Secret: []byte(secret), Iss: iss, TTL: ttl}
}

// Issue emite un access token con sub = did.
func (i *Issuer) Issue(did string, now time.Time) (string, error) {
	claims := jwtv5.MapClaims{
		"sub": did,
		"iat": now.Unix(),
		"exp": now.Add(i.TTL).Unix(),
	}
	if i.Iss != "" {
		claims["iss"] = i.Iss
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.Secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// ParseSubject valida firma y expiración y devuelve el sub (DID).
func (i *Issuer) ParseSubject(raw string) (string, error) {
	tok, err := jwtv5.Parse(raw, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.Secret, nil
	}, jwtv5.WithExpirationRequired(), jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}
