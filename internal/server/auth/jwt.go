// Package auth issues and verifies the stateless bearer tokens handed out on
// login.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// TokenManager signs HS256 tokens whose subject is the user id.
type TokenManager struct {
	secret   []byte
	validity time.Duration
	clock    timex.Clock
}

func NewTokenManager(secret string, validity time.Duration, clock timex.Clock) *TokenManager {
	return &TokenManager{secret: []byte(secret), validity: validity, clock: clock}
}

// Issue returns a token for subjectID valid until now + validity.
func (m *TokenManager) Issue(subjectID string) (string, error) {
	now := m.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.validity)),
	})

	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify returns the subject of a valid token. Expired tokens yield
// common.ErrTokenExpired; anything else wrong yields common.ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
