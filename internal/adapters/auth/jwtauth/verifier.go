package jwtauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"paywall-anywhere/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenEmpty   = errors.New("token is empty")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Verifier implementa auth.AuthVerifier con JWT firmado por el host
// (HS256, secreto compartido). Claims esperados: sub, email, editor.
type Verifier struct {
	secret []byte
	leeway time.Duration
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		leeway: 30 * time.Second,
	}
}

type hostClaims struct {
	Email  string `json:"email"`
	Editor bool   `json:"editor"`
	jwt.RegisteredClaims
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var claims hostClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return v.secret, nil
	}, jwt.WithLeeway(v.leeway))
	if err != nil || !parsed.Valid {
		return auth.Claims{}, ErrTokenInvalid
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return auth.Claims{}, ErrTokenInvalid
	}

	return auth.Claims{
		UserID: userID,
		Email:  strings.ToLower(strings.TrimSpace(claims.Email)),
		Editor: claims.Editor,
	}, nil
}
