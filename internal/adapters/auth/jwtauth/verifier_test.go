package jwtauth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, hostClaims{
		Email:  "Editor@Example.com",
		Editor: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("UserID = %q", claims.UserID)
	}
	if claims.Email != "editor@example.com" {
		t.Fatalf("Email = %q, want normalizado a minúsculas", claims.Email)
	}
	if !claims.Editor {
		t.Fatal("Editor = false")
	}
}

func TestVerify_EmptyToken(t *testing.T) {
	v := NewVerifier(testSecret)

	if _, err := v.Verify(context.Background(), "   "); !errors.Is(err, ErrTokenEmpty) {
		t.Fatalf("err = %v, want ErrTokenEmpty", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, "otro-secreto", jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_WrongMethod(t *testing.T) {
	v := NewVerifier(testSecret)

	// HS512 con el secreto correcto sigue siendo inválido: el método se
	// fija en HS256 para cortar ataques de confusión de algoritmo.
	token := signToken(t, testSecret, jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}

func TestVerify_ExpiredWithinLeeway(t *testing.T) {
	v := NewVerifier(testSecret)

	// Expirado hace 10s: dentro del leeway de 30s, sigue válido.
	token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Second)),
	})

	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_MissingSubject(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("err = %v, want ErrTokenInvalid", err)
	}
}
