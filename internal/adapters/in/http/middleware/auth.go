// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// TokenVerifier is satisfied by *auth.Client (Firebase Admin SDK).
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

var (
	errMissingBearer = errors.New("unauthorized: missing bearer token")
	errEmptyBearer   = errors.New("unauthorized: empty bearer token")
	errInvalidToken  = errors.New("invalid token")
)

// context key は string を使わず、衝突回避のため独自型を使用（SA1029 対策）
type ctxKey struct{ name string }

var ctxKeyUID = ctxKey{name: "uid"}

// CurrentUID returns the verified Firebase uid, if any.
func CurrentUID(r *http.Request) (string, bool) {
	u, ok := r.Context().Value(ctxKeyUID).(string)
	if !ok || strings.TrimSpace(u) == "" {
		return "", false
	}
	return u, true
}

// bearerToken returns ("", nil) when no Authorization header is present.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return "", errMissingBearer
	}
	t := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if t == "" {
		return "", errEmptyBearer
	}
	return t, nil
}

func verifyUID(ctx context.Context, v TokenVerifier, idToken string) (string, error) {
	if v == nil {
		return "", errors.New("auth middleware not initialized")
	}
	token, err := v.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", errInvalidToken
	}
	uid := strings.TrimSpace(token.UID)
	if uid == "" {
		return "", errInvalidToken
	}
	return uid, nil
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
