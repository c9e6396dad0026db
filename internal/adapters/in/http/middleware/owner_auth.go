// internal/adapters/in/http/middleware/owner_auth.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/application/usecase"
	shopdom "storefront/internal/domain/shop"
)

// OwnerAuth resolves the console caller's shop.
// Bearer ID token -> uid -> shop owned by uid -> usecase.WithShopID.
//
// Disabled (dev / memory backend only) trusts the X-Shop-Id header instead.
type OwnerAuth struct {
	Verifier TokenVerifier
	Shops    shopdom.Repository
	Disabled bool
	Logger   *zap.Logger
}

const HeaderShopID = "X-Shop-Id"

func (m *OwnerAuth) Handler(next http.Handler) http.Handler {
	log := m.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("owner_auth")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Disabled {
			sid := strings.TrimSpace(r.Header.Get(HeaderShopID))
			if sid == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized: missing "+HeaderShopID)
				return
			}
			next.ServeHTTP(w, r.WithContext(usecase.WithShopID(r.Context(), sid)))
			return
		}

		if m.Verifier == nil || m.Shops == nil {
			writeAuthError(w, http.StatusServiceUnavailable, "owner auth middleware not initialized")
			return
		}

		idToken, err := bearerToken(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, err.Error())
			return
		}
		if idToken == "" {
			writeAuthError(w, http.StatusUnauthorized, errMissingBearer.Error())
			return
		}

		uid, err := verifyUID(r.Context(), m.Verifier, idToken)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, err.Error())
			return
		}

		shop, err := m.Shops.GetByOwnerID(r.Context(), uid)
		if err != nil {
			if errors.Is(err, shopdom.ErrNotFound) {
				writeAuthError(w, http.StatusForbidden, "forbidden: no shop for this account")
				return
			}
			log.Error("shop lookup failed", zap.String("uid", uid), zap.Error(err))
			writeAuthError(w, http.StatusInternalServerError, "shop lookup failed")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUID, uid)
		ctx = usecase.WithShopID(ctx, shop.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
