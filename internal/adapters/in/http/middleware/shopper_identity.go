// internal/adapters/in/http/middleware/shopper_identity.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
)

const (
	HeaderSessionID  = "X-Session-Id"
	HeaderCustomerID = "X-Customer-Id"
)

// ShopperIdentity puts the cart identity into the context.
//
//   - Authorization: Bearer <idToken> (optional) -> CustomerID. A present but invalid token is 401.
//   - X-Session-Id (optional) -> SessionID for guests.
//
// Requests with neither pass through; usecases answer ErrIdentityRequired when they need one.
type ShopperIdentity struct {
	Verifier TokenVerifier
	// Disabled accepts X-Customer-Id without a token (dev only).
	Disabled bool
}

func (m *ShopperIdentity) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := cartdom.Identity{SessionID: strings.TrimSpace(r.Header.Get(HeaderSessionID))}

		idToken, err := bearerToken(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, err.Error())
			return
		}

		switch {
		case idToken != "":
			uid, err := verifyUID(ctx, m.Verifier, idToken)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}
			id.CustomerID = uid
			ctx = context.WithValue(ctx, ctxKeyUID, uid)
		case m.Disabled:
			id.CustomerID = strings.TrimSpace(r.Header.Get(HeaderCustomerID))
		}

		next.ServeHTTP(w, r.WithContext(usecase.WithIdentity(ctx, id)))
	})
}
