// internal/application/usecase/context.go
package usecase

import (
	"context"
	"strings"

	cartdom "storefront/internal/domain/cart"
)

// usecase 層で使う context key
type ctxKey string

const (
	ctxKeyShopID     ctxKey = "shopId"
	ctxKeyCustomerID ctxKey = "customerId"
	ctxKeySessionID  ctxKey = "sessionId"
)

// WithShopID lets middleware inject the owner's shop.
func WithShopID(ctx context.Context, shopID string) context.Context {
	sid := strings.TrimSpace(shopID)
	if sid == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyShopID, sid)
}

func ShopIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyShopID)
}

// WithIdentity injects the shopper identity (customer uid and/or guest session).
func WithIdentity(ctx context.Context, id cartdom.Identity) context.Context {
	id = id.Normalize()
	if id.CustomerID != "" {
		ctx = context.WithValue(ctx, ctxKeyCustomerID, id.CustomerID)
	}
	if id.SessionID != "" {
		ctx = context.WithValue(ctx, ctxKeySessionID, id.SessionID)
	}
	return ctx
}

func IdentityFromContext(ctx context.Context) cartdom.Identity {
	return cartdom.Identity{
		CustomerID: stringFromContext(ctx, ctxKeyCustomerID),
		SessionID:  stringFromContext(ctx, ctxKeySessionID),
	}
}

func stringFromContext(ctx context.Context, k ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, ok := ctx.Value(k).(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
