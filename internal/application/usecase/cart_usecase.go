// internal/application/usecase/cart_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

var (
	ErrCartInvalidArgument = errors.New("cart_usecase: invalid argument")
	// ErrIdentityRequired means neither an authenticated customer nor a session id was supplied.
	ErrIdentityRequired = errors.New("cart_usecase: authentication or session id required")
)

// Clock provides current time (for testability).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// CartUsecase covers the plain cart operations around the offer flow:
// reading the cart, adding catalog products and recalculating totals.
type CartUsecase struct {
	repo    cartdom.Repository
	catalog productdom.Catalog
	clock   Clock
	newID   func() string
	log     *zap.Logger
}

func NewCartUsecase(repo cartdom.Repository, catalog productdom.Catalog, logger *zap.Logger) *CartUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartUsecase{
		repo:    repo,
		catalog: catalog,
		clock:   systemClock{},
		newID:   uuid.NewString,
		log:     logger.Named("cart_usecase"),
	}
}

// NewCartUsecaseWithClock is useful for tests.
func NewCartUsecaseWithClock(repo cartdom.Repository, catalog productdom.Catalog, clock Clock) *CartUsecase {
	uc := NewCartUsecase(repo, catalog, nil)
	if clock != nil {
		uc.clock = clock
	}
	return uc
}

// Get returns the cart of the identity, or cartdom.ErrNotFound.
func (uc *CartUsecase) Get(ctx context.Context, id cartdom.Identity) (*cartdom.Cart, error) {
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}
	c, err := uc.repo.GetByIdentity(ctx, id.Normalize())
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, cartdom.ErrNotFound
	}
	return c, nil
}

// AddItem adds qty units of a catalog product at its own discounted price.
// The cart is created on first use.
func (uc *CartUsecase) AddItem(ctx context.Context, id cartdom.Identity, shopID, productID string, qty int) (*cartdom.Cart, error) {
	if id.IsZero() {
		return nil, ErrIdentityRequired
	}
	shopID = strings.TrimSpace(shopID)
	productID = strings.TrimSpace(productID)
	if shopID == "" || productID == "" || qty <= 0 {
		return nil, ErrCartInvalidArgument
	}

	ps, err := uc.catalog.ListByIDs(ctx, shopID, []string{productID})
	if err != nil {
		return nil, fmt.Errorf("resolve product: %w", err)
	}
	p, ok := productdom.ByID(ps)[productID]
	if !ok {
		return nil, productdom.ErrNotFound
	}

	now := uc.clock.Now()
	c, err := uc.loadOrNew(ctx, id.Normalize(), now)
	if err != nil {
		return nil, err
	}

	price := ruledom.ApplyDiscount(p.UnitPrice, ruledom.DiscountType(p.DiscountType), p.DiscountValue)
	if err := c.AddItem(cartdom.CartItem{
		ID:              uc.newID(),
		ProductID:       p.ID,
		ShopID:          p.ShopID,
		Quantity:        qty,
		PriceAtAddition: price,
	}, now); err != nil {
		return nil, err
	}
	c.Recalculate(now)

	if err := uc.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Recalculate refreshes TotalAmount from the lines and persists the cart.
// Offer mutations leave totals stale; callers run this afterwards.
func (uc *CartUsecase) Recalculate(ctx context.Context, id cartdom.Identity) (*cartdom.Cart, error) {
	c, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	before := c.TotalAmount
	c.Recalculate(uc.clock.Now())
	if err := uc.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	if before != c.TotalAmount {
		uc.log.Debug("cart total recalculated",
			zap.String("cartId", c.ID),
			zap.Float64("before", before),
			zap.Float64("after", c.TotalAmount),
		)
	}
	return c, nil
}

func (uc *CartUsecase) loadOrNew(ctx context.Context, id cartdom.Identity, now time.Time) (*cartdom.Cart, error) {
	c, err := uc.repo.GetByIdentity(ctx, id)
	if err == nil && c != nil {
		return c, nil
	}
	if err != nil && !errors.Is(err, cartdom.ErrNotFound) {
		return nil, err
	}
	return cartdom.NewCart(uc.newID(), id.CustomerID, id.SessionID, nil, now)
}
