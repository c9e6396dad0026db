// internal/application/query/mall/errors.go
package mall

import (
	"errors"
	"fmt"

	uc "storefront/internal/application/usecase"
)

var (
	// ErrNotFound covers unknown, inactive and foreign-shop rules, and rules with nothing left to price.
	ErrNotFound = errors.New("mall: upsell rule not found")

	// ErrShopRequired is returned when a public listing has no shop id.
	ErrShopRequired = fmt.Errorf("mall: shop id is required: %w", uc.ErrUpsellInvalidArgument)
)
