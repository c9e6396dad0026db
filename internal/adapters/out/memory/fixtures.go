// internal/adapters/out/memory/fixtures.go
package memory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
)

// Fixtures seed the in-memory catalog (STORE_BACKEND=memory).
//
//	shops:
//	  - {id: s1, name: Tea House, ownerId: uid-owner-1}
//	products:
//	  - {id: p1, shopId: s1, name: Sencha, unitPrice: 200}
type Fixtures struct {
	Shops    []fixtureShop    `yaml:"shops"`
	Products []fixtureProduct `yaml:"products"`
}

type fixtureShop struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	OwnerID string `yaml:"ownerId"`
}

type fixtureProduct struct {
	ID            string  `yaml:"id"`
	ShopID        string  `yaml:"shopId"`
	Name          string  `yaml:"name"`
	IconURL       string  `yaml:"iconUrl"`
	CategoryID    string  `yaml:"categoryId"`
	UnitPrice     float64 `yaml:"unitPrice"`
	DiscountType  string  `yaml:"discountType"`
	DiscountValue float64 `yaml:"discountValue"`
}

// LoadFixtures reads a YAML fixtures file.
func LoadFixtures(path string) (Fixtures, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixtures{}, fmt.Errorf("read fixtures %s: %w", path, err)
	}
	return ParseFixtures(raw)
}

func ParseFixtures(raw []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	for _, p := range f.Products {
		if p.ID == "" || p.ShopID == "" {
			return Fixtures{}, fmt.Errorf("parse fixtures: product requires id and shopId")
		}
	}
	return f, nil
}

// Apply loads the fixtures into c.
func (f Fixtures) Apply(c *CatalogMem) {
	for _, s := range f.Shops {
		c.PutShop(shopdom.Shop{ID: s.ID, Name: s.Name, OwnerID: s.OwnerID})
	}
	for _, p := range f.Products {
		c.PutProduct(productdom.Product{
			ID:            p.ID,
			ShopID:        p.ShopID,
			Name:          p.Name,
			IconURL:       p.IconURL,
			CategoryID:    p.CategoryID,
			UnitPrice:     p.UnitPrice,
			DiscountType:  p.DiscountType,
			DiscountValue: p.DiscountValue,
		})
	}
}
