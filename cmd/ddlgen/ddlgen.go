// cmd/ddlgen/ddlgen.go
package main

import (
	"fmt"
	"os"
	"path/filepath"

	// ドメインごとに import（アルファベット順）
	cartdom "storefront/internal/domain/cart"
	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
	ruledom "storefront/internal/domain/upsellRule"
)

func mustWrite(path string, content string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		panic(err)
	}
}

// outputs lists migration files in apply order (referenced tables first).
var outputs = []struct {
	file string
	ddl  string
}{
	{"001_init_shops.sql", shopdom.ShopsTableDDL},
	{"002_init_products.sql", productdom.ProductsTableDDL},
	{"003_init_upsell_rules.sql", ruledom.UpsellRulesTableDDL},
	{"004_init_carts.sql", cartdom.CartsTableDDL},
	{"005_init_cart_items.sql", cartdom.CartItemsTableDDL},
}

func main() {
	outDir := filepath.Join("internal", "infra", "database", "migrations")
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	for _, o := range outputs {
		path := filepath.Join(outDir, o.file)
		mustWrite(path, o.ddl)
		fmt.Println("✅ Generated:", path)
	}
}
