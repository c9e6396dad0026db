package httpin_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	httpin "storefront/internal/adapters/in/http"
	consoleHandler "storefront/internal/adapters/in/http/console/handler"
	mallHandler "storefront/internal/adapters/in/http/mall/handler"
	"storefront/internal/adapters/in/http/middleware"
	"storefront/internal/adapters/out/cache"
	"storefront/internal/adapters/out/memory"
	mallquery "storefront/internal/application/query/mall"
	"storefront/internal/application/usecase"
	productdom "storefront/internal/domain/product"
	shopdom "storefront/internal/domain/shop"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := zaptest.NewLogger(t)

	rules := memory.NewUpsellRuleRepositoryMem()
	carts := memory.NewCartRepositoryMem()
	catalog := memory.NewCatalogMem()
	catalog.PutShop(
		shopdom.Shop{ID: "s1", Name: "Tea House", OwnerID: "owner-1"},
		shopdom.Shop{ID: "s2", Name: "Coffee Corner", OwnerID: "owner-2"},
	)
	catalog.PutProduct(
		productdom.Product{ID: "P1", ShopID: "s1", Name: "Sencha", UnitPrice: 200},
		productdom.Product{ID: "P2", ShopID: "s1", Name: "Gyokuro", UnitPrice: 250},
		productdom.Product{ID: "P3", ShopID: "s1", Name: "Tea cup", UnitPrice: 100},
		productdom.Product{ID: "P5", ShopID: "s2", Name: "Espresso", UnitPrice: 50},
	)
	c := cache.NewMemoryCache()

	ruleUC := usecase.NewUpsellRuleUsecase(rules, catalog, c, time.Minute, log)
	upsellUC := usecase.NewCartUpsellUsecase(usecase.CartUpsellDeps{
		Rules: rules, Carts: carts, Catalog: catalog, Shops: catalog.Shops(), Logger: log,
	})
	cartUC := usecase.NewCartUsecase(carts, catalog, log)
	public := mallquery.NewUpsellPublicQuery(rules, catalog, c, time.Minute, nil, log)

	return httpin.NewRouter(httpin.RouterDeps{
		UpsellRules:        consoleHandler.NewUpsellRuleHandler(ruleUC, log),
		CartUpsell:         mallHandler.NewCartUpsellHandler(upsellUC, cartUC, log),
		PublicUpsell:       mallHandler.NewUpsellPublicHandler(public, log),
		OwnerAuth:          &middleware.OwnerAuth{Disabled: true, Logger: log},
		ShopperIdentity:    &middleware.ShopperIdentity{Disabled: true},
		CORSAllowedOrigins: []string{"*"},
		Logger:             log,
	})
}

type call struct {
	method  string
	path    string
	body    any
	shop    string
	session string
}

func do(t *testing.T, h http.Handler, c call) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.shop != "" {
		req.Header.Set(middleware.HeaderShopID, c.shop)
	}
	if c.session != "" {
		req.Header.Set(middleware.HeaderSessionID, c.session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestRouter_HealthAndNotFound(t *testing.T) {
	h := newTestRouter(t)

	code, body := do(t, h, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	code, body = do(t, h, call{method: http.MethodGet, path: "/nope"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])
}

func TestRouter_ConsoleRuleLifecycle(t *testing.T) {
	h := newTestRouter(t)

	code, _ := do(t, h, call{method: http.MethodGet, path: "/console/upsell-rules"})
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules", shop: "s1", body: map[string]any{
		"ruleName":        "Try Gyokuro",
		"ruleType":        "upsell",
		"priority":        "high",
		"discountType":    "percentage",
		"discountValue":   10,
		"offeredProducts": []string{"P2"},
	}})
	require.Equal(t, http.StatusCreated, code, body)
	id := body["id"].(string)
	assert.Equal(t, true, body["isActive"])
	assert.Equal(t, "s1", body["shopId"])

	// foreign product
	code, body = do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules", shop: "s1", body: map[string]any{
		"ruleName":        "Coffee",
		"ruleType":        "cross-sell",
		"discountType":    "flat",
		"discountValue":   5,
		"offeredProducts": []string{"P5"},
	}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "does not belong")

	// unknown field
	code, _ = do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules", shop: "s1", body: map[string]any{"bogus": 1}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, h, call{method: http.MethodPatch, path: "/console/upsell-rules/" + id, shop: "s1", body: map[string]any{"priority": "low"}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "low", body["priority"])
	assert.Equal(t, "Try Gyokuro", body["ruleName"])

	code, body = do(t, h, call{method: http.MethodGet, path: "/console/upsell-rules?ruleType=upsell&status=active", shop: "s1"})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["totalCount"])

	// other shop cannot see it
	code, _ = do(t, h, call{method: http.MethodGet, path: "/console/upsell-rules/" + id, shop: "s2"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules/" + id + "/toggle", shop: "s1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["isActive"])

	code, body = do(t, h, call{method: http.MethodGet, path: "/console/upsell-rules/" + id + "/stats", shop: "s1"})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, body["conversionRate"])

	code, _ = do(t, h, call{method: http.MethodDelete, path: "/console/upsell-rules/" + id, shop: "s1"})
	require.Equal(t, http.StatusNoContent, code)
	code, _ = do(t, h, call{method: http.MethodGet, path: "/console/upsell-rules/" + id, shop: "s1"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_ShopperOfferFlow(t *testing.T) {
	h := newTestRouter(t)

	_, rule := do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules", shop: "s1", body: map[string]any{
		"ruleName":        "Try Gyokuro",
		"ruleType":        "upsell",
		"discountType":    "percentage",
		"discountValue":   10,
		"offeredProducts": []string{"P2"},
	}})
	ruleID := rule["id"].(string)

	// identity is required for cart mutations
	code, _ := do(t, h, call{method: http.MethodPost, path: "/mall/cart/upsells/apply-upsell", body: map[string]any{
		"ruleId": ruleID, "selectedProductId": "P2", "replacedProductId": "P1",
	}})
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := do(t, h, call{method: http.MethodPost, path: "/mall/cart/items", session: "sess-1", body: map[string]any{
		"shopId": "s1", "productId": "P1", "quantity": 2,
	}})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 400, body["totalAmount"])

	code, body = do(t, h, call{method: http.MethodGet, path: "/mall/cart/upsells", session: "sess-1"})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["totalRules"])
	shop := body["shops"].(map[string]any)["s1"].(map[string]any)
	assert.Equal(t, "Tea House", shop["shopName"])
	offer := shop["upsell"].([]any)[0].(map[string]any)
	product := offer["products"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 225, product["upsellFinalPrice"])

	code, body = do(t, h, call{method: http.MethodPost, path: "/mall/cart/upsells/apply-upsell", session: "sess-1", body: map[string]any{
		"ruleId": ruleID, "selectedProductId": "P2", "replacedProductId": "P1",
	}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	cart := body["cart"].(map[string]any)
	assert.EqualValues(t, 450, cart["totalAmount"])
	line := cart["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "P2", line["productId"])
	assert.EqualValues(t, 2, line["quantity"])

	code, body = do(t, h, call{method: http.MethodGet, path: "/console/upsell-rules/" + ruleID + "/stats", shop: "s1"})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["conversions"])
	assert.EqualValues(t, 450, body["revenue"])

	// line no longer holds P1
	code, body = do(t, h, call{method: http.MethodPost, path: "/mall/cart/upsells/apply-upsell", session: "sess-1", body: map[string]any{
		"ruleId": ruleID, "selectedProductId": "P2", "replacedProductId": "P1",
	}})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "item not found")

	code, body = do(t, h, call{method: http.MethodDelete, path: "/mall/cart/upsells/applied/P2", session: "sess-1"})
	require.Equal(t, http.StatusOK, code)
	line = body["cart"].(map[string]any)["items"].([]any)[0].(map[string]any)
	assert.Nil(t, line["upsellRuleApplied"])
	assert.EqualValues(t, 225, line["priceAtAddition"])
}

func TestRouter_PublicRules(t *testing.T) {
	h := newTestRouter(t)

	_, rule := do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules", shop: "s1", body: map[string]any{
		"ruleName":        "Add a cup",
		"ruleType":        "cross-sell",
		"discountType":    "flat",
		"discountValue":   20,
		"offeredProducts": []string{"P3"},
	}})
	ruleID := rule["id"].(string)

	code, body := do(t, h, call{method: http.MethodGet, path: "/mall/shops/s1/upsell-rules"})
	require.Equal(t, http.StatusOK, code)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	product := items[0].(map[string]any)["products"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 80, product["upsellFinalPrice"])

	code, _ = do(t, h, call{method: http.MethodGet, path: "/mall/upsell-rules/" + ruleID})
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, call{method: http.MethodGet, path: "/mall/shops/s2/upsell-rules/" + ruleID})
	assert.Equal(t, http.StatusNotFound, code)

	do(t, h, call{method: http.MethodPost, path: "/console/upsell-rules/" + ruleID + "/toggle", shop: "s1"})

	code, _ = do(t, h, call{method: http.MethodGet, path: "/mall/upsell-rules/" + ruleID})
	assert.Equal(t, http.StatusNotFound, code)
	code, body = do(t, h, call{method: http.MethodGet, path: "/mall/shops/s1/upsell-rules"})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["items"])
}
