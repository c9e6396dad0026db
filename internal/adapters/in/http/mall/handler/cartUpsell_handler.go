// internal/adapters/in/http/mall/handler/cartUpsell_handler.go
package mallHandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/handlers/common"
	usecase "storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
)

// CartUpsellHandler serves the shopper cart and its offer flow under /mall/cart.
// Identity comes from ShopperIdentity (usecase.IdentityFromContext).
type CartUpsellHandler struct {
	upsell *usecase.CartUpsellUsecase
	cart   *usecase.CartUsecase
	log    *zap.Logger
}

func NewCartUpsellHandler(upsell *usecase.CartUpsellUsecase, cart *usecase.CartUsecase, logger *zap.Logger) *CartUpsellHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartUpsellHandler{upsell: upsell, cart: cart, log: logger.Named("mall_cart_upsell_handler")}
}

// Routes mounts:
//
//	GET    /                                 current cart
//	POST   /items                            {shopId, productId, quantity}
//	GET    /upsells                          ?productId=
//	POST   /upsells/apply-upsell             {ruleId, selectedProductId, replacedProductId}
//	POST   /upsells/apply-cross-sell         {ruleId, selectedProductId}
//	DELETE /upsells/applied/{productId}
func (h *CartUpsellHandler) Routes(r chi.Router) {
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Get("/upsells", h.evaluate)
	r.Post("/upsells/apply-upsell", h.applyUpsell)
	r.Post("/upsells/apply-cross-sell", h.applyCrossSell)
	r.Delete("/upsells/applied/{productId}", h.removeApplied)
}

type addItemRequest struct {
	ShopID    string `json:"shopId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type applyUpsellRequest struct {
	RuleID            string `json:"ruleId"`
	SelectedProductID string `json:"selectedProductId"`
	ReplacedProductID string `json:"replacedProductId"`
}

type applyCrossSellRequest struct {
	RuleID            string `json:"ruleId"`
	SelectedProductID string `json:"selectedProductId"`
}

// GET /mall/cart
func (h *CartUpsellHandler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.cart.Get(r.Context(), usecase.IdentityFromContext(r.Context()))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, c)
}

// POST /mall/cart/items
func (h *CartUpsellHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteErr(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := h.cart.AddItem(r.Context(), usecase.IdentityFromContext(r.Context()), req.ShopID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, c)
}

// GET /mall/cart/upsells?productId=
//
// An anonymous caller gets an empty result; identity is only needed to locate a cart.
func (h *CartUpsellHandler) evaluate(w http.ResponseWriter, r *http.Request) {
	offers, err := h.upsell.EvaluateCart(r.Context(), usecase.IdentityFromContext(r.Context()), r.URL.Query().Get("productId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, offers)
}

// POST /mall/cart/upsells/apply-upsell
func (h *CartUpsellHandler) applyUpsell(w http.ResponseWriter, r *http.Request) {
	var req applyUpsellRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteErr(w, err)
		return
	}
	id := usecase.IdentityFromContext(r.Context())
	if _, err := h.upsell.ApplyUpsell(r.Context(), id, req.RuleID, req.SelectedProductID, req.ReplacedProductID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.recalculated(w, r, id)
}

// POST /mall/cart/upsells/apply-cross-sell
func (h *CartUpsellHandler) applyCrossSell(w http.ResponseWriter, r *http.Request) {
	var req applyCrossSellRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteErr(w, err)
		return
	}
	id := usecase.IdentityFromContext(r.Context())
	if _, err := h.upsell.ApplyCrossSell(r.Context(), id, req.RuleID, req.SelectedProductID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.recalculated(w, r, id)
}

// DELETE /mall/cart/upsells/applied/{productId}
func (h *CartUpsellHandler) removeApplied(w http.ResponseWriter, r *http.Request) {
	id := usecase.IdentityFromContext(r.Context())
	if _, err := h.upsell.RemoveAppliedRule(r.Context(), id, chi.URLParam(r, "productId")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.recalculated(w, r, id)
}

// recalculated refreshes the cart total after a mutation and writes the cart.
func (h *CartUpsellHandler) recalculated(w http.ResponseWriter, r *http.Request, id cartdom.Identity) {
	c, err := h.cart.Recalculate(r.Context(), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    c,
	})
}

func (h *CartUpsellHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := common.WriteErr(w, err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		h.log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
}
