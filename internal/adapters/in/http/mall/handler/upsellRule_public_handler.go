// internal/adapters/in/http/mall/handler/upsellRule_public_handler.go
package mallHandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/handlers/common"
	mallquery "storefront/internal/application/query/mall"
)

// UpsellPublicHandler exposes active rules without authentication.
type UpsellPublicHandler struct {
	q   *mallquery.UpsellPublicQuery
	log *zap.Logger
}

func NewUpsellPublicHandler(q *mallquery.UpsellPublicQuery, logger *zap.Logger) *UpsellPublicHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpsellPublicHandler{q: q, log: logger.Named("mall_upsell_public_handler")}
}

// GET /mall/shops/{shopId}/upsell-rules
func (h *UpsellPublicHandler) List(w http.ResponseWriter, r *http.Request) {
	offers, err := h.q.ListPublic(r.Context(), chi.URLParam(r, "shopId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]any{"items": offers})
}

// GET /mall/shops/{shopId}/upsell-rules/{ruleId}
// GET /mall/upsell-rules/{ruleId}
func (h *UpsellPublicHandler) Get(w http.ResponseWriter, r *http.Request) {
	offer, err := h.q.GetPublic(r.Context(), chi.URLParam(r, "shopId"), chi.URLParam(r, "ruleId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, offer)
}

func (h *UpsellPublicHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if code := common.WriteErr(w, err); code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
}
