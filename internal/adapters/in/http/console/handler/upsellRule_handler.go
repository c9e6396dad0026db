// internal/adapters/in/http/console/handler/upsellRule_handler.go
package consoleHandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/handlers/common"
	usecase "storefront/internal/application/usecase"
	domcommon "storefront/internal/domain/common"
	ruledom "storefront/internal/domain/upsellRule"
)

// UpsellRuleHandler serves the shop owner's rule store under /console/upsell-rules.
// The shop comes from OwnerAuth (usecase.ShopIDFromContext).
type UpsellRuleHandler struct {
	uc  *usecase.UpsellRuleUsecase
	log *zap.Logger
}

func NewUpsellRuleHandler(uc *usecase.UpsellRuleUsecase, logger *zap.Logger) *UpsellRuleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpsellRuleHandler{uc: uc, log: logger.Named("console_upsell_rule_handler")}
}

// Routes mounts:
//
//	GET    /                ?search=&ruleType=&status=&page=&perPage=
//	POST   /
//	GET    /{ruleId}
//	PATCH  /{ruleId}        (PUT is accepted as an alias)
//	DELETE /{ruleId}
//	POST   /{ruleId}/toggle
//	GET    /{ruleId}/stats
func (h *UpsellRuleHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Route("/{ruleId}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Patch("/", h.update)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Post("/toggle", h.toggle)
		r.Get("/stats", h.stats)
	})
}

// ------------------------------
// DTO
// ------------------------------

type conditionsRequest struct {
	MinCartValue      float64  `json:"minCartValue"`
	MaxCartValue      float64  `json:"maxCartValue"`
	TriggerProducts   []string `json:"triggerProducts"`
	TriggerCategories []string `json:"triggerCategories"`
}

func (c *conditionsRequest) toDomain() *ruledom.Conditions {
	if c == nil {
		return nil
	}
	return &ruledom.Conditions{
		MinCartValue:      c.MinCartValue,
		MaxCartValue:      c.MaxCartValue,
		TriggerProducts:   c.TriggerProducts,
		TriggerCategories: c.TriggerCategories,
	}
}

// ruleRequest is shared by create (all fields read) and update (present fields only).
type ruleRequest struct {
	RuleName        *string            `json:"ruleName"`
	Description     *string            `json:"description"`
	RuleType        *string            `json:"ruleType"`
	Priority        *string            `json:"priority"`
	DiscountType    *string            `json:"discountType"`
	DiscountValue   *float64           `json:"discountValue"`
	OfferedProducts *[]string          `json:"offeredProducts"`
	Conditions      *conditionsRequest `json:"conditions"`
	IsActive        *bool              `json:"isActive"`
}

func (req ruleRequest) fields() ruledom.Fields {
	f := ruledom.Fields{IsActive: req.IsActive}
	if req.RuleName != nil {
		f.RuleName = *req.RuleName
	}
	if req.Description != nil {
		f.Description = *req.Description
	}
	if req.RuleType != nil {
		f.RuleType = ruledom.RuleType(*req.RuleType)
	}
	if req.Priority != nil {
		f.Priority = ruledom.Priority(*req.Priority)
	}
	if req.DiscountType != nil {
		f.DiscountType = ruledom.DiscountType(*req.DiscountType)
	}
	if req.DiscountValue != nil {
		f.DiscountValue = *req.DiscountValue
	}
	if req.OfferedProducts != nil {
		f.OfferedProducts = *req.OfferedProducts
	}
	if c := req.Conditions.toDomain(); c != nil {
		f.Conditions = *c
	}
	return f
}

func (req ruleRequest) patch() ruledom.Patch {
	p := ruledom.Patch{
		RuleName:        req.RuleName,
		Description:     req.Description,
		DiscountValue:   req.DiscountValue,
		OfferedProducts: req.OfferedProducts,
		Conditions:      req.Conditions.toDomain(),
		IsActive:        req.IsActive,
	}
	if req.RuleType != nil {
		t := ruledom.RuleType(*req.RuleType)
		p.RuleType = &t
	}
	if req.Priority != nil {
		v := ruledom.Priority(*req.Priority)
		p.Priority = &v
	}
	if req.DiscountType != nil {
		v := ruledom.DiscountType(*req.DiscountType)
		p.DiscountType = &v
	}
	return p
}

type ruleResponse struct {
	ruledom.Rule
	ConversionRate float64 `json:"conversionRate"`
}

func toResponse(r ruledom.Rule) ruleResponse {
	return ruleResponse{Rule: r, ConversionRate: r.Stats.ConversionRate()}
}

// ------------------------------
// Handlers
// ------------------------------

// GET /console/upsell-rules
func (h *UpsellRuleHandler) list(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	rules, err := h.uc.List(r.Context(), shopID, usecase.RuleListFilter{
		Search:   q.Get("search"),
		RuleType: ruledom.RuleType(strings.TrimSpace(q.Get("ruleType"))),
		Status:   usecase.RuleStatus(strings.ToLower(strings.TrimSpace(q.Get("status")))),
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toResponse(rule))
	}
	common.WriteJSON(w, http.StatusOK, domcommon.Paginate(out, common.ParsePage(r)))
}

// POST /console/upsell-rules
func (h *UpsellRuleHandler) create(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteErr(w, err)
		return
	}
	rule, err := h.uc.Create(r.Context(), shopID, req.fields())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusCreated, toResponse(rule))
}

// GET /console/upsell-rules/{ruleId}
func (h *UpsellRuleHandler) get(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	rule, err := h.uc.Get(r.Context(), shopID, chi.URLParam(r, "ruleId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, toResponse(rule))
}

// PATCH /console/upsell-rules/{ruleId}
func (h *UpsellRuleHandler) update(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteErr(w, err)
		return
	}
	rule, err := h.uc.Update(r.Context(), shopID, chi.URLParam(r, "ruleId"), req.patch())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, toResponse(rule))
}

// DELETE /console/upsell-rules/{ruleId}
func (h *UpsellRuleHandler) delete(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	if err := h.uc.Delete(r.Context(), shopID, chi.URLParam(r, "ruleId")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /console/upsell-rules/{ruleId}/toggle
func (h *UpsellRuleHandler) toggle(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	rule, err := h.uc.Toggle(r.Context(), shopID, chi.URLParam(r, "ruleId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, toResponse(rule))
}

// GET /console/upsell-rules/{ruleId}/stats
func (h *UpsellRuleHandler) stats(w http.ResponseWriter, r *http.Request) {
	shopID, ok := h.shopID(w, r)
	if !ok {
		return
	}
	st, err := h.uc.GetStats(r.Context(), shopID, chi.URLParam(r, "ruleId"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, st)
}

// ------------------------------
// helpers
// ------------------------------

func (h *UpsellRuleHandler) shopID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := usecase.ShopIDFromContext(r.Context())
	if sid == "" {
		common.WriteError(w, http.StatusUnauthorized, "unauthorized: shop not resolved")
		return "", false
	}
	return sid, true
}

func (h *UpsellRuleHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if code := common.WriteErr(w, err); code >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
}
