// internal/adapters/in/http/handlers/common/common_handler.go
package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/application/query/mall"
	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	domcommon "storefront/internal/domain/common"
	productdom "storefront/internal/domain/product"
	ruledom "storefront/internal/domain/upsellRule"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

var ErrInvalidJSON = errors.New("invalid json")

// ------------------------------
// Responses
// ------------------------------

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// WriteErr maps err with StatusFor and writes {"error": err.Error()}.
// 5xx bodies do not leak internal messages.
func WriteErr(w http.ResponseWriter, err error) int {
	code := StatusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		msg = "internal server error"
	}
	WriteError(w, code, msg)
	return code
}

// MethodNotAllowed writes 405 response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed")
}

// StatusFor maps usecase / domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, usecase.ErrIdentityRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ruledom.ErrNotFound), // includes ErrInactive
		errors.Is(err, cartdom.ErrNotFound),
		errors.Is(err, cartdom.ErrItemNotFound),
		errors.Is(err, productdom.ErrNotFound),
		errors.Is(err, mall.ErrNotFound):
		return http.StatusNotFound
	case isValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var validationErrs = []error{
	ErrInvalidJSON,
	usecase.ErrUpsellInvalidArgument,
	usecase.ErrCartInvalidArgument,
	ruledom.ErrInvalidID,
	ruledom.ErrInvalidShopID,
	ruledom.ErrInvalidRuleName,
	ruledom.ErrInvalidDescription,
	ruledom.ErrInvalidRuleType,
	ruledom.ErrInvalidPriority,
	ruledom.ErrInvalidDiscountType,
	ruledom.ErrInvalidDiscountValue,
	ruledom.ErrInvalidOfferedProducts,
	ruledom.ErrInvalidConditions,
	ruledom.ErrProductNotOwned,
	ruledom.ErrProductNotOffered,
	cartdom.ErrInvalidCart,
	cartdom.ErrInvalidItem,
	cartdom.ErrBothRulesOnLine,
}

func isValidation(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ------------------------------
// Requests
// ------------------------------

// DecodeJSON reads a JSON body into dst. Unknown fields are rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(ErrInvalidJSON, err)
	}
	return nil
}

// ParsePage reads ?page= and ?perPage=; invalid values fall back to defaults.
func ParsePage(r *http.Request) domcommon.Page {
	q := r.URL.Query()
	return domcommon.NormalizePage(domcommon.Page{
		Number:  parseIntDefault(q.Get("page"), 1),
		PerPage: parseIntDefault(q.Get("perPage"), domcommon.DefaultPerPage),
	})
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// NormalizeStrPtr trims a *string; empty/blank becomes nil.
func NormalizeStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
