// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	consoleHandler "storefront/internal/adapters/in/http/console/handler"
	"storefront/internal/adapters/in/http/handlers/common"
	mallHandler "storefront/internal/adapters/in/http/mall/handler"
	"storefront/internal/adapters/in/http/middleware"
)

// RouterDeps collects the handlers and middleware injected from the container.
type RouterDeps struct {
	UpsellRules  *consoleHandler.UpsellRuleHandler
	CartUpsell   *mallHandler.CartUpsellHandler
	PublicUpsell *mallHandler.UpsellPublicHandler

	OwnerAuth       *middleware.OwnerAuth
	ShopperIdentity *middleware.ShopperIdentity

	CORSAllowedOrigins []string
	Logger             *zap.Logger
}

// NewRouter builds the HTTP surface.
//
//	/healthz
//	/console/upsell-rules/...           shop owner (OwnerAuth)
//	/mall/cart/...                      shopper (ShopperIdentity)
//	/mall/shops/{shopId}/upsell-rules   public
//	/mall/upsell-rules/{ruleId}         public
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	// CORS は Recover の外側（panic 時もヘッダを付ける）
	r.Use(middleware.CORS(deps.CORSAllowedOrigins))
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.WriteError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.MethodNotAllowed(w)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.UpsellRules != nil && deps.OwnerAuth != nil {
		r.Route("/console/upsell-rules", func(r chi.Router) {
			r.Use(deps.OwnerAuth.Handler)
			deps.UpsellRules.Routes(r)
		})
	} else {
		log.Warn("console upsell routes not registered")
	}

	r.Route("/mall", func(r chi.Router) {
		if deps.CartUpsell != nil && deps.ShopperIdentity != nil {
			r.Route("/cart", func(r chi.Router) {
				r.Use(deps.ShopperIdentity.Handler)
				deps.CartUpsell.Routes(r)
			})
		} else {
			log.Warn("mall cart routes not registered")
		}

		if deps.PublicUpsell != nil {
			r.Get("/shops/{shopId}/upsell-rules", deps.PublicUpsell.List)
			r.Get("/shops/{shopId}/upsell-rules/{ruleId}", deps.PublicUpsell.Get)
			r.Get("/upsell-rules/{ruleId}", deps.PublicUpsell.Get)
		}
	})

	return r
}
