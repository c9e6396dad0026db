// internal/adapters/in/http/middleware/cors.go
package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the console / mall frontends. origins defaults to "*" in config for dev;
// production lists the hosting domains.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Authorization", "Content-Type",
			HeaderSessionID, HeaderShopID, HeaderCustomerID,
		},
		MaxAge: 600,
	})
}
