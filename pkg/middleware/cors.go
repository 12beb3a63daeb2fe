package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"taskboard-backend/pkg/config"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"}
)

// CORS builds the cross-origin policy from ALLOWED_ORIGINS, CORS_ALLOW_CREDENTIALS and CORS_MAX_AGE.
// Credentials are never sent with a wildcard origin.
func CORS(cfg *config.Config) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: corsMethods,
		AllowedHeaders: corsHeaders,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         int(cfg.CORSMaxAge.Seconds()),
	}
	if cfg.AllowsAnyOrigin() {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowCredentials = cfg.CORSAllowCredentials
	}
	return cors.Handler(opts)
}
