package httpapi

import (
	"net/http"

	"eco_gateway/internal/auth"
	"eco_gateway/internal/billing"
	"eco_gateway/internal/carbon"
	"eco_gateway/internal/insights"
	"eco_gateway/internal/logging"
	"eco_gateway/internal/middleware"
	"eco_gateway/internal/models"
	"eco_gateway/internal/providers"
	"eco_gateway/internal/ratelimit"
	"eco_gateway/internal/utils"
)

// ProviderResolver maps "<provider>:<model>" to a provider and the bare model id.
type ProviderResolver interface {
	Resolve(model string) (providers.Provider, string, error)
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Catalog   models.Catalog
	Providers ProviderResolver
	Estimator *carbon.Estimator

	// EventLogPath is re-read on every insights request.
	EventLogPath    string
	AnalyzerOptions []insights.Option

	// APIKeys protects /chat when non-nil.
	APIKeys auth.APIKeyStore
	// JWTSecret protects /insights and enables /auth/token when non-empty.
	JWTSecret []byte

	RateLimit          ratelimit.Limiter
	RateLimitPerMinute int
	Billing            billing.Service

	// RequestLogger records every request when non-nil.
	RequestLogger *logging.RequestLogger

	logger *utils.Logger
}

// NewRouter creates the HTTP handler with all routes and middleware wired up
func NewRouter(deps *Dependencies) http.Handler {
	if deps.logger == nil {
		deps.logger = utils.NewLogger("httpapi")
	}
	if deps.Billing == nil {
		deps.Billing = billing.NewNoopService()
	}
	if deps.RateLimit == nil {
		deps.RateLimit = ratelimit.NewNoopLimiter()
	}
	if deps.Catalog == nil {
		deps.Catalog = models.DefaultCatalog()
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps)

	var handler http.Handler = mux
	if deps.RequestLogger != nil {
		handler = deps.RequestLogger.Middleware(handler)
	}
	handler = middleware.CORS(handler)
	return middleware.RequestID(handler)
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies) {
	// Public endpoints
	mux.HandleFunc("GET /health", deps.handleHealth)
	mux.HandleFunc("GET /models", deps.handleModels)
	mux.HandleFunc("POST /calculate_footprint", deps.handleFootprint)

	// Chat - API key (when configured), then per-caller rate limit
	var chat http.Handler = http.HandlerFunc(deps.handleChat)
	chat = middleware.RateLimitMiddleware(deps.RateLimit, deps.RateLimitPerMinute, middleware.CallerKey)(chat)
	if deps.APIKeys != nil {
		chat = middleware.APIKeyMiddleware(deps.APIKeys)(chat)
	}
	mux.Handle("POST /chat", chat)

	// Token exchange needs both a key store and a signing secret
	if deps.APIKeys != nil && len(deps.JWTSecret) > 0 {
		mux.HandleFunc("POST /auth/token", auth.AuthHandler(deps.APIKeys, deps.JWTSecret))
	}

	protect := func(h http.HandlerFunc) http.Handler {
		if len(deps.JWTSecret) == 0 {
			return h
		}
		return middleware.JWTMiddleware(deps.JWTSecret)(h)
	}
	mux.Handle("GET /insights/overview", protect(deps.insights(overviewView)))
	mux.Handle("GET /insights/timeline", protect(deps.insights(timelineView)))
	mux.Handle("GET /insights/models", protect(deps.insights(modelsView)))
	mux.Handle("GET /insights/heatmap", protect(deps.insights(heatmapView)))
	mux.Handle("GET /insights/equivalents", protect(deps.insights(equivalentsView)))
	mux.Handle("GET /insights/recommendations", protect(deps.insights(recommendationsView)))
	mux.Handle("GET /insights/report", protect(deps.insights(reportView)))
}

type healthResponse struct {
	Status          string `json:"status"`
	ModelsSupported int    `json:"models_supported"`
}

func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.RespondWithJSON(w, http.StatusOK, healthResponse{Status: "ok", ModelsSupported: len(d.Catalog)})
}

func (d *Dependencies) handleModels(w http.ResponseWriter, r *http.Request) {
	_ = utils.RespondWithJSON(w, http.StatusOK, d.Catalog.Enabled())
}
