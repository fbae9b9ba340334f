package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/zaloga/internal/idempotency"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/pricing"
)

// Options configures the API router.
type Options struct {
	DB        *sql.DB
	JWTSecret string
	// Policy is the pricing policy used until one is stored in settings.
	Policy     pricing.Policy
	SampleSize int
	Guard      idempotency.Guard
	Metrics    *metrics.Metrics
	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(opts Options) http.Handler {
	db := opts.DB
	mux := http.NewServeMux()

	policy := &PolicySource{DB: db, Defaults: opts.Policy}
	authHandler := &AuthHandler{DB: db, JWTSecret: opts.JWTSecret}
	productsHandler := &ProductsHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Policy: policy}
	settingsHandler := &SettingsHandler{Policy: policy}
	repricingHandler := &RepricingHandler{DB: db, Policy: policy, SampleSize: opts.SampleSize, Metrics: opts.Metrics}
	shipmentsHandler := &ShipmentsHandler{DB: db, Guard: opts.Guard, Metrics: opts.Metrics}

	authMW := AuthMiddleware(opts.JWTSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireOperator := RequireRole(model.RoleOperator)

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", health(db))
	if opts.MetricsPath != "" {
		mux.Handle("GET "+opts.MetricsPath, opts.Metrics.Handler())
	}

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Catalog: read (all roles), write (admin).
	mux.Handle("GET /api/products", authMW(http.HandlerFunc(productsHandler.List)))
	mux.Handle("POST /api/products", authMW(requireAdmin(http.HandlerFunc(productsHandler.Create))))

	// Pricing policy: read (all roles), write (admin).
	mux.Handle("GET /api/settings/pricing", authMW(http.HandlerFunc(settingsHandler.GetPricing)))
	mux.Handle("PUT /api/settings/pricing", authMW(requireAdmin(http.HandlerFunc(settingsHandler.PutPricing))))

	// Items: read (all roles), write (operator+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireOperator(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("GET /api/items/{id}/price", authMW(http.HandlerFunc(itemsHandler.Price)))
	mux.Handle("PUT /api/items/{id}/pricing", authMW(requireOperator(http.HandlerFunc(itemsHandler.SetPricing))))
	mux.Handle("PUT /api/items/{id}/snapshot", authMW(requireOperator(http.HandlerFunc(itemsHandler.SetSnapshot))))

	// Bulk repricing (operator+). Preview is read-only but shares the gate.
	mux.Handle("POST /api/repricing/preview", authMW(requireOperator(http.HandlerFunc(repricingHandler.Preview))))
	mux.Handle("POST /api/repricing/apply", authMW(requireOperator(http.HandlerFunc(repricingHandler.Apply))))

	// Shipments: read (all roles), write (operator+).
	mux.Handle("GET /api/shipments", authMW(http.HandlerFunc(shipmentsHandler.List)))
	mux.Handle("POST /api/shipments", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.Create))))
	mux.Handle("GET /api/shipments/{id}", authMW(http.HandlerFunc(shipmentsHandler.Get)))
	mux.Handle("PUT /api/shipments/{id}", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.Update))))
	mux.Handle("DELETE /api/shipments/{id}", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.Delete))))
	mux.Handle("POST /api/shipments/{id}/items", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.AddItems))))
	mux.Handle("DELETE /api/shipments/{id}/items/{itemID}", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.RemoveItem))))
	mux.Handle("POST /api/shipments/{id}/ship", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.Ship))))
	mux.Handle("POST /api/shipments/{id}/receive", authMW(requireOperator(http.HandlerFunc(shipmentsHandler.Receive))))

	return RequestIDMiddleware(LoggingMiddleware(opts.Metrics)(mux))
}

// health reports whether the database answers.
func health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
