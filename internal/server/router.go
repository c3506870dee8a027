// Package server assembles the HTTP routing table and middleware chain.
package server

import (
	"net/http"
	"time"

	"github.com/diewo77/fakturera/internal/auth"
	"github.com/diewo77/fakturera/internal/config"
	"github.com/diewo77/fakturera/internal/handlers"
	"github.com/diewo77/fakturera/internal/httpx"
	"github.com/diewo77/fakturera/internal/obs"
	"github.com/diewo77/fakturera/internal/policy"
	"github.com/diewo77/fakturera/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// New wires services, handlers and middleware into the root http.Handler.
func New(db *gorm.DB, cfg *config.Config) http.Handler {
	gate := policy.DefaultGate()
	invoiceSvc := services.NewInvoiceService(db)
	productSvc := services.NewProductService(db)
	termsSvc := services.NewTermsService(db)
	statsSvc := services.NewStatsService(db)

	authHandler := handlers.NewAuthHandler(db, cfg)
	usersHandler := handlers.NewUsersHandler(db, cfg, gate, statsSvc)
	customersHandler := handlers.NewCustomersHandler(db, gate, statsSvc)
	productsHandler := handlers.NewProductsHandler(productSvc)
	invoicesHandler := handlers.NewInvoicesHandler(invoiceSvc)
	termsHandler := handlers.NewTermsHandler(termsSvc, gate)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Public endpoints.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/terms/{language}", termsHandler.GetByLanguage)

	// The price list is readable without a token (public catalog).
	mux.HandleFunc("GET /api/products", productsHandler.List)
	mux.HandleFunc("GET /api/products/{id}", productsHandler.Get)

	// Authenticated endpoints.
	protected := func(h http.HandlerFunc) http.Handler {
		return auth.RequireAuth(h)
	}

	mux.Handle("GET /api/auth/profile", protected(authHandler.Profile))
	mux.Handle("PUT /api/auth/profile", protected(authHandler.UpdateProfile))

	mux.Handle("GET /api/users", protected(usersHandler.List))
	mux.Handle("GET /api/users/{id}", protected(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", protected(usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", protected(usersHandler.Delete))
	mux.Handle("GET /api/users/{id}/stats", protected(usersHandler.Stats))

	mux.Handle("GET /api/customers", protected(customersHandler.List))
	mux.Handle("POST /api/customers", protected(customersHandler.Create))
	mux.Handle("GET /api/customers/{id}", protected(customersHandler.Get))
	mux.Handle("PUT /api/customers/{id}", protected(customersHandler.Update))
	mux.Handle("DELETE /api/customers/{id}", protected(customersHandler.Delete))
	mux.Handle("GET /api/customers/{id}/stats", protected(customersHandler.Stats))

	mux.Handle("POST /api/products", protected(productsHandler.Create))
	mux.Handle("POST /api/products/bulk", protected(productsHandler.BulkCreate))
	mux.Handle("PUT /api/products/{id}", protected(productsHandler.Update))
	mux.Handle("DELETE /api/products/{id}", protected(productsHandler.Delete))

	mux.Handle("GET /api/invoices", protected(invoicesHandler.List))
	mux.Handle("POST /api/invoices", protected(invoicesHandler.Create))
	mux.Handle("GET /api/invoices/{id}", protected(invoicesHandler.Get))
	mux.Handle("PUT /api/invoices/{id}", protected(invoicesHandler.Update))
	mux.Handle("DELETE /api/invoices/{id}", protected(invoicesHandler.Delete))
	mux.Handle("POST /api/invoices/{id}/send", protected(invoicesHandler.MarkSent))
	mux.Handle("POST /api/invoices/{id}/pay", protected(invoicesHandler.MarkPaid))

	mux.Handle("GET /api/terms", protected(termsHandler.List))
	mux.Handle("POST /api/terms", protected(termsHandler.Create))
	mux.Handle("PUT /api/terms/{id}", protected(termsHandler.Update))
	mux.Handle("DELETE /api/terms/{id}", protected(termsHandler.Delete))

	var handler http.Handler = mux
	handler = auth.Middleware(cfg.JWT.Secret)(handler)
	handler = requestLogger(handler)
	handler = obs.Middleware(handler)
	return handler
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
