package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/procurement-agent/app"
	"github.com/upb/procurement-agent/handlers"
	appmiddleware "github.com/upb/procurement-agent/middleware"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()
	cfg := deps.Config

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(healthChecks(deps), deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	rules := handlers.NewRulesHandler(deps.Procurement, deps.Logger)
	vendors := handlers.NewVendorHandler(deps.Evaluator, deps.Logger)
	approvals := handlers.NewApprovalHandler(deps.Approvals, deps.Logger)

	// A nil *intent.Dispatcher must stay a nil interface
	var dispatcher handlers.MessageDispatcher
	if deps.Dispatcher != nil {
		dispatcher = deps.Dispatcher
	}
	orders := handlers.NewOrderHandler(deps.Procurement, dispatcher, deps.Logger)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sites/{site}/rules", func(r chi.Router) {
			r.Put("/", rules.HandlePutRules)
			r.Get("/", rules.HandleGetRules)
		})

		r.Route("/vendors", func(r chi.Router) {
			r.Get("/", vendors.HandleListVendors)
			r.Post("/evaluate", vendors.HandleEvaluate)
		})

		r.Post("/orders", orders.HandleCreateOrder)
		r.Post("/messages", orders.HandleMessage)

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/", approvals.HandleListApprovals)
			r.Get("/{id}", approvals.HandleGetApproval)

			// Resolution requires an approver
			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Use(deps.AuthMiddleware.RequireRole(cfg.Auth.ApproverRole))
				r.Post("/{id}/approve", approvals.HandleApprove)
				r.Post("/{id}/reject", approvals.HandleReject)
			})
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

func healthChecks(deps *app.Dependencies) map[string]handlers.HealthChecker {
	checks := make(map[string]handlers.HealthChecker)
	if deps.Repos.Documents != nil {
		checks["rule_store"] = deps.Repos.Documents
	}
	if deps.Repos.Approvals != nil {
		checks["approvals_store"] = deps.Repos.Approvals
	}
	return checks
}
