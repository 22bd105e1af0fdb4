package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"crowdfund-escrow/internal/core/port"
)

// Options carries the transport settings of the handler.
type Options struct {
	// AuthSecret is the HMAC key used to verify bearer tokens.
	AuthSecret []byte
	// AuthIssuer, when set, must match the token issuer.
	AuthIssuer string
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string
}

// Handler contains dependencies and routes. It is an inbound adapter for HTTP.
// It holds a use case to execute business logic and a logger for structured
// logging. Routes are registered on a chi.Router.
type Handler struct {
	svc    port.CampaignUseCase
	logger *slog.Logger
	router chi.Router
}

// NewHandler creates a handler with all routes configured. Read-only routes
// are public; every route that changes state requires a bearer token whose
// subject is the calling account.
func NewHandler(svc port.CampaignUseCase, logger *slog.Logger, opts Options) *Handler {
	h := &Handler{svc: svc, logger: logger}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	auth := Authenticate(opts.AuthSecret, opts.AuthIssuer)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/campaigns", h.handleListCampaigns)
		r.Get("/campaigns/deployed/{index}", h.handleDeployedCampaign)
		r.Get("/accounts/{identity}/balance", h.handleAccountBalance)
		r.With(auth).Post("/campaigns", h.handleCreateCampaign)

		r.Route("/campaigns/{id}", func(r chi.Router) {
			r.Get("/", h.handleCampaignSummary)
			r.Get("/approvers/{identity}", h.handleIsApprover)
			r.Get("/requests", h.handleListRequests)
			r.Get("/requests/{index}", h.handleGetRequest)

			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/contributions", h.handleContribute)
				r.Post("/requests", h.handleCreateRequest)
				r.Post("/requests/{index}/approve", h.handleApproveRequest)
				r.Post("/requests/{index}/finalize", h.handleFinalizeRequest)
			})
		})
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}
