package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dipta-sdd/campaignbay-sub001/internal/service"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/health"
	"github.com/dipta-sdd/campaignbay-sub001/pkg/middleware"
)

// NewRouter creates a chi router with all campaign service routes registered.
func NewRouter(
	campaignService *service.CampaignService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("campaignbay"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	campaignHandler := NewCampaignHandler(campaignService, logger)

	r.Route("/api/v1/campaigns", func(r chi.Router) {
		r.Post("/", campaignHandler.CreateCampaign)
		r.Get("/", campaignHandler.ListCampaigns)

		r.Get("/{id}", campaignHandler.GetCampaign)
		r.Put("/{id}", campaignHandler.UpdateCampaign)
		r.Patch("/{id}", campaignHandler.PatchCampaign)
		r.Delete("/{id}", campaignHandler.DeleteCampaign)
		r.Post("/{id}/status", campaignHandler.SetCampaignStatus)
		r.Post("/{id}/increment-usage", campaignHandler.IncrementUsage)
		r.Get("/{id}/audit", campaignHandler.GetAuditTrail)
	})

	r.Route("/api/v1/pricing", func(r chi.Router) {
		r.Post("/resolve", campaignHandler.ResolvePrice)
	})

	return r
}
