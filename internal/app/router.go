package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nimbus-crm/nimbus-crm/internal/leads"
	metricshttp "github.com/nimbus-crm/nimbus-crm/internal/metrics/http"
	"github.com/nimbus-crm/nimbus-crm/internal/observability"
	"github.com/nimbus-crm/nimbus-crm/internal/pipeline"
	"github.com/nimbus-crm/nimbus-crm/internal/users"
	"github.com/nimbus-crm/nimbus-crm/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	LeadsHandler    *leads.Handler
	PipelineHandler *pipeline.Handler
	MetricsHandler  *metricshttp.Handler
	UsersHandler    *users.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Nimbus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		if params.LeadsHandler != nil {
			api.Route("/leads", params.LeadsHandler.MountRoutes)
		}
		if params.PipelineHandler != nil {
			api.Route("/pipeline", params.PipelineHandler.MountRoutes)
		}
		if params.MetricsHandler != nil {
			api.Route("/metrics", params.MetricsHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			api.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
