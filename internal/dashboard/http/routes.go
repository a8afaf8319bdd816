package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const reportRequestsPerMinute = 10

// MountRoutes registers the dashboard pages onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(reportRequestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/", h.handleDashboard)
	r.Get("/client/{clientID}", h.handleDetail)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/client/{clientID}/report", h.handleReport)
	})
}
