package dashboardhttp

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/netmeter/usagedash/internal/dashboard"
	"github.com/netmeter/usagedash/internal/platform/httpx"
	"github.com/netmeter/usagedash/internal/usage"
	"github.com/netmeter/usagedash/internal/usage/svg"
	"github.com/netmeter/usagedash/internal/view"
)

// UsageService is the usage API contract the pages read from.
type UsageService interface {
	Clients(ctx context.Context) ([]usage.ClientSummary, error)
	CurrentUsage(ctx context.Context, id usage.ClientID) (usage.CurrentCycleUsage, error)
	HistoricalUsage(ctx context.Context, id usage.ClientID) ([]usage.HistoricalCycle, error)
}

// BarRenderer draws one bar chart.
type BarRenderer func(width, height int, labels []string, values []float64, opts svg.BarOpts) (template.HTML, error)

// Handler serves the dashboard, client detail and report pages.
type Handler struct {
	logger    *slog.Logger
	service   UsageService
	templates *view.Engine
	reports   usage.ReportLinks
	bar       BarRenderer
	renderID  func() string
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, service UsageService, templates *view.Engine, reports usage.ReportLinks) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		reports:   reports,
		bar:       svg.Bars,
		renderID:  uuid.NewString,
	}
}

// WithBarRenderer overrides the chart renderer for testing.
func (h *Handler) WithBarRenderer(fn BarRenderer) {
	if fn != nil {
		h.bar = fn
	}
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.renderLogger("dashboard")

	var vm dashboard.OverviewViewModel
	clients, err := h.service.Clients(ctx)
	if err != nil {
		h.logFetchError(log, "load clients", err)
		vm = dashboard.OverviewFailed()
	} else {
		vm = dashboard.BuildOverview(clients, h.loadMiniCharts(ctx, log, clients))
	}

	h.render(w, log, "pages/dashboard.html", view.TemplateData{
		Title:       "Client Usage",
		CurrentPath: r.URL.Path,
		Data:        vm,
	})
}

// loadMiniCharts fetches each client's current cycle concurrently. A client
// whose fetch or render fails gets an empty slot; the others are unaffected.
func (h *Handler) loadMiniCharts(ctx context.Context, log *slog.Logger, clients []usage.ClientSummary) []template.HTML {
	charts := make([]template.HTML, len(clients))
	var g errgroup.Group
	for i, client := range clients {
		g.Go(func() error {
			clientLog := log.With(slog.String("client_id", client.ID.String()))
			current, err := h.service.CurrentUsage(ctx, client.ID)
			if err != nil {
				h.logFetchError(clientLog, "load current usage", err)
				return nil
			}
			opts := svg.Miniature(svg.DailyUsageSeries)
			opts.ID = dashboard.CardChartID(i, client.ID) + "-svg"
			opts.Title = client.Name + " current cycle"
			chart, err := h.bar(svg.MiniWidth, svg.MiniHeight, current.Labels, current.Data, opts)
			if err != nil {
				clientLog.Error("render mini chart", slog.Any("error", err))
				return nil
			}
			charts[i] = chart
			return nil
		})
	}
	_ = g.Wait()
	return charts
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := clientIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	log := h.renderLogger("client_detail").With(slog.String("client_id", id.String()))

	var (
		current dashboard.CurrentSection
		history dashboard.HistorySection
		title   string
		g       errgroup.Group
	)
	g.Go(func() error {
		current = h.loadCurrent(ctx, log, id)
		return nil
	})
	g.Go(func() error {
		history = h.loadHistory(ctx, log, id)
		return nil
	})
	g.Go(func() error {
		title = h.loadTitle(ctx, log, id)
		return nil
	})
	_ = g.Wait()

	vm := dashboard.BuildDetail(id, title, current, history, h.reports)
	h.render(w, log, "pages/client_detail.html", view.TemplateData{
		Title:       vm.Title,
		CurrentPath: r.URL.Path,
		Data:        vm,
	})
}

func (h *Handler) loadCurrent(ctx context.Context, log *slog.Logger, id usage.ClientID) dashboard.CurrentSection {
	current, err := h.service.CurrentUsage(ctx, id)
	if err != nil {
		h.logFetchError(log, "load current usage", err)
		return dashboard.CurrentFailed()
	}
	opts := svg.Interactive(svg.DailyUsageSeries)
	opts.ID = "current-usage-chart"
	opts.Title = "Current cycle daily usage"
	chart, err := h.bar(svg.DefaultWidth, svg.DefaultHeight, current.Labels, current.Data, opts)
	if err != nil {
		log.Error("render current chart", slog.Any("error", err))
		return dashboard.CurrentFailed()
	}
	return dashboard.BuildCurrent(current, chart)
}

func (h *Handler) loadHistory(ctx context.Context, log *slog.Logger, id usage.ClientID) dashboard.HistorySection {
	cycles, err := h.service.HistoricalUsage(ctx, id)
	if err != nil {
		h.logFetchError(log, "load historical usage", err)
		return dashboard.HistoryFailed()
	}
	section, err := dashboard.BuildHistory(cycles, func(chartID string, labels []string, values []float64) (template.HTML, error) {
		opts := svg.Annotated(svg.DailyUsageSeries, true)
		opts.ID = chartID + "-svg"
		return h.bar(svg.DefaultWidth, svg.DefaultHeight, labels, values, opts)
	})
	if err != nil {
		log.Error("render historical charts", slog.Any("error", err))
		return dashboard.HistoryFailed()
	}
	return section
}

func (h *Handler) loadTitle(ctx context.Context, log *slog.Logger, id usage.ClientID) string {
	clients, err := h.service.Clients(ctx)
	if err != nil {
		h.logFetchError(log, "load client name", err)
		return dashboard.FallbackTitle(id)
	}
	return dashboard.DetailTitle(clients, id)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := clientIDParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	query := r.URL.Query()
	kind, err := usage.ParseReportKind(query.Get("type"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	cycles, err := usage.ParseCycles(query.Get("cycles"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	http.Redirect(w, r, h.reports.PDF(id, kind, cycles), http.StatusSeeOther)
}

// clientIDParam reads the {clientID} route parameter. chi matches against the
// escaped path when the request has one, so the segment is decoded here.
func clientIDParam(r *http.Request) (usage.ClientID, error) {
	raw := chi.URLParam(r, "clientID")
	if r.URL.RawPath == "" {
		return usage.ClientID(raw), nil
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: client id %q: %w", httpx.ErrValidation, raw, err)
	}
	return usage.ClientID(decoded), nil
}

func (h *Handler) render(w http.ResponseWriter, log *slog.Logger, name string, data view.TemplateData) {
	if err := h.templates.Render(w, name, data); err != nil {
		log.Error("render template", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) renderLogger(page string) *slog.Logger {
	return h.logger.With(slog.String("page", page), slog.String("render_id", h.renderID()))
}

// logFetchError reports a failed usage API call. A cancelled request means the
// viewer left the page, so nothing is reported as failed.
func (h *Handler) logFetchError(log *slog.Logger, msg string, err error) {
	if errors.Is(err, context.Canceled) {
		log.Debug(msg+" abandoned", slog.Any("error", err))
		return
	}
	log.Error(msg, slog.Any("error", err))
}
