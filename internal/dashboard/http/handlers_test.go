package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netmeter/usagedash/internal/dashboard"
	"github.com/netmeter/usagedash/internal/usage"
	"github.com/netmeter/usagedash/internal/usage/svg"
	"github.com/netmeter/usagedash/internal/view"
)

var errStubUnavailable = errors.New("stub: usage api unavailable")

type stubUsageService struct {
	clients    []usage.ClientSummary
	clientsErr error
	current    map[usage.ClientID]usage.CurrentCycleUsage
	history    map[usage.ClientID][]usage.HistoricalCycle
	historyErr error

	mu        sync.Mutex
	requested []usage.ClientID
}

func (s *stubUsageService) record(id usage.ClientID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requested = append(s.requested, id)
}

func (s *stubUsageService) Clients(ctx context.Context) ([]usage.ClientSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, &usage.FetchError{Endpoint: "/api/clients", Kind: usage.ErrNetwork, Err: err}
	}
	return s.clients, s.clientsErr
}

func (s *stubUsageService) CurrentUsage(ctx context.Context, id usage.ClientID) (usage.CurrentCycleUsage, error) {
	s.record(id)
	if err := ctx.Err(); err != nil {
		return usage.CurrentCycleUsage{}, &usage.FetchError{Endpoint: "current", Kind: usage.ErrNetwork, Err: err}
	}
	current, ok := s.current[id]
	if !ok {
		return usage.CurrentCycleUsage{}, errStubUnavailable
	}
	return current, nil
}

func (s *stubUsageService) HistoricalUsage(ctx context.Context, id usage.ClientID) ([]usage.HistoricalCycle, error) {
	s.record(id)
	if err := ctx.Err(); err != nil {
		return nil, &usage.FetchError{Endpoint: "historical", Kind: usage.ErrNetwork, Err: err}
	}
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.history[id], nil
}

func newTestHandler(t *testing.T, service *stubUsageService, logger *slog.Logger) *Handler {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	handler := NewHandler(logger, service, templates, usage.ReportLinks{BaseURL: "http://api.test"})
	handler.renderID = func() string { return "test-render" }
	return handler
}

func mount(handler *Handler) http.Handler {
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func newTestRouter(t *testing.T, service *stubUsageService) http.Handler {
	t.Helper()
	return mount(newTestHandler(t, service, nil))
}

func captureLogs() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func serve(router http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func acme() usage.ClientSummary {
	return usage.ClientSummary{ID: "1", Name: "Acme", TotalUsageGB: 40, MonthlyLimitGB: 50, UsagePercentage: 80}
}

func twoDayCycle() usage.CurrentCycleUsage {
	return usage.CurrentCycleUsage{CycleLabel: "Mar 2024", Labels: []string{"d1", "d2"}, Data: []float64{1.5, 2}}
}

func TestDashboardEmptyListShowsPlaceholder(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{clients: []usage.ClientSummary{}})

	rr := serve(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Equal(t, 1, strings.Count(body, dashboard.NoticeNoClients))
	assert.NotContains(t, body, "<svg")
	assert.NotContains(t, body, "client-card")
}

func TestDashboardRendersClientCard(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{acme()},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"1": twoDayCycle()},
	}
	router := newTestRouter(t, service)

	rr := serve(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<h2>Acme</h2>")
	assert.Contains(t, body, "40 GB / 50 GB")
	assert.Contains(t, body, "width: 80.00%")
	assert.Contains(t, body, `href="/client/1"`)
	assert.Equal(t, 2, strings.Count(body, `<g class="bar">`))
	assert.NotContains(t, body, `class="tip"`, "miniature charts carry no tooltips")
	assert.NotContains(t, body, "over-limit")
}

func TestDashboardFlagsOverLimitClient(t *testing.T) {
	client := acme()
	client.TotalUsageGB = 60
	client.UsagePercentage = 120
	router := newTestRouter(t, &stubUsageService{
		clients: []usage.ClientSummary{client},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"1": twoDayCycle()},
	})

	body := serve(router, "/").Body.String()

	assert.Contains(t, body, "client-card over-limit")
	assert.Contains(t, body, "width: 120.00%")
}

func TestDashboardIsolatesPerClientFailures(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{
			acme(),
			{ID: "2", Name: "Globex", TotalUsageGB: 5, MonthlyLimitGB: 100, UsagePercentage: 5},
			{ID: "3", Name: "Initech", TotalUsageGB: 1, MonthlyLimitGB: 10, UsagePercentage: 10},
		},
		current: map[usage.ClientID]usage.CurrentCycleUsage{
			"1": twoDayCycle(),
			"3": {CycleLabel: "Mar 2024", Labels: []string{"d1", "d2", "d3"}, Data: []float64{1, 1, 1}},
		},
	}
	router := newTestRouter(t, service)

	rr := serve(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, name := range []string{"Acme", "Globex", "Initech"} {
		assert.Contains(t, body, "<h2>"+name+"</h2>")
	}
	assert.Contains(t, body, `id="chart-canvas-2-1"></div>`)
	assert.Contains(t, body, `id="chart-canvas-3-2-svg"`)
	assert.Equal(t, 5, strings.Count(body, `<g class="bar">`))
	assert.Equal(t, 2, strings.Count(body, "<svg"))
}

func TestDashboardListFailureRendersPlaceholder(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{clientsErr: errStubUnavailable})

	rr := serve(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), dashboard.NoticeLoadFailed)
	assert.NotContains(t, rr.Body.String(), "<svg")
}

func TestDetailRendersAllSections(t *testing.T) {
	forecast := 55.5
	current := twoDayCycle()
	current.Forecast = &forecast
	service := &stubUsageService{
		clients: []usage.ClientSummary{acme()},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"1": current},
		history: map[usage.ClientID][]usage.HistoricalCycle{"1": {
			{CycleLabel: "Jan 2024", TotalUsage: 30, Labels: []string{"d1"}, Data: []float64{30}},
			{CycleLabel: "Feb 2024", TotalUsage: 1234.5, Labels: []string{"d1", "d2"}, Data: []float64{1000, 234.5}},
		}},
	}
	router := newTestRouter(t, service)

	rr := serve(router, "/client/1")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<h1>Acme</h1>")
	assert.Contains(t, body, "Current Cycle: Mar 2024")
	assert.Contains(t, body, "Forecast: 55.5 GB")
	assert.Contains(t, body, "Usage: 1.50 GB")
	assert.Contains(t, body, "1,234.5 GB")
	assert.Contains(t, body, `id="chart-cycle-Feb2024"`)
	assert.Contains(t, body, `href="#chart-cycle-Jan2024"`)
	assert.Less(t, strings.Index(body, "Feb 2024"), strings.Index(body, "Jan 2024"))
	assert.Equal(t, 5, strings.Count(body, `<g class="bar">`))
	assert.Contains(t, body, `action="/client/1/report"`)
	assert.Contains(t, body, `value="standard"`)
	assert.Contains(t, body, `value="upgrade"`)
	assert.Contains(t, body, "http://api.test/api/client/1/report/csv")
}

func TestDetailCurrentFailureKeepsHistory(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{acme()},
		history: map[usage.ClientID][]usage.HistoricalCycle{"1": {
			{CycleLabel: "Jan 2024", TotalUsage: 10, Labels: []string{"d1"}, Data: []float64{10}},
			{CycleLabel: "Feb 2024", TotalUsage: 20, Labels: []string{"d1"}, Data: []float64{20}},
		}},
	}
	router := newTestRouter(t, service)

	rr := serve(router, "/client/1")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "Current Cycle:")
	assert.NotContains(t, body, "Forecast")
	assert.Contains(t, body, dashboard.MessageCurrentFailed)
	assert.Contains(t, body, "historical-charts-container")
	assert.Less(t, strings.Index(body, "Feb 2024"), strings.Index(body, "Jan 2024"))
}

func TestDetailWithoutForecastOrHistory(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{acme()},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"1": twoDayCycle()},
		history: map[usage.ClientID][]usage.HistoricalCycle{"1": {}},
	}
	router := newTestRouter(t, service)

	body := serve(router, "/client/1").Body.String()

	assert.Contains(t, body, "Forecast unavailable")
	assert.Contains(t, body, dashboard.MessageNoHistory)
	assert.NotContains(t, body, "history-table")
}

func TestDetailHistoryFailureShowsMessage(t *testing.T) {
	service := &stubUsageService{
		clients:    []usage.ClientSummary{acme()},
		current:    map[usage.ClientID]usage.CurrentCycleUsage{"1": twoDayCycle()},
		historyErr: errStubUnavailable,
	}
	router := newTestRouter(t, service)

	body := serve(router, "/client/1").Body.String()

	assert.Contains(t, body, dashboard.MessageHistoryFailed)
	assert.Contains(t, body, "Current Cycle: Mar 2024")
}

func TestDetailTitleFallsBackToID(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{clientsErr: errStubUnavailable})

	rr := serve(router, "/client/7")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<h1>Client 7</h1>")
}

func TestReportRedirectDefaultsCycles(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{})

	rr := serve(router, "/client/1/report?type=standard")

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "http://api.test/api/client/1/report/pdf?cycles=3&type=standard", rr.Header().Get("Location"))
}

func TestReportRedirectCarriesCycles(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{})

	rr := serve(router, "/client/1/report?type=upgrade&cycles=6")

	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "http://api.test/api/client/1/report/pdf?cycles=6&type=upgrade", rr.Header().Get("Location"))
}

func TestReportRejectsInvalidParameters(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{})

	for _, target := range []string{
		"/client/1/report?type=premium",
		"/client/1/report",
		"/client/1/report?type=standard&cycles=0",
		"/client/1/report?type=standard&cycles=abc",
	} {
		rr := serve(router, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"), target)
	}
}

func TestReportIsRateLimited(t *testing.T) {
	router := newTestRouter(t, &stubUsageService{})

	for i := 0; i < reportRequestsPerMinute; i++ {
		require.Equal(t, http.StatusSeeOther, serve(router, "/client/1/report?type=standard").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "/client/1/report?type=standard").Code)
}

func TestDashboardRenderFailureLeavesCardEmpty(t *testing.T) {
	logger, logs := captureLogs()
	handler := newTestHandler(t, &stubUsageService{
		clients: []usage.ClientSummary{acme()},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"1": twoDayCycle()},
	}, logger)
	handler.WithBarRenderer(func(width, height int, labels []string, values []float64, opts svg.BarOpts) (template.HTML, error) {
		return "", errors.New("viewport too small")
	})

	rr := serve(mount(handler), "/")

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "<h2>Acme</h2>")
	assert.Contains(t, body, `id="chart-canvas-1-0"></div>`)
	assert.NotContains(t, body, "<svg")
	assert.Contains(t, logs.String(), "render mini chart")
}

func TestCardChartIDsStayDistinct(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{
			{ID: "a-1", Name: "Dash", TotalUsageGB: 1, MonthlyLimitGB: 10, UsagePercentage: 10},
			{ID: "a1", Name: "Plain", TotalUsageGB: 1, MonthlyLimitGB: 10, UsagePercentage: 10},
		},
		current: map[usage.ClientID]usage.CurrentCycleUsage{
			"a-1": twoDayCycle(),
			"a1":  twoDayCycle(),
		},
	}

	body := serve(newTestRouter(t, service), "/").Body.String()

	assert.Contains(t, body, `id="chart-canvas-a1-0"`)
	assert.Contains(t, body, `id="chart-canvas-a1-1"`)
	assert.Equal(t, 1, strings.Count(body, `id="chart-canvas-a1-0-svg"`))
	assert.Equal(t, 1, strings.Count(body, `id="chart-canvas-a1-1-svg"`))
}

func TestEscapedClientIDRoundTrips(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{{ID: "a/b", Name: "Slash Co", TotalUsageGB: 1, MonthlyLimitGB: 10, UsagePercentage: 10}},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"a/b": twoDayCycle()},
		history: map[usage.ClientID][]usage.HistoricalCycle{"a/b": {}},
	}
	router := newTestRouter(t, service)

	dashboardBody := serve(router, "/").Body.String()
	require.Contains(t, dashboardBody, `href="/client/a%2Fb"`)

	rr := serve(router, "/client/a%2Fb")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<h1>Slash Co</h1>")
	assert.Contains(t, rr.Body.String(), "Current Cycle: Mar 2024")
	for _, id := range service.requested {
		assert.Equal(t, usage.ClientID("a/b"), id)
	}

	report := serve(router, "/client/a%2Fb/report?type=standard")
	require.Equal(t, http.StatusSeeOther, report.Code)
	assert.Equal(t, "http://api.test/api/client/a%2Fb/report/pdf?cycles=3&type=standard", report.Header().Get("Location"))
}

func TestPercentInClientIDIsNotDecodedTwice(t *testing.T) {
	service := &stubUsageService{
		clients: []usage.ClientSummary{{ID: "50%", Name: "Half", TotalUsageGB: 1, MonthlyLimitGB: 10, UsagePercentage: 10}},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"50%": twoDayCycle()},
	}

	rr := serve(newTestRouter(t, service), "/client/50%25")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<h1>Half</h1>")
}

func TestUndecodableClientIDIsRejected(t *testing.T) {
	handler := newTestHandler(t, &stubUsageService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/client/x", nil)
	req.URL.RawPath = "/client/%zz"
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("clientID", "%zz")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.handleDetail(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestCancelledRequestIsNotLoggedAsError(t *testing.T) {
	logger, logs := captureLogs()
	service := &stubUsageService{
		clients: []usage.ClientSummary{acme()},
		current: map[usage.ClientID]usage.CurrentCycleUsage{"1": twoDayCycle()},
	}
	router := mount(newTestHandler(t, service, logger))

	for _, target := range []string{"/", "/client/1"} {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Contains(t, logs.String(), "abandoned")
	assert.NotContains(t, logs.String(), "level=ERROR")
}
