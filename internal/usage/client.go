package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Fetch outcomes reported to a FetchObserver.
const (
	OutcomeOK         = "ok"
	OutcomeNetwork    = "network_error"
	OutcomeHTTPStatus = "http_error"
	OutcomeDecode     = "decode_error"
)

const resourceClients = "clients"

// FetchObserver receives one call per completed fetch.
type FetchObserver interface {
	ObserveFetch(resource, outcome string, elapsed time.Duration)
}

// Client reads usage data from the usage API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	observer   FetchObserver
	logger     *slog.Logger
}

// NewClient constructs a client for the API rooted at baseURL. A nil
// httpClient falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		validate:   validator.New(),
		logger:     slog.Default(),
	}
}

// WithObserver attaches a fetch observer.
func (c *Client) WithObserver(observer FetchObserver) *Client {
	c.observer = observer
	return c
}

// WithLogger sets the logger used to report dropped records.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Clients lists every client with its current-cycle summary. Records that
// fail validation are logged and left out.
func (c *Client) Clients(ctx context.Context) ([]ClientSummary, error) {
	var decoded []ClientSummary
	if err := c.getJSON(ctx, resourceClients, "/api/clients", &decoded, nil); err != nil {
		return nil, err
	}
	clients := make([]ClientSummary, 0, len(decoded))
	for i, client := range decoded {
		if err := c.validate.Struct(client); err != nil {
			c.logger.Warn("drop invalid client record",
				slog.Int("index", i),
				slog.String("client_id", client.ID.String()),
				slog.Any("error", err),
			)
			continue
		}
		clients = append(clients, client)
	}
	return clients, nil
}

// CurrentUsage loads the daily usage of the cycle in progress for a client.
func (c *Client) CurrentUsage(ctx context.Context, id ClientID) (CurrentCycleUsage, error) {
	var current CurrentCycleUsage
	err := c.getJSON(ctx, string(ResourceCurrent), clientPath(id, "usage/current"), &current, func() error {
		if err := c.validate.Struct(current); err != nil {
			return err
		}
		return checkSeries(current.Labels, current.Data)
	})
	if err != nil {
		return CurrentCycleUsage{}, err
	}
	return current, nil
}

// HistoricalUsage loads completed cycles for a client, oldest first.
func (c *Client) HistoricalUsage(ctx context.Context, id ClientID) ([]HistoricalCycle, error) {
	var cycles []HistoricalCycle
	err := c.getJSON(ctx, string(ResourceHistorical), clientPath(id, "usage/historical"), &cycles, func() error {
		for i := range cycles {
			if err := c.validate.Struct(cycles[i]); err != nil {
				return fmt.Errorf("cycle %d: %w", i, err)
			}
			if err := checkSeries(cycles[i].Labels, cycles[i].Data); err != nil {
				return fmt.Errorf("cycle %q: %w", cycles[i].CycleLabel, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cycles == nil {
		cycles = []HistoricalCycle{}
	}
	return cycles, nil
}

// Fetch loads the resource kind for a client. The result is a
// CurrentCycleUsage or a []HistoricalCycle.
func (c *Client) Fetch(ctx context.Context, id ClientID, resource Resource) (any, error) {
	switch resource {
	case ResourceCurrent:
		return c.CurrentUsage(ctx, id)
	case ResourceHistorical:
		return c.HistoricalUsage(ctx, id)
	default:
		return nil, fmt.Errorf("usage: unknown resource %q", resource)
	}
}

// Ping checks that the usage API answers the client list endpoint.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := c.baseURL + "/api/clients"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return networkError(endpoint, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(endpoint, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(endpoint, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, resource, path string, dest any, check func() error) (err error) {
	endpoint := c.baseURL + path
	start := time.Now()
	defer func() {
		c.observe(resource, err, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return networkError(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return statusError(endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(endpoint, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return decodeError(endpoint, err)
	}
	if check != nil {
		if err := check(); err != nil {
			return decodeError(endpoint, err)
		}
	}
	return nil
}

func (c *Client) observe(resource string, err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveFetch(resource, outcomeOf(err), elapsed)
}

func outcomeOf(err error) string {
	fe, ok := err.(*FetchError)
	switch {
	case err == nil:
		return OutcomeOK
	case !ok:
		return OutcomeNetwork
	case fe.Kind == ErrHTTPStatus:
		return OutcomeHTTPStatus
	case fe.Kind == ErrDecode:
		return OutcomeDecode
	default:
		return OutcomeNetwork
	}
}

func clientPath(id ClientID, suffix string) string {
	return "/api/client/" + url.PathEscape(string(id)) + "/" + suffix
}
