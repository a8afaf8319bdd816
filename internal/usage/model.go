package usage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ClientID is the opaque identifier the usage API assigns to a client. The API
// may send it as a JSON number or a JSON string; it is always carried as text.
type ClientID string

// UnmarshalJSON accepts both numeric and string identifiers.
func (id *ClientID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return fmt.Errorf("usage: client id is null")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ClientID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("usage: client id must be a number or string: %w", err)
	}
	*id = ClientID(n.String())
	return nil
}

// String returns the identifier text.
func (id ClientID) String() string {
	return string(id)
}

// ClientSummary is one row of the client list. A zero MonthlyLimitGB means
// no limit has been set.
type ClientSummary struct {
	ID              ClientID `json:"id" validate:"required"`
	Name            string   `json:"name" validate:"required"`
	TotalUsageGB    float64  `json:"total_usage_gb" validate:"gte=0"`
	MonthlyLimitGB  float64  `json:"monthly_limit_gb" validate:"gte=0"`
	UsagePercentage float64  `json:"usage_percentage" validate:"gte=0"`
}

// CurrentCycleUsage holds the daily usage of the billing cycle in progress.
type CurrentCycleUsage struct {
	CycleLabel string    `json:"cycle_label"`
	Labels     []string  `json:"labels"`
	Data       []float64 `json:"data"`
	Forecast   *float64  `json:"forecast,omitempty" validate:"omitempty,gte=0"`
}

// HistoricalCycle is a completed billing cycle.
type HistoricalCycle struct {
	CycleLabel string    `json:"cycle_label" validate:"required"`
	TotalUsage float64   `json:"total_usage" validate:"gte=0"`
	Labels     []string  `json:"labels"`
	Data       []float64 `json:"data"`
}

// Resource names the per-client usage datasets.
type Resource string

const (
	ResourceCurrent    Resource = "current"
	ResourceHistorical Resource = "historical"
)

// MostRecentFirst returns the cycles in reverse order. The input slice is left
// untouched so callers may keep using the chronological sequence.
func MostRecentFirst(cycles []HistoricalCycle) []HistoricalCycle {
	if cycles == nil {
		return nil
	}
	out := make([]HistoricalCycle, len(cycles))
	for i, cycle := range cycles {
		out[len(cycles)-1-i] = cycle
	}
	return out
}

func checkSeries(labels []string, data []float64) error {
	if len(labels) != len(data) {
		return fmt.Errorf("series has %d labels but %d values", len(labels), len(data))
	}
	return nil
}
