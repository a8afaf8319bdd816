package dashboard

import (
	"fmt"
	"html/template"

	"github.com/netmeter/usagedash/internal/usage"
	"github.com/netmeter/usagedash/internal/usage/svg"
)

// Messages substituted into detail sections that failed or have no data.
const (
	MessageCurrentFailed = "Could not load current cycle data."
	MessageHistoryFailed = "Could not load historical data."
	MessageNoHistory     = "No historical data available for this client."
)

// ChartFunc renders one chart for the surface id.
type ChartFunc func(id string, labels []string, values []float64) (template.HTML, error)

// CurrentSection is the current-cycle region. On failure CycleLabel and
// Forecast keep their zero values and Error carries the message.
type CurrentSection struct {
	CycleLabel  string
	Forecast    float64
	HasForecast bool
	Chart       template.HTML
	Error       string
}

// HistoryRow is one historical cycle, most recent first.
type HistoryRow struct {
	CycleLabel string
	TotalUsage float64
	ChartID    string
}

// HistorySection is the historical table and its charts.
type HistorySection struct {
	Rows   []HistoryRow
	Board  *svg.Board
	Notice string
	Error  string
}

// ReportAction is one PDF report button.
type ReportAction struct {
	Kind  usage.ReportKind
	Label string
}

// ReportSection wires the report download controls.
type ReportSection struct {
	Action        string
	DefaultCycles int
	Actions       []ReportAction
	CSVURL        string
}

// DetailViewModel is the client detail page.
type DetailViewModel struct {
	ClientID usage.ClientID
	Title    string
	Current  CurrentSection
	History  HistorySection
	Reports  ReportSection
}

// BuildDetail assembles the detail page from its independently loaded
// sections.
func BuildDetail(id usage.ClientID, title string, current CurrentSection, history HistorySection, links usage.ReportLinks) DetailViewModel {
	if title == "" {
		title = FallbackTitle(id)
	}
	return DetailViewModel{
		ClientID: id,
		Title:    title,
		Current:  current,
		History:  history,
		Reports:  BuildReports(id, links),
	}
}

// BuildCurrent fills the current-cycle region.
func BuildCurrent(current usage.CurrentCycleUsage, chart template.HTML) CurrentSection {
	section := CurrentSection{
		CycleLabel: current.CycleLabel,
		Chart:      chart,
	}
	if current.Forecast != nil {
		section.Forecast = *current.Forecast
		section.HasForecast = true
	}
	return section
}

// CurrentFailed is the current-cycle region after a failed load.
func CurrentFailed() CurrentSection {
	return CurrentSection{Error: MessageCurrentFailed}
}

// BuildHistory lays out cycles most recent first and binds one chart per
// cycle. Labels that reduce to the same anchor share a surface; the chart
// bound last wins.
func BuildHistory(cycles []usage.HistoricalCycle, render ChartFunc) (HistorySection, error) {
	if len(cycles) == 0 {
		return HistorySection{Notice: MessageNoHistory}, nil
	}
	ordered := usage.MostRecentFirst(cycles)
	section := HistorySection{
		Rows:  make([]HistoryRow, 0, len(ordered)),
		Board: svg.NewBoard(),
	}
	for _, cycle := range ordered {
		id := HistoryChartID(cycle.CycleLabel)
		chart, err := render(id, cycle.Labels, cycle.Data)
		if err != nil {
			return HistorySection{}, fmt.Errorf("render cycle %q: %w", cycle.CycleLabel, err)
		}
		section.Board.Bind(id, chart)
		section.Rows = append(section.Rows, HistoryRow{
			CycleLabel: cycle.CycleLabel,
			TotalUsage: cycle.TotalUsage,
			ChartID:    id,
		})
	}
	return section, nil
}

// HistoryFailed is the historical region after a failed load.
func HistoryFailed() HistorySection {
	return HistorySection{Error: MessageHistoryFailed}
}

// HistoryChartID names the surface of a historical cycle chart.
func HistoryChartID(cycleLabel string) string {
	return "chart-cycle-" + svg.AnchorID(cycleLabel)
}

// BuildReports wires the standard and upgrade PDF actions plus the CSV export.
func BuildReports(id usage.ClientID, links usage.ReportLinks) ReportSection {
	return ReportSection{
		Action:        DetailPath(id) + "/report",
		DefaultCycles: usage.DefaultReportCycles,
		Actions: []ReportAction{
			{Kind: usage.ReportStandard, Label: "Download Standard Report"},
			{Kind: usage.ReportUpgrade, Label: "Download Upgrade Report"},
		},
		CSVURL: links.CSV(id),
	}
}

// DetailTitle names the page after the client when the list contains it.
func DetailTitle(clients []usage.ClientSummary, id usage.ClientID) string {
	for _, client := range clients {
		if client.ID == id && client.Name != "" {
			return client.Name
		}
	}
	return FallbackTitle(id)
}

// FallbackTitle is used when the client name cannot be resolved.
func FallbackTitle(id usage.ClientID) string {
	return "Client " + id.String()
}
