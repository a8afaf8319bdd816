package dashboard

import (
	"html/template"
	"net/url"
	"strconv"

	"github.com/netmeter/usagedash/internal/usage"
	"github.com/netmeter/usagedash/internal/usage/svg"
)

// Placeholder notices shown in place of the client grid.
const (
	NoticeNoClients  = "No client data found."
	NoticeLoadFailed = "Error loading data."
)

// ClientCard is one client tile on the dashboard.
type ClientCard struct {
	ID              usage.ClientID
	Name            string
	TotalUsageGB    float64
	MonthlyLimitGB  float64
	UsagePercentage float64
	OverLimit       bool
	Href            string
	ChartID         string
	Chart           template.HTML
}

// OverviewViewModel is the dashboard page.
type OverviewViewModel struct {
	Cards  []ClientCard
	Notice string
}

// ChartCount reports how many cards carry a chart.
func (vm OverviewViewModel) ChartCount() int {
	n := 0
	for _, card := range vm.Cards {
		if card.Chart != "" {
			n++
		}
	}
	return n
}

// BuildOverview maps the client list to cards. charts is index-aligned with
// clients; a missing or empty entry leaves that card's chart area blank.
func BuildOverview(clients []usage.ClientSummary, charts []template.HTML) OverviewViewModel {
	if len(clients) == 0 {
		return OverviewViewModel{Notice: NoticeNoClients}
	}
	cards := make([]ClientCard, 0, len(clients))
	for i, client := range clients {
		card := ClientCard{
			ID:              client.ID,
			Name:            client.Name,
			TotalUsageGB:    client.TotalUsageGB,
			MonthlyLimitGB:  client.MonthlyLimitGB,
			UsagePercentage: client.UsagePercentage,
			OverLimit:       client.UsagePercentage > 100,
			Href:            DetailPath(client.ID),
			ChartID:         CardChartID(i, client.ID),
		}
		if i < len(charts) {
			card.Chart = charts[i]
		}
		cards = append(cards, card)
	}
	return OverviewViewModel{Cards: cards}
}

// OverviewFailed is the dashboard shown when the client list cannot load.
func OverviewFailed() OverviewViewModel {
	return OverviewViewModel{Notice: NoticeLoadFailed}
}

// CardChartID names the chart area of the card at index i. The index keeps it
// unique when two ids reduce to the same anchor.
func CardChartID(i int, id usage.ClientID) string {
	anchor := svg.AnchorID(id.String())
	if anchor == "" {
		anchor = "client"
	}
	return "chart-canvas-" + anchor + "-" + strconv.Itoa(i)
}

// DetailPath is the dashboard route of a client's detail page.
func DetailPath(id usage.ClientID) string {
	return "/client/" + url.PathEscape(id.String())
}
