package svg

// Theme holds the colours of a chart. Every renderer call receives one
// explicitly.
type Theme struct {
	AxisText      string
	Grid          string
	BarFill       string
	BarBorder     string
	TooltipFill   string
	TooltipText   string
	FontSize      int
	BarBorderSize float64
}

// DarkTheme is the dashboard palette.
func DarkTheme() Theme {
	return Theme{
		AxisText:      "#888888",
		Grid:          "#222222",
		BarFill:       "rgba(255,255,255,0.1)",
		BarBorder:     "#444444",
		TooltipFill:   "#000000",
		TooltipText:   "#ffffff",
		FontSize:      10,
		BarBorderSize: 1,
	}
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	ID          string
	Title       string
	Description string
	SeriesName  string
	Theme       Theme
	ShowAxes    bool
	ShowGrid    bool
	Tooltips    bool
	Padding     float64
	TickCount   int
}

// Interactive is the full chart: labelled axes, y gridlines and a tooltip
// per bar.
func Interactive(series string) BarOpts {
	return BarOpts{SeriesName: series, Theme: DarkTheme(), ShowAxes: true, ShowGrid: true, Tooltips: true}
}

// Miniature hides axes, gridlines and tooltips.
func Miniature(series string) BarOpts {
	return BarOpts{SeriesName: series, Theme: DarkTheme(), Padding: 4}
}

// Annotated keeps labelled, gridded axes and makes tooltips optional.
func Annotated(series string, tooltips bool) BarOpts {
	return BarOpts{SeriesName: series, Theme: DarkTheme(), ShowAxes: true, ShowGrid: true, Tooltips: tooltips}
}

// Defaults for usage charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	MiniWidth      = 320
	MiniHeight     = 80
	DefaultPadding = 28.0
	DefaultTicks   = 5
)

// DailyUsageSeries is the series name used for per-day usage bars.
const DailyUsageSeries = "Daily Usage (GB)"
