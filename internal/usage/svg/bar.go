package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

const (
	tooltipWidth  = 104.0
	tooltipHeight = 34.0
)

// Bars renders a single-series vertical bar chart. An empty series yields an
// empty chart frame rather than an error.
func Bars(width, height int, labels []string, values []float64, opts BarOpts) (template.HTML, error) {
	if len(labels) != len(values) {
		return "", fmt.Errorf("svg: labels length %d must match values length %d", len(labels), len(values))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	theme := opts.Theme
	if theme == (Theme{}) {
		theme = DarkTheme()
	}
	if theme.FontSize <= 0 {
		theme.FontSize = 10
	}

	left := padding
	bottomPad := padding
	if opts.ShowAxes {
		left = padding + 16
		bottomPad = padding + 4
	}
	chartWidth := float64(width) - left - padding
	chartHeight := float64(height) - padding - bottomPad
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if almostEqual(maxVal, 0) {
		maxVal = 1
	}
	scale := chartHeight / maxVal
	top := padding
	baseline := top + chartHeight

	base := opts.ID
	if base == "" {
		base = opts.Title
	}
	titleID := makeID(base, "bar-title")
	descID := makeID(base, "bar-desc")
	series := fallback(opts.SeriesName, "Usage")

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" class=\"usage-chart\" viewBox=\"0 0 %d %d\" preserveAspectRatio=\"none\" role=\"img\" aria-labelledby=\"%s %s\"", width, height, titleID, descID))
	if opts.ID != "" {
		b.WriteString(fmt.Sprintf(" id=\"%s\"", template.HTMLEscapeString(opts.ID)))
	}
	b.WriteString(">")
	b.WriteString(fmt.Sprintf("<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(fallback(opts.Title, series))))
	b.WriteString(fmt.Sprintf("<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(fallback(opts.Description, fmt.Sprintf("%d bars", len(values))))))

	if opts.ShowGrid {
		for i := 0; i <= tickCount; i++ {
			ratio := float64(i) / float64(tickCount)
			y := baseline - ratio*chartHeight
			b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\" aria-hidden=\"true\"></line>", left, y, left+chartWidth, y, theme.Grid))
		}
	}

	if opts.ShowAxes {
		for i := 0; i <= tickCount; i++ {
			ratio := float64(i) / float64(tickCount)
			y := baseline - ratio*chartHeight
			b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"%d\" text-anchor=\"end\">%s</text>", left-6, y+4, theme.AxisText, theme.FontSize, template.HTMLEscapeString(formatTick(maxVal*ratio))))
		}
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"1\"></line>", left, baseline, left+chartWidth, baseline, theme.BarBorder))
	}

	if len(values) == 0 {
		b.WriteString("</svg>")
		return template.HTML(b.String()), nil
	}

	slot := chartWidth / float64(len(values))
	barWidth := slot * 0.7
	labelEvery := labelStride(len(labels), chartWidth)

	for i, value := range values {
		x := left + float64(i)*slot + (slot-barWidth)/2
		barHeight := math.Max(value, 0) * scale
		y := baseline - barHeight
		label := labels[i]

		b.WriteString("<g class=\"bar\">")
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\" stroke=\"%s\" stroke-width=\"%.1f\" aria-label=\"%s %s\"></rect>",
			x, y, barWidth, barHeight, theme.BarFill, theme.BarBorder, theme.BarBorderSize,
			template.HTMLEscapeString(series), template.HTMLEscapeString(label)))
		if opts.Tooltips {
			writeTooltip(&b, theme, x+barWidth/2, y, float64(width), label, value)
		}
		b.WriteString("</g>")

		if opts.ShowAxes && i%labelEvery == 0 {
			b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"%d\" text-anchor=\"middle\">%s</text>", x+barWidth/2, baseline+14, theme.AxisText, theme.FontSize, template.HTMLEscapeString(label)))
		}
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// TooltipText is the tooltip body for one bar.
func TooltipText(value float64) string {
	return fmt.Sprintf("Usage: %.2f GB", value)
}

func writeTooltip(b *strings.Builder, theme Theme, centerX, barTop, viewWidth float64, label string, value float64) {
	x := centerX - tooltipWidth/2
	if x < 0 {
		x = 0
	}
	if x+tooltipWidth > viewWidth {
		x = viewWidth - tooltipWidth
	}
	y := barTop - tooltipHeight - 4
	if y < 0 {
		y = 0
	}
	b.WriteString("<g class=\"tip\" visibility=\"hidden\" pointer-events=\"none\">")
	b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"4\" fill=\"%s\"></rect>", x, y, tooltipWidth, tooltipHeight, theme.TooltipFill))
	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"%d\" font-weight=\"bold\">%s</text>", x+6, y+13, theme.TooltipText, theme.FontSize, template.HTMLEscapeString(label)))
	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"%d\">%s</text>", x+6, y+27, theme.TooltipText, theme.FontSize, template.HTMLEscapeString(TooltipText(value))))
	b.WriteString("</g>")
}

// labelStride thins x labels so they do not overlap on long cycles.
func labelStride(n int, width float64) int {
	const minLabelSpacing = 36.0
	if n == 0 {
		return 1
	}
	stride := int(math.Ceil(minLabelSpacing * float64(n) / width))
	if stride < 1 {
		return 1
	}
	return stride
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fP", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fT", v/1_000)
	default:
		if almostEqual(v, math.Round(v)) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.1f", v)
	}
}
