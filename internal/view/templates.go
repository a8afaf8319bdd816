package view

import (
	"fmt"
	"html/template"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/netmeter/usagedash/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CurrentPath string
	Data        any
}

var printer = message.NewPrinter(language.English)

// FormatGB renders a usage figure with thousands grouping and at most two
// decimals, e.g. 1234.5 -> "1,234.5".
func FormatGB(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

// ProgressStyle is the inline width of a usage bar. The declared percentage is
// used as is, so over-limit clients overflow the track.
func ProgressStyle(pct float64) template.CSS {
	if pct < 0 {
		pct = 0
	}
	return template.CSS(fmt.Sprintf("width: %.2f%%;", pct))
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"gb":            FormatGB,
		"progressStyle": ProgressStyle,
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}
