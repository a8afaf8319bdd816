package usage

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultReportCycles is used when no cycle count is entered.
const DefaultReportCycles = 3

// ReportKind selects the PDF report template generated by the usage API.
type ReportKind string

const (
	ReportStandard ReportKind = "standard"
	ReportUpgrade  ReportKind = "upgrade"
)

// ErrInvalidReport marks report parameters that cannot be turned into a URL.
var ErrInvalidReport = errors.New("usage: invalid report parameters")

// ParseReportKind validates a report type tag.
func ParseReportKind(value string) (ReportKind, error) {
	switch kind := ReportKind(strings.ToLower(strings.TrimSpace(value))); kind {
	case ReportStandard, ReportUpgrade:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown report type %q", ErrInvalidReport, value)
	}
}

// ParseCycles reads a user-entered cycle count. Empty input yields
// DefaultReportCycles.
func ParseCycles(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultReportCycles, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: cycles must be a positive integer, got %q", ErrInvalidReport, value)
	}
	return n, nil
}

// ReportLinks builds browser navigation targets for report downloads.
type ReportLinks struct {
	BaseURL string
}

// PDF returns the report-generation URL for a client.
func (l ReportLinks) PDF(id ClientID, kind ReportKind, cycles int) string {
	q := url.Values{}
	q.Set("type", string(kind))
	q.Set("cycles", strconv.Itoa(cycles))
	return l.base() + clientPath(id, "report/pdf") + "?" + q.Encode()
}

// CSV returns the raw daily usage export URL for a client.
func (l ReportLinks) CSV(id ClientID) string {
	return l.base() + clientPath(id, "report/csv")
}

func (l ReportLinks) base() string {
	return strings.TrimRight(l.BaseURL, "/")
}
