package console

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rileyhilliard/v2dash/internal/api"
)

var errEmptyResponse = errors.New("empty response")

// Placeholder texts for the account table.
const (
	NoAccountsMessage = "No accounts found"
	LoadErrorMessage  = "Error loading accounts"
	LoadingMessage    = "Loading accounts..."
	UnknownGaugeText  = "--"
)

// Gauge is one rendered resource value.
type Gauge struct {
	Label   string
	Text    string  // "12.3%", or UnknownGaugeText before the first fetch
	Percent float64 // raw value, for severity colouring
	Known   bool
	Detail  string // "4 cores", "2.00 GB / 8.00 GB"; empty when the backend omits it
}

// GaugeView is the rendered header.
type GaugeView struct {
	CPU       Gauge
	Memory    Gauge
	Disk      Gauge
	UpdatedAt time.Time
}

// All returns the gauges in display order.
func (v GaugeView) All() []Gauge {
	return []Gauge{v.CPU, v.Memory, v.Disk}
}

// RowKind tells data rows apart from placeholders.
type RowKind int

const (
	RowAccount RowKind = iota
	RowEmpty
	RowError
	RowLoading
)

// Row is one rendered table row. Placeholder rows only carry Message
// (and Detail for load errors).
type Row struct {
	Kind    RowKind
	Message string
	Detail  string

	ID        string
	Name      string
	AlterID   string
	Uplink    string
	Downlink  string
	Used      string
	Limit     string
	Highlight bool
	Ratio     float64 // used/limit, 0 for unlimited
}

// IsPlaceholder reports whether the row stands in for missing data.
func (r Row) IsPlaceholder() bool {
	return r.Kind != RowAccount
}

// TableView is the rendered account table.
type TableView struct {
	Rows      []Row
	UpdatedAt time.Time
}

// Placeholder returns the placeholder row when the table has no data.
func (t TableView) Placeholder() (Row, bool) {
	if len(t.Rows) == 1 && t.Rows[0].IsPlaceholder() {
		return t.Rows[0], true
	}
	return Row{}, false
}

// RenderGauges projects a metrics snapshot.
func RenderGauges(s MetricsSnapshot) GaugeView {
	v := GaugeView{
		CPU:       Gauge{Label: "CPU", Text: UnknownGaugeText},
		Memory:    Gauge{Label: "Memory", Text: UnknownGaugeText},
		Disk:      Gauge{Label: "Disk", Text: UnknownGaugeText},
		UpdatedAt: s.UpdatedAt,
	}
	if s.Stats == nil {
		return v
	}

	v.CPU = renderGauge("CPU", s.Stats.CPU)
	if s.Stats.CPU.Count > 0 {
		v.CPU.Detail = fmt.Sprintf("%d cores", s.Stats.CPU.Count)
	}
	v.Memory = renderGauge("Memory", s.Stats.Memory)
	v.Disk = renderGauge("Disk", s.Stats.Disk)
	return v
}

func renderGauge(label string, r api.Resource) Gauge {
	g := Gauge{
		Label:   label,
		Text:    FormatPercent(r.Percent),
		Percent: r.Percent,
		Known:   true,
	}
	if r.Total > 0 {
		g.Detail = FormatBytes(int64(r.Used)) + " / " + FormatBytes(int64(r.Total))
	}
	return g
}

// RenderTable projects an account snapshot. An empty list and a failed
// fetch each render as exactly one placeholder row.
func RenderTable(s AccountsSnapshot, highlightRatio float64) TableView {
	t := TableView{UpdatedAt: s.UpdatedAt}

	switch {
	case !s.Loaded:
		t.Rows = []Row{{Kind: RowLoading, Message: LoadingMessage}}
	case s.Err != nil:
		t.Rows = []Row{{Kind: RowError, Message: LoadErrorMessage, Detail: failureText(s.Err)}}
	case len(s.Accounts) == 0:
		t.Rows = []Row{{Kind: RowEmpty, Message: NoAccountsMessage}}
	default:
		t.Rows = make([]Row, 0, len(s.Accounts))
		for _, a := range s.Accounts {
			t.Rows = append(t.Rows, renderRow(a, highlightRatio))
		}
	}
	return t
}

func renderRow(a api.Account, highlightRatio float64) Row {
	ratio, _ := TrafficRatio(a.TrafficUsed, a.TrafficLimit)
	return Row{
		Kind:      RowAccount,
		ID:        a.ID,
		Name:      a.Name,
		AlterID:   strconv.Itoa(a.AlterID),
		Uplink:    FormatBytes(a.Uplink),
		Downlink:  FormatBytes(a.Downlink),
		Used:      FormatBytes(a.TrafficUsed),
		Limit:     FormatLimit(a.TrafficLimit),
		Highlight: Highlighted(a.TrafficUsed, a.TrafficLimit, highlightRatio),
		Ratio:     ratio,
	}
}

// failureText is the operator-facing text of an error: the server detail
// for gateway failures, the error string otherwise.
func failureText(err error) string {
	if err == nil {
		return ""
	}
	if f, ok := api.AsFailure(err); ok {
		return f.Message()
	}
	return err.Error()
}
