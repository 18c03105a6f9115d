package usage

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/refurnish/internal/domain"
)

// Period is the budget window a report covers.
type Period string

// Report periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period name. Empty means PeriodDay.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: period must be %q or %q, got %q", domain.ErrInputValidation, PeriodDay, PeriodMonth, s)
	}
}

// Window is a snapshot of one vision token budget window.
type Window struct {
	Limit    int64 // 0 = unlimited
	Used     int64
	Start    time.Time
	ResetsAt time.Time
}

// Remaining returns tokens left, -1 when unlimited.
func (w Window) Remaining() int64 {
	if w.Limit == 0 {
		return -1
	}
	return max(0, w.Limit-w.Used)
}

// Exhausted reports whether a limited window is spent.
func (w Window) Exhausted() bool { return w.Limit > 0 && w.Used >= w.Limit }

// Report is a vision token usage report for one period.
type Report struct {
	period   Period
	provider string
	window   Window
}

// NewReport creates a usage report.
func NewReport(period Period, provider string, w Window) Report {
	return Report{period: period, provider: provider, window: w}
}

// Period returns the report period.
func (r Report) Period() Period { return r.period }

// Provider returns the vision provider the budget applies to.
func (r Report) Provider() string { return r.provider }

// Window returns the budget window snapshot.
func (r Report) Window() Window { return r.window }
