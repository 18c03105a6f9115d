package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/refurnish/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	provider string
	br       BudgetReader
	now      func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(provider string, br BudgetReader) *Service {
	return &Service{provider: provider, br: br, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	if s.br != nil {
		if period == domusage.PeriodMonth {
			return domusage.NewReport(period, s.provider, s.br.Monthly())
		}
		return domusage.NewReport(period, s.provider, s.br.Daily())
	}

	// Unlimited: nothing is tracked, only the calendar window is reported.
	now := s.now()
	var w domusage.Window
	if period == domusage.PeriodMonth {
		w.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		w.ResetsAt = w.Start.AddDate(0, 1, 0)
	} else {
		w.Start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		w.ResetsAt = w.Start.AddDate(0, 0, 1)
	}
	return domusage.NewReport(period, s.provider, w)
}
