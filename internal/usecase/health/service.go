package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the store is down; runs still work without cache
	// and budget persistence.
	Degraded Status = "degraded"
	// Unhealthy indicates the vision provider is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentStore  = "store"
	ComponentVision = "vision"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store  DBPinger
	vision VisionChecker
}

// New creates a Service. store can be nil when no store is configured.
func New(store DBPinger, vision VisionChecker) *Service {
	return &Service{store: store, vision: vision}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.store != nil {
		checks[ComponentStore] = CheckOK
		if err := s.store.Ping(ctx); err != nil {
			checks[ComponentStore] = CheckError
			status = Degraded
		}
	}

	if s.vision != nil {
		checks[ComponentVision] = CheckOK
		if err := s.vision.HealthCheck(ctx); err != nil {
			checks[ComponentVision] = CheckError
			status = Unhealthy
		}
	}

	return Report{Status: status, Checks: checks}
}
