package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates a failing remote dependency; searches will fail but the corpus is loaded.
	Degraded Status = "degraded"
	// Unhealthy indicates that no corpus is available.
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

// CheckCorpus is the check name of the embedding corpus.
const CheckCorpus = "corpus"

// Dependency is a named remote component.
type Dependency struct {
	Name    string
	Checker Checker
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	// Entries is the loaded corpus size, 0 when unavailable.
	Entries int
}

// Service coordinates health checks.
type Service struct {
	corpus CorpusProvider
	deps   []Dependency
}

// New creates a Service. Dependencies with a nil Checker are ignored.
func New(corpus CorpusProvider, deps ...Dependency) *Service {
	s := &Service{corpus: corpus}
	for _, d := range deps {
		if d.Checker != nil {
			s.deps = append(s.deps, d)
		}
	}
	return s
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.deps)+1)
	r := Report{Status: Healthy, Checks: checks}

	if c, err := s.corpus.Current(); err != nil {
		checks[CheckCorpus] = CheckError
		r.Status = Unhealthy
	} else {
		checks[CheckCorpus] = CheckOK
		r.Entries = c.Len()
	}

	for _, d := range s.deps {
		if err := d.Checker.HealthCheck(ctx); err != nil {
			checks[d.Name] = CheckError
			if r.Status == Healthy {
				r.Status = Degraded
			}
		} else {
			checks[d.Name] = CheckOK
		}
	}

	return r
}
