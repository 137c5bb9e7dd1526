// Package health aggregates component health for the readiness endpoint.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the matcher works but the embedding provider does
	// not: cached embeddings still serve, regeneration will fail.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is unreachable; no request can serve.
	Unhealthy Status = "error"
)

// CheckResult is an individual component outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates the component checks.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store    StorePinger
	provider ProviderChecker
}

// New creates a Service. provider can be nil.
func New(store StorePinger, provider ProviderChecker) *Service {
	return &Service{store: store, provider: provider}
}

// Check probes the store and the embedding provider. The store is load
// bearing for every request, so its failure is Unhealthy; a provider
// failure alone only degrades regeneration.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
		status = Unhealthy
	} else {
		checks["store"] = CheckOK
	}

	if s.provider != nil {
		if err := s.provider.HealthCheck(ctx); err != nil {
			checks["embedding_provider"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding_provider"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
