package health

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates that some replica or the inference provider is failing
	// while at least one replica still serves reads.
	Degraded Status = "degraded"
	// Unhealthy indicates that no replica store responds.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	replicas  []DBPinger
	inference InferenceChecker
}

// New creates a Service. inference can be nil. replicas[0] is the primary store.
func New(inference InferenceChecker, replicas ...DBPinger) *Service {
	return &Service{replicas: replicas, inference: inference}
}

// checkName is "database" for the primary and "replica_N" for the others.
func checkName(i int) string {
	if i == 0 {
		return "database"
	}
	return "replica_" + strconv.Itoa(i)
}

// Check runs all health checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	dbResults := make([]CheckResult, len(s.replicas))
	var inferenceResult CheckResult

	var g errgroup.Group
	for i, r := range s.replicas {
		g.Go(func() error {
			dbResults[i] = resultOf(r.Ping(ctx))
			return nil
		})
	}
	if s.inference != nil {
		g.Go(func() error {
			inferenceResult = resultOf(s.inference.HealthCheck(ctx))
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(s.replicas)+1)
	healthyReplicas := 0
	for i, res := range dbResults {
		checks[checkName(i)] = res
		if res == CheckOK {
			healthyReplicas++
		}
	}
	if s.inference != nil {
		checks["inference"] = inferenceResult
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if healthyReplicas == 0 {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
