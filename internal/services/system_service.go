package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domain "github.com/borne-automatique/api/internal/domain"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// DependencyCheck describes a dependency probe executed during readiness checks.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	Checks []DependencyCheck
	Clock  func() time.Time
	Build  BuildInfo
}

type systemService struct {
	checks []DependencyCheck
	clock  func() time.Time
	build  BuildInfo
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the service behind the readiness endpoint.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if len(deps.Checks) == 0 {
		return nil, errors.New("system service: at least one dependency check is required")
	}
	for _, check := range deps.Checks {
		if strings.TrimSpace(check.Name) == "" {
			return nil, errors.New("system service: dependency check missing name")
		}
		if check.Check == nil {
			return nil, fmt.Errorf("system service: dependency %s missing check function", check.Name)
		}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	checks := make([]DependencyCheck, len(deps.Checks))
	copy(checks, deps.Checks)
	return &systemService{
		checks: checks,
		clock:  func() time.Time { return clock().UTC() },
		build:  deps.Build,
	}, nil
}

// HealthReport runs every dependency check concurrently and aggregates the outcome.
func (s *systemService) HealthReport(ctx context.Context) (SystemHealthReport, error) {
	if ctx == nil {
		return SystemHealthReport{}, errors.New("system service: context is required")
	}

	results := make(map[string]SystemHealthCheck, len(s.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range s.checks {
		wg.Add(1)
		go func(check DependencyCheck) {
			defer wg.Done()
			result := s.run(ctx, check)
			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	status := domain.HealthStatusOK
	for _, result := range results {
		if result.Status == domain.HealthStatusError {
			status = domain.HealthStatusError
			break
		}
		if result.Status != domain.HealthStatusOK {
			status = domain.HealthStatusDegraded
		}
	}

	now := s.clock()
	report := SystemHealthReport{
		Status:      status,
		Version:     s.build.Version,
		CommitSHA:   s.build.CommitSHA,
		Environment: s.build.Environment,
		GeneratedAt: now,
		Checks:      results,
	}
	if !s.build.StartedAt.IsZero() {
		report.Uptime = now.Sub(s.build.StartedAt)
	}
	return report, nil
}

func (s *systemService) run(ctx context.Context, check DependencyCheck) SystemHealthCheck {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = defaultDependencyTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := s.clock()
	err := check.Check(checkCtx)
	end := s.clock()

	result := SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Detail:    "ok",
		Latency:   end.Sub(start),
		CheckedAt: end,
	}
	switch {
	case err == nil && checkCtx.Err() == nil:
	case err == nil:
		result.Status = domain.HealthStatusError
		result.Detail = checkCtx.Err().Error()
		result.Error = checkCtx.Err().Error()
	case errors.Is(err, context.Canceled):
		result.Status = domain.HealthStatusError
		result.Detail = "cancelled"
		result.Error = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		result.Status = domain.HealthStatusError
		result.Detail = "timeout"
		result.Error = err.Error()
	default:
		result.Status = domain.HealthStatusDegraded
		result.Detail = err.Error()
		result.Error = err.Error()
	}
	return result
}
