package health

import (
	"context"
	"time"

	corehealth "agourmet/ms_dte_bridge/internal/core/health"
)

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Check probes one dependency. A nil Check marks the component disabled.
type Check func(ctx context.Context) error

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	startedAt time.Time
	checks    map[string]Check
	critical  map[string]bool
}

func NewService(meta Metadata) *Service {
	return &Service{
		meta:      meta,
		startedAt: time.Now().UTC(),
		checks:    map[string]Check{},
		critical:  map[string]bool{},
	}
}

// Register adds a dependency check. A failing critical check reports the
// service DOWN; any other failure reports it DEGRADED.
func (s *Service) Register(name string, check Check, critical bool) *Service {
	s.checks[name] = check
	s.critical[name] = critical
	return s
}

// Status returns the current availability snapshot.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StateUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.Truncate(time.Second).String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	if len(s.checks) == 0 {
		return status
	}

	status.Components = make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if check == nil {
			status.Components[name] = corehealth.StateDisabled
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(checkCtx)
		cancel()

		if err == nil {
			status.Components[name] = corehealth.StateUp
			continue
		}
		status.Components[name] = corehealth.StateDown
		if s.critical[name] {
			status.Status = corehealth.StateDown
		} else if status.Status == corehealth.StateUp {
			status.Status = corehealth.StateDegraded
		}
	}

	return status
}
