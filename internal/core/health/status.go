package health

import "time"

// Component states.
const (
	StateUp       = "UP"
	StateDown     = "DOWN"
	StateDegraded = "DEGRADED"
	StateDisabled = "DISABLED"
)

// Status captures the state of the service at a moment in time.
type Status struct {
	Service     string            `json:"service"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Status      string            `json:"status"`
	StartedAt   time.Time         `json:"startedAt"`
	Uptime      string            `json:"uptime"`
	UptimeSecs  int64             `json:"uptimeSeconds"`
	Components  map[string]string `json:"components,omitempty"`
}

// Healthy reports whether the handler should answer 200.
func (s Status) Healthy() bool {
	return s.Status != StateDown
}
