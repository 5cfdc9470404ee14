// Package watchdog holds the core, I/O-free domain model: the Project and
// Check rows, the event types a pulse or sweep can feed in, and the pure
// transition function that is the sole writer of check state.
package watchdog

import "fmt"

// CheckType distinguishes a heartbeat check (expects periodic pulses) from an
// event check (only ever reports errors; never swept for deadness).
type CheckType string

const (
	CheckHeartbeat CheckType = "heartbeat"
	CheckEvent     CheckType = "event"
)

// Status is the current health state of a check.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
	StatusDead  Status = "dead"
)

// Level is the severity of an emitted alert.
type Level string

const (
	LevelCritical Level = "critical"
	LevelWarning  Level = "warning"
	LevelRecovery Level = "recovery"
	LevelInfo     Level = "info"
)

// Project is a tenant scope: a token-authenticated collection of checks.
type Project struct {
	ID               string
	Token            string
	DisplayName      string
	MaintenanceUntil int64
	CreatedAt        int64
}

// InMaintenance reports whether alerts for this project are suppressed at now.
func (p Project) InMaintenance(now int64) bool {
	return p.MaintenanceUntil > now
}

// Check is the rule+state row identified by ProjectID+Name (key format
// "{project_id}:{name}", see Key).
type Check struct {
	ProjectID   string
	Name        string
	DisplayName string
	Type        CheckType

	// Rule attributes, set by the Config Upserter and immutable from the
	// state machine's perspective.
	Interval  int64
	Grace     int64
	Threshold int64
	Cooldown  int64
	Monitor   bool

	// State attributes, mutated solely by Transition.
	Status       Status
	LastSeen     int64
	FailureCount int64
	LastAlertAt  int64
	LastMessage  string
}

// Key returns the canonical "{project_id}:{name}" check identifier.
func (c Check) Key() string {
	return Key(c.ProjectID, c.Name)
}

// Key builds the canonical check identifier from its components.
func Key(projectID, name string) string {
	return fmt.Sprintf("%s:%s", projectID, name)
}

// Log is an append-only per-event record.
type Log struct {
	ID        int64
	CheckID   string
	Status    Status
	Latency   int64
	Message   string
	CreatedAt int64
}

// Alert is the record the State Machine hands to the Notifier.
type Alert struct {
	Level       Level
	Title       string
	Message     string
	ProjectName string
	CheckName   string
	CheckID     string
	Metadata    map[string]string
}
