package watchdog

import "fmt"

// Settings carries the subset of the Settings Provider's values the state
// machine needs: the global default silence period, used only when a check
// has no explicit (> 0) cooldown of its own.
type Settings struct {
	DefaultCooldownSeconds int64
}

// Transition is the core state machine: a pure function of
// (check, project, event, settings, now) -> (check', alert?). It performs no
// I/O and must be deterministic. Transition is the sole path by which a
// check's status, failure_count, last_alert_at, last_seen, and last_message
// are mutated — both for real pulses and for synthetic dead events from the
// Sweeper.
func Transition(check Check, project Project, event Event, settings Settings, now int64) (Check, *Alert) {
	cooldown := effectiveCooldown(check, settings)
	inMaintenance := project.InMaintenance(now)

	switch event.Kind {
	case EventPulseOK:
		return transitionPulseOK(check, project, event, now)
	case EventPulseError:
		return transitionFailure(check, project, event, now, cooldown, inMaintenance, StatusError, LevelWarning,
			event.Message)
	case EventDead:
		msg := fmt.Sprintf("heartbeat missed; last seen %ds ago", event.Elapsed)
		return transitionFailure(check, project, event, now, cooldown, inMaintenance, StatusDead, LevelCritical, msg)
	default:
		return check, nil
	}
}

// effectiveCooldown returns the check's own cooldown if set, else the global
// default silence period. The two are never summed.
func effectiveCooldown(check Check, settings Settings) int64 {
	if check.Cooldown > 0 {
		return check.Cooldown
	}
	return settings.DefaultCooldownSeconds
}

func transitionPulseOK(check Check, project Project, event Event, now int64) (Check, *Alert) {
	var alert *Alert
	if check.Status != StatusOK && check.FailureCount >= check.Threshold {
		alert = &Alert{
			Level:       LevelRecovery,
			Title:       fmt.Sprintf("%s / %s recovered", project.DisplayName, check.Name),
			Message:     recoveryMessage(check, event),
			ProjectName: project.DisplayName,
			CheckName:   check.Name,
			CheckID:     check.Key(),
			Metadata: map[string]string{
				"failure_count": fmt.Sprintf("%d", check.FailureCount),
				"threshold":     fmt.Sprintf("%d", check.Threshold),
			},
		}
		check.LastAlertAt = now
	}

	check.FailureCount = 0
	check.Status = StatusOK
	check.LastSeen = now
	check.LastMessage = event.Message
	return check, alert
}

// transitionFailure implements both pulse_error and dead: increment the
// failure count, set status, optionally update last_seen (pulses only — a
// dead event is synthetic and must not refresh it), and emit an alert iff
// not in maintenance, the threshold is met (failure_count >= threshold), and
// the cooldown predicate holds (elapsed >= cooldown, both inclusive).
func transitionFailure(
	check Check,
	project Project,
	event Event,
	now int64,
	cooldown int64,
	inMaintenance bool,
	status Status,
	level Level,
	message string,
) (Check, *Alert) {
	check.FailureCount++
	check.Status = status
	check.LastMessage = message
	if event.Kind != EventDead {
		check.LastSeen = now
	}

	var alert *Alert
	cooldownSatisfied := check.LastAlertAt == 0 || now-check.LastAlertAt >= cooldown
	if !inMaintenance && check.FailureCount >= check.Threshold && cooldownSatisfied {
		alert = &Alert{
			Level:       level,
			Title:       fmt.Sprintf("%s / %s %s", project.DisplayName, check.Name, status),
			Message:     message,
			ProjectName: project.DisplayName,
			CheckName:   check.Name,
			CheckID:     check.Key(),
			Metadata: map[string]string{
				"threshold":     fmt.Sprintf("%d", check.Threshold),
				"failure_count": fmt.Sprintf("%d", check.FailureCount),
				"interval":      fmt.Sprintf("%d", check.Interval),
				"grace":         fmt.Sprintf("%d", check.Grace),
			},
		}
		check.LastAlertAt = now
	}
	return check, alert
}

func recoveryMessage(check Check, event Event) string {
	if event.Message != "" {
		return event.Message
	}
	return fmt.Sprintf("%s recovered after %d failures", check.Name, check.FailureCount)
}

// Overdue reports whether a heartbeat check is due for a synthetic dead
// event at now: last_seen + interval + grace < now, strictly. Event checks
// and unmonitored checks are never overdue.
func Overdue(check Check, now int64) bool {
	if check.Type != CheckHeartbeat || !check.Monitor {
		return false
	}
	if check.Status == StatusDead {
		return false
	}
	return check.LastSeen+check.Interval+check.Grace < now
}
