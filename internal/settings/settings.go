// Package settings resolves notification credentials, channel mapping, and
// the default cooldown from the Store, applying the defaults the core
// depends on when a row is absent.
package settings

import (
	"context"
	"strconv"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

const (
	KeyAPIToken          = "api_token"
	KeyChannelCritical   = "channel_critical"
	KeyChannelSuccess    = "channel_success"
	KeyChannelWarning    = "channel_warning"
	KeyChannelInfo       = "channel_info"
	KeySilencePeriodSecs = "silence_period_seconds"

	defaultSilencePeriodSeconds = 3600
)

// Repo is the read-only persistence dependency the provider consumes.
type Repo interface {
	GetSettingValue(ctx context.Context, key string) (string, bool, error)
}

// Settings is a fully-resolved snapshot of the notifier and state-machine
// configuration for one decision.
type Settings struct {
	APITokenSlack   string
	APITokenDiscord string
	ChannelCritical string
	ChannelSuccess  string
	ChannelWarning  string
	ChannelInfo     string
	SilencePeriod   int64
}

// Provider resolves Settings from the Store on demand — every notification
// decision reads it fresh, since settings can be changed by the admin
// collaborator between calls.
type Provider struct {
	repo Repo
}

// New creates a Settings Provider over repo.
func New(repo Repo) *Provider {
	return &Provider{repo: repo}
}

// Resolve reads the current settings, applying defaults for absent keys.
func (p *Provider) Resolve(ctx context.Context) (Settings, error) {
	out := Settings{SilencePeriod: defaultSilencePeriodSeconds}

	if v, ok, err := p.repo.GetSettingValue(ctx, KeyAPIToken); err != nil {
		return Settings{}, err
	} else if ok {
		out.APITokenSlack = v
		out.APITokenDiscord = v
	}
	if v, ok, err := p.repo.GetSettingValue(ctx, KeyChannelCritical); err != nil {
		return Settings{}, err
	} else if ok {
		out.ChannelCritical = v
	}
	if v, ok, err := p.repo.GetSettingValue(ctx, KeyChannelSuccess); err != nil {
		return Settings{}, err
	} else if ok {
		out.ChannelSuccess = v
	}
	if v, ok, err := p.repo.GetSettingValue(ctx, KeyChannelWarning); err != nil {
		return Settings{}, err
	} else if ok {
		out.ChannelWarning = v
	}
	if v, ok, err := p.repo.GetSettingValue(ctx, KeyChannelInfo); err != nil {
		return Settings{}, err
	} else if ok {
		out.ChannelInfo = v
	}
	if v, ok, err := p.repo.GetSettingValue(ctx, KeySilencePeriodSecs); err != nil {
		return Settings{}, err
	} else if ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed >= 0 {
			out.SilencePeriod = parsed
		}
	}
	return out, nil
}

// CoreSettings narrows a resolved Settings down to what watchdog.Transition
// needs: only the global default cooldown.
func (s Settings) CoreSettings() watchdog.Settings {
	return watchdog.Settings{DefaultCooldownSeconds: s.SilencePeriod}
}

// ChannelFor routes an alert level to its destination channel string:
// critical and warning share the critical channel; recovery uses the
// success channel; info (reserved, never emitted today) uses its own.
func (s Settings) ChannelFor(level watchdog.Level) string {
	switch level {
	case watchdog.LevelCritical, watchdog.LevelWarning:
		return s.ChannelCritical
	case watchdog.LevelRecovery:
		return s.ChannelSuccess
	case watchdog.LevelInfo:
		return s.ChannelInfo
	default:
		return ""
	}
}
