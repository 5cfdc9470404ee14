// Package notifier delivers alerts to Slack and/or Discord over their bot
// APIs, routing by severity level to the channel configured for it.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/slack-go/slack"

	"github.com/watchdog-hq/sentinel/internal/settings"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

const sendTimeout = 5 * time.Second

// levelColor maps an alert level to a Slack attachment / Discord embed
// color, the way a status dashboard would.
var levelColor = map[watchdog.Level]string{
	watchdog.LevelCritical: "danger",
	watchdog.LevelWarning:  "warning",
	watchdog.LevelRecovery: "good",
	watchdog.LevelInfo:     "#439FE0",
}

var levelEmoji = map[watchdog.Level]string{
	watchdog.LevelCritical: "🔴",
	watchdog.LevelWarning:  "🟠",
	watchdog.LevelRecovery: "🟢",
	watchdog.LevelInfo:     "ℹ️",
}

// discordColor holds, per level, the packed RGB integer
// discordgo.MessageEmbed expects, matching the Slack colors in levelColor.
var discordColor = map[watchdog.Level]int{
	watchdog.LevelCritical: 0xE01E5A,
	watchdog.LevelWarning:  0xECB22E,
	watchdog.LevelRecovery: 0x2EB67D,
	watchdog.LevelInfo:     0x439FE0,
}

// SlackSender is the subset of *slack.Client the notifier drives, narrowed
// so tests can inject a fake.
type SlackSender interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// DiscordSender is the subset of *discordgo.Session the notifier drives.
type DiscordSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// newSlackClient and newDiscordClient are indirected so tests can swap in
// fakes without a live token.
var (
	newSlackClient = func(token string) SlackSender {
		return slack.New(token)
	}
	newDiscordClient = func(token string) (DiscordSender, error) {
		return discordgo.New("Bot " + token)
	}
)

// Notifier sends Alert values out to whichever of Slack/Discord has both a
// bot token and a destination channel configured for the alert's level.
type Notifier struct {
	settings *settings.Provider
}

// New creates a Notifier over the given Settings Provider.
func New(provider *settings.Provider) *Notifier {
	return &Notifier{settings: provider}
}

// Notify resolves current settings and delivers alert to every configured
// destination. A missing token or channel for a provider silently skips
// that provider; network errors are logged and swallowed, never returned,
// since a delivery failure must not unwind the caller's state commit.
func (n *Notifier) Notify(ctx context.Context, alert watchdog.Alert) {
	cfg, err := n.settings.Resolve(ctx)
	if err != nil {
		slog.Error("notifier: resolve settings", "error", err)
		return
	}

	channel := cfg.ChannelFor(alert.Level)
	if channel == "" {
		slog.Info("notifier: dropping alert, no channel configured for level", "check", alert.CheckID, "level", alert.Level)
		return
	}
	if cfg.APITokenSlack == "" && cfg.APITokenDiscord == "" {
		slog.Info("notifier: dropping alert, no api token configured", "check", alert.CheckID, "level", alert.Level)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	// dedupeID tags this delivery attempt so a downstream consumer (e.g. a
	// Slack workflow or alert aggregator) can recognize the same underlying
	// alert delivered to both Slack and Discord as one event rather than two.
	dedupeID := uuid.New().String()

	if cfg.APITokenSlack != "" {
		if err := n.sendSlack(ctx, cfg.APITokenSlack, channel, alert, dedupeID); err != nil {
			slog.Warn("notifier: slack delivery failed", "check", alert.CheckID, "error", err)
		}
	}
	if cfg.APITokenDiscord != "" {
		if err := n.sendDiscord(ctx, cfg.APITokenDiscord, channel, alert, dedupeID); err != nil {
			slog.Warn("notifier: discord delivery failed", "check", alert.CheckID, "error", err)
		}
	}
}

func (n *Notifier) sendSlack(ctx context.Context, token, channel string, alert watchdog.Alert, dedupeID string) error {
	client := newSlackClient(token)
	_, _, err := client.PostMessageContext(ctx, channel,
		slack.MsgOptionText(fmt.Sprintf("%s %s", levelEmoji[alert.Level], alert.Title), false),
		slack.MsgOptionAttachments(slack.Attachment{
			Color:  levelColor[alert.Level],
			Title:  alert.Title,
			Text:   alert.Message,
			Fields: slackFields(alert),
			Footer: fmt.Sprintf("check %s · alert %s", alert.CheckID, dedupeID),
			Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
		}),
	)
	return err
}

func (n *Notifier) sendDiscord(ctx context.Context, token, channel string, alert watchdog.Alert, dedupeID string) error {
	client, err := newDiscordClient(token)
	if err != nil {
		return fmt.Errorf("build discord session: %w", err)
	}
	_, err = client.ChannelMessageSendComplex(channel, &discordgo.MessageSend{
		Content: fmt.Sprintf("%s %s", levelEmoji[alert.Level], alert.Title),
		Embeds: []*discordgo.MessageEmbed{{
			Title:       alert.Title,
			Description: alert.Message,
			Color:       discordColor[alert.Level],
			Fields:      discordFields(alert),
			Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("check %s · alert %s", alert.CheckID, dedupeID)},
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	})
	return err
}

func slackFields(alert watchdog.Alert) []slack.AttachmentField {
	fields := []slack.AttachmentField{
		{Title: "Project", Value: alert.ProjectName, Short: true},
		{Title: "Check", Value: alert.CheckName, Short: true},
	}
	for _, k := range sortedKeys(alert.Metadata) {
		fields = append(fields, slack.AttachmentField{Title: k, Value: alert.Metadata[k], Short: true})
	}
	return fields
}

func discordFields(alert watchdog.Alert) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Project", Value: alert.ProjectName, Inline: true},
		{Name: "Check", Value: alert.CheckName, Inline: true},
	}
	for _, k := range sortedKeys(alert.Metadata) {
		fields = append(fields, &discordgo.MessageEmbedField{Name: k, Value: alert.Metadata[k], Inline: true})
	}
	return fields
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

