package notifier

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"

	"github.com/watchdog-hq/sentinel/internal/settings"
	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

type fakeRepo struct {
	values map[string]string
}

func (f *fakeRepo) GetSettingValue(_ context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

type fakeSlack struct {
	calls []string
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.calls = append(f.calls, channelID)
	return "", "", nil
}

type fakeDiscord struct {
	calls []string
}

func (f *fakeDiscord) ChannelMessageSendComplex(channelID string, _ *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.calls = append(f.calls, channelID)
	return &discordgo.Message{}, nil
}

func withFakes(t *testing.T, slk *fakeSlack, disc *fakeDiscord) {
	t.Helper()
	prevSlack, prevDiscord := newSlackClient, newDiscordClient
	newSlackClient = func(string) SlackSender { return slk }
	newDiscordClient = func(string) (DiscordSender, error) { return disc, nil }
	t.Cleanup(func() {
		newSlackClient = prevSlack
		newDiscordClient = prevDiscord
	})
}

func TestNotifySkipsWhenChannelUnset(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{values: map[string]string{settings.KeyAPIToken: "xoxb-test"}}
	n := New(settings.New(repo))
	slk, disc := &fakeSlack{}, &fakeDiscord{}
	withFakes(t, slk, disc)

	n.Notify(context.Background(), watchdog.Alert{Level: watchdog.LevelCritical, CheckID: "p:c"})

	if len(slk.calls) != 0 || len(disc.calls) != 0 {
		t.Fatalf("expected no delivery with no channel configured, got slack=%v discord=%v", slk.calls, disc.calls)
	}
}

func TestNotifySkipsWhenTokenUnset(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{values: map[string]string{settings.KeyChannelCritical: "C0123"}}
	n := New(settings.New(repo))
	slk, disc := &fakeSlack{}, &fakeDiscord{}
	withFakes(t, slk, disc)

	n.Notify(context.Background(), watchdog.Alert{Level: watchdog.LevelCritical, CheckID: "p:c"})

	if len(slk.calls) != 0 || len(disc.calls) != 0 {
		t.Fatalf("expected no delivery with no api token configured, got slack=%v discord=%v", slk.calls, disc.calls)
	}
}

func TestNotifySendsToConfiguredChannelOnly(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{values: map[string]string{
		settings.KeyAPIToken:        "xoxb-test",
		settings.KeyChannelCritical: "C0123",
	}}
	n := New(settings.New(repo))
	slk, disc := &fakeSlack{}, &fakeDiscord{}
	withFakes(t, slk, disc)

	n.Notify(context.Background(), watchdog.Alert{Level: watchdog.LevelCritical, CheckID: "p:c", Title: "down"})

	if len(slk.calls) != 1 || slk.calls[0] != "C0123" {
		t.Fatalf("expected one slack delivery to C0123, got %v", slk.calls)
	}
	if len(disc.calls) != 1 || disc.calls[0] != "C0123" {
		t.Fatalf("expected one discord delivery to C0123, got %v", disc.calls)
	}
}

func TestNotifyRoutesRecoveryToSuccessChannel(t *testing.T) {
	t.Parallel()
	repo := &fakeRepo{values: map[string]string{
		settings.KeyAPIToken:        "xoxb-test",
		settings.KeyChannelCritical: "C-crit",
		settings.KeyChannelSuccess:  "C-ok",
	}}
	n := New(settings.New(repo))
	slk, disc := &fakeSlack{}, &fakeDiscord{}
	withFakes(t, slk, disc)

	n.Notify(context.Background(), watchdog.Alert{Level: watchdog.LevelRecovery, CheckID: "p:c"})

	if len(slk.calls) != 1 || slk.calls[0] != "C-ok" {
		t.Fatalf("expected recovery routed to success channel, got %v", slk.calls)
	}
}

func TestNotifySlackFieldsIncludeMetadataSorted(t *testing.T) {
	t.Parallel()
	alert := watchdog.Alert{
		ProjectName: "proj",
		CheckName:   "chk",
		Metadata:    map[string]string{"threshold": "3", "failure_count": "4"},
	}
	fields := slackFields(alert)
	if len(fields) != 4 {
		t.Fatalf("expected 4 fields, got %d", len(fields))
	}
	if fields[2].Title != "failure_count" || fields[3].Title != "threshold" {
		t.Fatalf("expected metadata fields sorted by key, got %+v", fields[2:])
	}
}
