package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach_engine/internal/config"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
)

func TestSMTPConfigForEmail(t *testing.T) {
	cases := []struct {
		email string
		host  string
		port  int
		ssl   bool
	}{
		{"me@gmail.com", "smtp.gmail.com", 587, false},
		{"me@outlook.com", "smtp.office365.com", 587, false},
		{"me@yahoo.com", "smtp.mail.yahoo.com", 465, true},
		{"me@corp.example", "smtp.corp.example", 465, true},
	}
	for _, tc := range cases {
		host, port, ssl, err := smtpConfigForEmail(tc.email)
		require.NoError(t, err, tc.email)
		assert.Equal(t, tc.host, host, tc.email)
		assert.Equal(t, tc.port, port, tc.email)
		assert.Equal(t, tc.ssl, ssl, tc.email)
	}

	_, _, _, err := smtpConfigForEmail("not-an-address")
	assert.Error(t, err)
}

func TestSMTPServerOverride(t *testing.T) {
	host, port, ssl, err := smtpServer(config.NotifyConfig{SMTPHost: "relay.internal", SMTPPort: 2525}, "me@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "relay.internal", host)
	assert.Equal(t, 2525, port)
	assert.False(t, ssl)

	host, port, ssl, err = smtpServer(config.NotifyConfig{SMTPHost: "relay.internal"}, "me@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "relay.internal", host)
	assert.Equal(t, 465, port)
	assert.True(t, ssl)
}

func TestValidateEmailSettings(t *testing.T) {
	assert.NoError(t, ValidateEmailSettings(model.EmailSettings{}))
	assert.NoError(t, ValidateEmailSettings(model.EmailSettings{Enabled: true, Email: "a@b.com", AuthCode: "x"}))
	assert.Error(t, ValidateEmailSettings(model.EmailSettings{Enabled: true}))
	assert.Error(t, ValidateEmailSettings(model.EmailSettings{Enabled: true, Email: "a@b.com"}))
	assert.Error(t, ValidateEmailSettings(model.EmailSettings{Enabled: true, Email: "a@b.com", AuthCode: "x", To: "nope"}))
}

func TestSummaryBody(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
	events := []CampaignFinishedEvent{
		{At: at.UnixMilli(), Kind: model.TaskKindConnect, Account: "me@example.com", Status: model.CampaignCompleted, Message: "sent 12 of 20 outreach actions across 10 categories"},
		{At: at.Add(time.Minute).UnixMilli(), Kind: model.TaskKindMessaging, Status: model.CampaignCompleted, Replies: 3},
		{At: at.Add(2 * time.Minute).UnixMilli(), Kind: model.TaskKindPost, Status: model.CampaignAbortedAtLogin},
	}

	htmlBody, textBody, err := buildSummaryEmailBody(events)
	require.NoError(t, err)
	assert.Contains(t, htmlBody, "3 run(s), 2024-03-01 10:00:00 ~ 2024-03-01 10:02:00")
	assert.Contains(t, textBody, "- 2024-03-01 10:00:00 | connect | me@example.com | completed | sent 12 of 20 outreach actions across 10 categories")
	assert.Contains(t, textBody, "| messaging | - | completed | 3 replies")
	assert.Contains(t, textBody, "| post | - | login failed | post failed")

	assert.Equal(t, "Campaign summary (3 runs)", buildSummarySubject(events))
	assert.Equal(t, "Campaign connect: completed", buildSummarySubject(events[:1]))

	_, _, err = buildSummaryEmailBody(nil)
	assert.Error(t, err)
}

func TestEventFromResult(t *testing.T) {
	finished := time.UnixMilli(1_700_000_000_000)
	task := model.Task{ID: "t1", Kind: model.TaskKindConnect, Payload: model.TaskPayload{Email: "me@example.com"}}
	evt := EventFromResult(task, "sent 2 of 4", model.CampaignResult{Status: model.CampaignCompleted, Budget: 4, TotalSent: 2, FinishedAt: finished})

	assert.Equal(t, finished.UnixMilli(), evt.At)
	assert.Equal(t, "me@example.com", evt.Account)
	assert.Equal(t, 2, evt.Sent)
	assert.Equal(t, 4, evt.Budget)
}

type staticSettings struct {
	settings model.EmailSettings
	ok       bool
	err      error
}

func (s staticSettings) GetEmailSettings(context.Context) (model.EmailSettings, bool, error) {
	return s.settings, s.ok, s.err
}

type sentBatches struct {
	mu      sync.Mutex
	batches [][]CampaignFinishedEvent
	got     chan struct{}
}

func (s *sentBatches) send(_ context.Context, _ model.EmailSettings, events []CampaignFinishedEvent) error {
	s.mu.Lock()
	s.batches = append(s.batches, events)
	s.mu.Unlock()
	s.got <- struct{}{}
	return nil
}

func newTestNotifier(t *testing.T, settings SettingsSource, cfg config.NotifyConfig) (*EmailNotifier, *sentBatches) {
	t.Helper()
	n := NewEmailNotifier(settings, cfg, logbus.New(50))
	sent := &sentBatches{got: make(chan struct{}, 10)}
	n.send = sent.send
	t.Cleanup(func() { _ = n.Close(context.Background()) })
	return n, sent
}

var enabled = staticSettings{ok: true, settings: model.EmailSettings{Enabled: true, Email: "me@example.com", AuthCode: "code"}}

func TestNotifierSendsImmediately(t *testing.T) {
	zero := 0
	n, sent := newTestNotifier(t, enabled, config.NotifyConfig{SummaryWindowMs: &zero})

	n.NotifyCampaignFinished(context.Background(), CampaignFinishedEvent{TaskID: "a"})

	select {
	case <-sent.got:
	case <-time.After(2 * time.Second):
		t.Fatal("summary not sent")
	}
	sent.mu.Lock()
	defer sent.mu.Unlock()
	require.Len(t, sent.batches, 1)
	assert.Equal(t, "a", sent.batches[0][0].TaskID)
}

func TestNotifierBatchesUntilMax(t *testing.T) {
	window := 60_000
	n, sent := newTestNotifier(t, enabled, config.NotifyConfig{SummaryWindowMs: &window, MaxBatch: 2})

	n.NotifyCampaignFinished(context.Background(), CampaignFinishedEvent{TaskID: "a"})
	n.NotifyCampaignFinished(context.Background(), CampaignFinishedEvent{TaskID: "b"})

	select {
	case <-sent.got:
	case <-time.After(2 * time.Second):
		t.Fatal("batch not sent")
	}
	sent.mu.Lock()
	defer sent.mu.Unlock()
	require.Len(t, sent.batches, 1)
	assert.Len(t, sent.batches[0], 2)
}

func TestNotifierFlushesOnClose(t *testing.T) {
	window := 60_000
	n, sent := newTestNotifier(t, enabled, config.NotifyConfig{SummaryWindowMs: &window})

	n.NotifyCampaignFinished(context.Background(), CampaignFinishedEvent{TaskID: "a"})
	require.NoError(t, n.Close(context.Background()))

	sent.mu.Lock()
	defer sent.mu.Unlock()
	require.Len(t, sent.batches, 1)
}

func TestNotifierSkipsWhenDisabled(t *testing.T) {
	zero := 0
	for name, src := range map[string]staticSettings{
		"missing":  {},
		"disabled": {ok: true, settings: model.EmailSettings{Email: "me@example.com", AuthCode: "x"}},
		"error":    {err: errors.New("db closed")},
	} {
		t.Run(name, func(t *testing.T) {
			n, sent := newTestNotifier(t, src, config.NotifyConfig{SummaryWindowMs: &zero})
			n.NotifyCampaignFinished(context.Background(), CampaignFinishedEvent{TaskID: "a"})
			require.NoError(t, n.Close(context.Background()))

			sent.mu.Lock()
			defer sent.mu.Unlock()
			assert.Empty(t, sent.batches)
		})
	}
}
