package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"
	"sync"
	"time"

	"gopkg.in/gomail.v2"

	"outreach_engine/internal/config"
	"outreach_engine/internal/logbus"
	"outreach_engine/internal/model"
)

const senderName = "Outreach Engine"

type sendFunc func(ctx context.Context, settings model.EmailSettings, events []CampaignFinishedEvent) error

// EmailNotifier batches finished-campaign events and mails one summary per batch.
type EmailNotifier struct {
	settings SettingsSource
	bus      *logbus.Bus
	smtp     config.NotifyConfig
	send     sendFunc

	mu     sync.Mutex
	queue  chan CampaignFinishedEvent
	ctx    context.Context
	cancel func()
	wg     sync.WaitGroup

	summaryWindow time.Duration
	maxBatch      int
}

func NewEmailNotifier(settings SettingsSource, cfg config.NotifyConfig, bus *logbus.Bus) *EmailNotifier {
	ctx, cancel := context.WithCancel(context.Background())
	n := &EmailNotifier{
		settings:      settings,
		bus:           bus,
		smtp:          cfg,
		queue:         make(chan CampaignFinishedEvent, 200),
		ctx:           ctx,
		cancel:        cancel,
		summaryWindow: cfg.SummaryWindow(),
		maxBatch:      cfg.MaxBatch,
	}
	n.send = n.sendSummary
	n.wg.Add(1)
	go n.loop()
	return n
}

func (n *EmailNotifier) Close(ctx context.Context) error {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *EmailNotifier) NotifyCampaignFinished(_ context.Context, evt CampaignFinishedEvent) {
	select {
	case n.queue <- evt:
	default:
		if n.bus != nil {
			n.bus.Log("warn", "notification dropped: queue full", map[string]any{
				"taskId": evt.TaskID,
				"kind":   evt.Kind,
			})
		}
	}
}

func (n *EmailNotifier) loop() {
	defer n.wg.Done()

	var (
		pending []CampaignFinishedEvent
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
		timerCh = nil
	}

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(n.summaryWindow)
			timerCh = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(n.summaryWindow)
	}

	flush := func(reason string) {
		if len(pending) == 0 {
			stopTimer()
			return
		}
		events := append([]CampaignFinishedEvent(nil), pending...)
		pending = pending[:0]
		stopTimer()
		n.handleBatch(reason, events)
	}

	for {
		select {
		case <-n.ctx.Done():
			flush("shutdown")
			return
		case evt := <-n.queue:
			pending = append(pending, evt)
			if n.maxBatch > 0 && len(pending) >= n.maxBatch {
				flush("max")
				continue
			}
			if n.summaryWindow <= 0 {
				flush("immediate")
				continue
			}
			resetTimer()
		case <-timerCh:
			flush("idle")
		}
	}
}

func (n *EmailNotifier) handleBatch(reason string, events []CampaignFinishedEvent) {
	if n.settings == nil {
		return
	}

	// The loop context is already cancelled during the shutdown flush.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(n.ctx), 30*time.Second)
	defer cancel()

	settings, ok, err := n.settings.GetEmailSettings(ctx)
	if err != nil {
		n.log("warn", "read email settings failed", map[string]any{"error": err.Error()})
		return
	}
	if !ok || !settings.Enabled {
		n.log("debug", "email notification disabled", map[string]any{
			"count":  len(events),
			"reason": reason,
		})
		return
	}
	if err := validateEmailSettings(settings); err != nil {
		n.log("warn", "email settings invalid", map[string]any{"error": err.Error()})
		return
	}

	if err := n.send(ctx, settings, events); err != nil {
		n.log("warn", "email send failed", map[string]any{
			"error":  err.Error(),
			"count":  len(events),
			"reason": reason,
		})
		return
	}
	n.log("info", "notification email sent", map[string]any{
		"count":  len(events),
		"reason": reason,
		"to":     recipient(settings),
	})
}

func (n *EmailNotifier) log(level, msg string, fields map[string]any) {
	if n.bus != nil {
		n.bus.Log(level, msg, fields)
	}
}

func validateEmailSettings(s model.EmailSettings) error {
	email := strings.TrimSpace(s.Email)
	if email == "" {
		return errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("invalid email")
	}
	if to := strings.TrimSpace(s.To); to != "" {
		if _, err := mail.ParseAddress(to); err != nil {
			return errors.New("invalid recipient")
		}
	}
	if strings.TrimSpace(s.AuthCode) == "" {
		return errors.New("authCode is required")
	}
	return nil
}

// ValidateEmailSettings checks settings before they are stored.
func ValidateEmailSettings(s model.EmailSettings) error {
	if !s.Enabled && strings.TrimSpace(s.Email) == "" {
		return nil
	}
	return validateEmailSettings(s)
}

func recipient(s model.EmailSettings) string {
	if to := strings.TrimSpace(s.To); to != "" {
		return to
	}
	return strings.TrimSpace(s.Email)
}

func (n *EmailNotifier) sendSummary(ctx context.Context, settings model.EmailSettings, events []CampaignFinishedEvent) error {
	return SendSummaryEmail(ctx, n.smtp, settings, events)
}

// SendSummaryEmail mails one summary of events from settings.Email.
func SendSummaryEmail(ctx context.Context, cfg config.NotifyConfig, settings model.EmailSettings, events []CampaignFinishedEvent) error {
	if err := validateEmailSettings(settings); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return errors.New("no events")
	}

	email := strings.TrimSpace(settings.Email)
	host, port, useSSL, err := smtpServer(cfg, email)
	if err != nil {
		return err
	}
	htmlBody, textBody, err := buildSummaryEmailBody(events)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(email, senderName))
	msg.SetHeader("To", recipient(settings))
	msg.SetHeader("Subject", buildSummarySubject(events))
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	d := gomail.NewDialer(host, port, email, strings.TrimSpace(settings.AuthCode))
	d.SSL = useSSL
	return d.DialAndSend(msg)
}

func smtpServer(cfg config.NotifyConfig, email string) (string, int, bool, error) {
	if host := strings.TrimSpace(cfg.SMTPHost); host != "" {
		port := cfg.SMTPPort
		if port <= 0 {
			port = 465
		}
		return host, port, cfg.UseSSL(port), nil
	}
	return smtpConfigForEmail(email)
}

func smtpConfigForEmail(email string) (host string, port int, useSSL bool, err error) {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", 0, false, errors.New("invalid email format")
	}
	domain := strings.ToLower(strings.TrimSpace(parts[1]))

	switch {
	case domain == "gmail.com" || domain == "googlemail.com":
		return "smtp.gmail.com", 587, false, nil
	case domain == "outlook.com" || strings.HasSuffix(domain, ".outlook.com") ||
		domain == "hotmail.com" || strings.HasSuffix(domain, ".hotmail.com") ||
		domain == "live.com" || strings.HasSuffix(domain, ".live.com"):
		return "smtp.office365.com", 587, false, nil
	case domain == "yahoo.com" || strings.HasSuffix(domain, ".yahoo.com"):
		return "smtp.mail.yahoo.com", 465, true, nil
	case domain == "icloud.com" || domain == "me.com" || domain == "mac.com":
		return "smtp.mail.me.com", 587, false, nil
	case domain == "zoho.com" || strings.HasSuffix(domain, ".zoho.com"):
		return "smtp.zoho.com", 465, true, nil
	case domain == "qq.com" || domain == "foxmail.com":
		return "smtp.qq.com", 465, true, nil
	default:
		return "smtp." + domain, 465, true, nil
	}
}

func buildSummarySubject(events []CampaignFinishedEvent) string {
	if len(events) == 1 {
		e := events[0]
		return fmt.Sprintf("Campaign %s: %s", e.Kind, statusLabel(e.Status))
	}
	return fmt.Sprintf("Campaign summary (%d runs)", len(events))
}

func statusLabel(s model.CampaignStatus) string {
	switch s {
	case model.CampaignCompleted:
		return "completed"
	case model.CampaignAbortedAtLogin:
		return "login failed"
	case model.CampaignAbortedAtSetup:
		return "setup failed"
	case "":
		return "unknown"
	default:
		return "failed"
	}
}

var emailSummaryHTMLTpl = template.Must(template.New("email-summary").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width" />
    <title>Campaign summary</title>
  </head>
  <body style="margin:0;padding:0;background:#f6f8fb;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'Helvetica Neue',Arial,sans-serif;">
    <div style="max-width:720px;margin:0 auto;padding:24px;">
      <div style="background:#ffffff;border:1px solid #e6e8ef;border-radius:14px;overflow:hidden;">
        <div style="padding:18px 22px;background:linear-gradient(135deg,#0a66c2,#004182);color:#ffffff;">
          <div style="font-size:16px;font-weight:700;">Campaign summary</div>
          <div style="margin-top:6px;font-size:12px;opacity:.95;">{{ .Total }} run(s), {{ .Start }} ~ {{ .End }}</div>
        </div>

        <div style="padding:22px;">
          <table role="presentation" cellspacing="0" cellpadding="0" border="0" style="width:100%;border-collapse:collapse;border:1px solid #eef0f6;">
            <thead>
              <tr style="background:#fafbff;">
                <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Finished</th>
                <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Kind</th>
                <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Account</th>
                <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Status</th>
                <th style="padding:10px 12px;text-align:left;font-size:12px;color:#6b7280;">Result</th>
              </tr>
            </thead>
            <tbody>
              {{ range .Rows }}
              <tr>
                <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .At }}</td>
                <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Kind }}</td>
                <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Account }}</td>
                <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Status }}</td>
                <td style="padding:10px 12px;font-size:12px;color:#111827;border-top:1px solid #eef0f6;">{{ .Message }}</td>
              </tr>
              {{ end }}
            </tbody>
          </table>
          <div style="margin-top:14px;color:#9ca3af;font-size:12px;">This message was sent automatically.</div>
        </div>
      </div>
    </div>
  </body>
</html>
`))

type summaryRow struct {
	At      string
	Kind    string
	Account string
	Status  string
	Message string
}

func buildSummaryEmailBody(events []CampaignFinishedEvent) (htmlBody string, textBody string, err error) {
	if len(events) == 0 {
		return "", "", errors.New("no events")
	}

	rows := make([]summaryRow, 0, len(events))
	var (
		minAt time.Time
		maxAt time.Time
	)
	for i, evt := range events {
		at := time.Now()
		if evt.At > 0 {
			at = time.UnixMilli(evt.At)
		}
		if i == 0 || at.Before(minAt) {
			minAt = at
		}
		if i == 0 || at.After(maxAt) {
			maxAt = at
		}
		rows = append(rows, summaryRow{
			At:      at.Format("2006-01-02 15:04:05"),
			Kind:    string(evt.Kind),
			Account: safeText(evt.Account, "-"),
			Status:  statusLabel(evt.Status),
			Message: safeText(evt.Message, resultLine(evt)),
		})
	}

	data := struct {
		Total int
		Start string
		End   string
		Rows  []summaryRow
	}{
		Total: len(events),
		Start: minAt.Format("2006-01-02 15:04:05"),
		End:   maxAt.Format("2006-01-02 15:04:05"),
		Rows:  rows,
	}

	var buf bytes.Buffer
	if err := emailSummaryHTMLTpl.Execute(&buf, data); err != nil {
		return "", "", err
	}

	text := new(strings.Builder)
	text.WriteString("Campaign summary\n")
	fmt.Fprintf(text, "%d run(s), %s ~ %s\n", len(events), data.Start, data.End)
	for _, row := range rows {
		fmt.Fprintf(text, "- %s | %s | %s | %s | %s\n", row.At, row.Kind, row.Account, row.Status, row.Message)
	}
	return buf.String(), text.String(), nil
}

func resultLine(evt CampaignFinishedEvent) string {
	switch evt.Kind {
	case model.TaskKindMessaging:
		return fmt.Sprintf("%d replies", evt.Replies)
	case model.TaskKindPost:
		if evt.PostSucceeded {
			return "post published"
		}
		return "post failed"
	default:
		return fmt.Sprintf("%d of %d sent", evt.Sent, evt.Budget)
	}
}

func safeText(v string, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}
