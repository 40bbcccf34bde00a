// Package alert notifies operators when the retrieval pipeline's
// External-transient error budget runs out (spec §7): a circuit
// breaker trip. Alerts are severity-tagged and deduped within a
// cooldown window so a flapping provider doesn't flood the mailbox.
package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/oakmoss/graphrag/pkg/config"
)

// Severity classifies an alert for routing/formatting; Critical alerts
// are sent even while a Warning for the same subject is in its
// cooldown window.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityCritical
)

func (s Severity) String() string {
	if s == SeverityCritical {
		return "critical"
	}
	return "warning"
}

// Alerter defines an interface for sending alerts.
type Alerter interface {
	Alert(severity Severity, subject, message string) error
}

// EmailAlerter implements Alerter over SMTP, suppressing repeat alerts
// for the same subject within cfg.CooldownSeconds and logging every
// send or suppression via slog.
type EmailAlerter struct {
	cfg config.AlertConfig
	log *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewEmailAlerter creates a new email alerter.
func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{
		cfg:      cfg,
		log:      slog.Default().With("component", "alert"),
		lastSent: make(map[string]time.Time),
	}
}

// Alert sends an email with the given subject and message, unless the
// same subject already fired within the cooldown window and severity
// is not Critical.
func (a *EmailAlerter) Alert(severity Severity, subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	if a.suppressed(severity, subject) {
		a.log.Info("alert suppressed by cooldown", "severity", severity, "subject", subject)
		return nil
	}

	auth := smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)

	to := a.cfg.To
	msg := []byte(fmt.Sprintf("To: %s\r\n"+
		"Subject: [%s] %s\r\n"+
		"\r\n"+
		"%s\r\n", strings.Join(to, ","), strings.ToUpper(severity.String()), subject, message))

	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)

	if err := smtp.SendMail(addr, auth, a.cfg.From, to, msg); err != nil {
		a.log.Error("send alert email", "severity", severity, "subject", subject, "error", err)
		return fmt.Errorf("alert: send email: %w", err)
	}

	a.log.Warn("alert sent", "severity", severity, "subject", subject)
	return nil
}

// suppressed reports whether subject fired within the cooldown window,
// recording this call's timestamp as a side effect when it does not.
func (a *EmailAlerter) suppressed(severity Severity, subject string) bool {
	if a.cfg.CooldownSeconds <= 0 || severity == SeverityCritical {
		a.recordSent(subject)
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cooldown := time.Duration(a.cfg.CooldownSeconds) * time.Second
	if last, ok := a.lastSent[subject]; ok && time.Since(last) < cooldown {
		return true
	}
	a.lastSent[subject] = time.Now()
	return false
}

func (a *EmailAlerter) recordSent(subject string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastSent[subject] = time.Now()
}

// NoOpAlerter discards alerts, for when alerting is disabled.
type NoOpAlerter struct{}

func (n *NoOpAlerter) Alert(_ Severity, _, _ string) error {
	return nil
}
