package alert_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oakmoss/graphrag/pkg/alert"
	"github.com/oakmoss/graphrag/pkg/config"
)

func unreachableConfig() config.AlertConfig {
	return config.AlertConfig{
		Enabled:         true,
		SMTPHost:        "127.0.0.1",
		SMTPPort:        1, // nothing listens here; SendMail always fails fast
		From:            "graphrag@example.com",
		To:              []string{"oncall@example.com"},
		CooldownSeconds: 300,
	}
}

func TestEmailAlerterDisabledIsANoOp(t *testing.T) {
	cfg := unreachableConfig()
	cfg.Enabled = false
	a := alert.NewEmailAlerter(cfg)

	assert.NoError(t, a.Alert(alert.SeverityWarning, "subject", "message"))
}

func TestEmailAlerterSuppressesRepeatWarningWithinCooldown(t *testing.T) {
	a := alert.NewEmailAlerter(unreachableConfig())

	err := a.Alert(alert.SeverityWarning, "circuit breaker tripped", "first")
	assert.Error(t, err) // attempted send, no SMTP server there

	err = a.Alert(alert.SeverityWarning, "circuit breaker tripped", "second")
	assert.NoError(t, err) // suppressed by cooldown, not attempted
}

func TestEmailAlerterDoesNotSuppressDistinctSubjects(t *testing.T) {
	a := alert.NewEmailAlerter(unreachableConfig())

	assert.Error(t, a.Alert(alert.SeverityWarning, "subject A", "msg"))
	assert.Error(t, a.Alert(alert.SeverityWarning, "subject B", "msg"))
}

func TestEmailAlerterCriticalBypassesCooldown(t *testing.T) {
	a := alert.NewEmailAlerter(unreachableConfig())

	assert.Error(t, a.Alert(alert.SeverityCritical, "circuit breaker tripped", "first"))
	assert.Error(t, a.Alert(alert.SeverityCritical, "circuit breaker tripped", "second"))
}

func TestEmailAlerterZeroCooldownNeverSuppresses(t *testing.T) {
	cfg := unreachableConfig()
	cfg.CooldownSeconds = 0
	a := alert.NewEmailAlerter(cfg)

	assert.Error(t, a.Alert(alert.SeverityWarning, "subject", "first"))
	assert.Error(t, a.Alert(alert.SeverityWarning, "subject", "second"))
}

func TestNoOpAlerterNeverErrors(t *testing.T) {
	var n alert.Alerter = &alert.NoOpAlerter{}
	assert.NoError(t, n.Alert(alert.SeverityCritical, "subject", "message"))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "warning", alert.SeverityWarning.String())
	assert.Equal(t, "critical", alert.SeverityCritical.String())
}
