// Package notify sends the run-completion email. Delivery goes through
// net/smtp directly; the message is a short plain-text summary.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bloemhof/grocer-cli/internal/config"
	"github.com/bloemhof/grocer-cli/internal/model"
	"github.com/bloemhof/grocer-cli/internal/resilience"
)

// Notifier delivers a completion message.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// SMTPNotifier sends mail over SMTP with PLAIN auth. With no host
// configured it degrades to a logged no-op, so notification is optional.
type SMTPNotifier struct {
	cfg   config.NotifyConfig
	retry resilience.RetryConfig
	send  func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates an SMTPNotifier.
func New(cfg config.NotifyConfig) *SMTPNotifier {
	return &SMTPNotifier{
		cfg:   cfg,
		retry: resilience.DefaultRetryConfig(),
		send:  smtp.SendMail,
	}
}

// Send delivers one message. Transient delivery faults are retried.
func (n *SMTPNotifier) Send(ctx context.Context, subject, body string) error {
	if n.cfg.SMTPHost == "" || n.cfg.To == "" {
		zap.L().Debug("notification skipped, no smtp configured")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.SMTPHost)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		n.cfg.From, n.cfg.To, subject, body))

	err := resilience.Do(ctx, n.retry, func(ctx context.Context) error {
		return n.send(addr, auth, n.cfg.From, []string{n.cfg.To}, msg)
	})
	if err != nil {
		return eris.Wrap(err, "notify: send mail")
	}
	zap.L().Info("notification sent", zap.String("to", n.cfg.To))
	return nil
}

// Summary renders a run result as an email subject and body. Every failed
// item appears with its reason; nothing is dropped.
func Summary(requirement string, result model.ReconciliationResult) (subject, body string) {
	status := "target met"
	if !result.TargetMet {
		status = "under target"
	}
	subject = fmt.Sprintf("Grocery run %s: €%.2f", status, result.FinalTotal)

	var sb strings.Builder
	if requirement != "" {
		fmt.Fprintf(&sb, "Requirement: %s\n", requirement)
	}
	fmt.Fprintf(&sb, "Final total: €%.2f (%s)\n", result.FinalTotal, status)
	fmt.Fprintf(&sb, "Attempts: %d\n", result.Attempts)
	fmt.Fprintf(&sb, "Added: %d, skipped: %d, failed: %d\n",
		result.AddedCount, result.SkippedCount, len(result.FailedItems))

	if len(result.FailedItems) > 0 {
		sb.WriteString("\nFailed items:\n")
		for _, item := range result.FailedItems {
			fmt.Fprintf(&sb, "- %s: %s\n", item.Title, item.Reason)
		}
	}
	return subject, sb.String()
}
