// Package notify sends purchase confirmations by email.
package notify

import (
	"context" // Send cancellation
	"fmt"     // Message body
	"time"    // Send timeout

	"github.com/pkg/errors"       // Error wrapping
	"github.com/wneessen/go-mail" // SMTP client and messages
)

// Subject of every purchase confirmation.
const Subject = "Stock purchase confirmation"

// Dialer delivers messages over an SMTP connection. *mail.Client satisfies it.
type Dialer interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailSender mails a confirmation to the configured mailbox after each purchase.
type EmailSender struct {
	dialer  Dialer        // SMTP connection
	mailbox string        // Sender and recipient
	timeout time.Duration // Bound on a single send
}

// SMTPConfig describes the outbound mail connection.
type SMTPConfig struct {
	Host     string        // SMTP host
	Port     int           // SMTPS port
	Username string        // Mailbox and login
	Password string        // Mailbox password
	Timeout  time.Duration // Bound on a single send
}

// NewSMTPSender builds a sender that talks implicit TLS (SMTPS) with PLAIN auth.
// Messages go from and to cfg.Username.
func NewSMTPSender(cfg SMTPConfig) (*EmailSender, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),               // SMTPS port
		mail.WithSSL(),                        // Implicit TLS
		mail.WithSMTPAuth(mail.SMTPAuthPlain), // PLAIN auth
		mail.WithUsername(cfg.Username),       // Login
		mail.WithPassword(cfg.Password),       // Password
		mail.WithTimeout(cfg.Timeout),         // Connection timeout
	)
	if err != nil {
		return nil, errors.Wrap(err, "configure smtp client")
	}
	return NewEmailSender(client, cfg.Username, cfg.Timeout), nil
}

// NewEmailSender wraps an existing dialer.
func NewEmailSender(dialer Dialer, mailbox string, timeout time.Duration) *EmailSender {
	return &EmailSender{dialer: dialer, mailbox: mailbox, timeout: timeout}
}

// PurchaseMessage builds the confirmation for quantity shares of symbol.
func (s *EmailSender) PurchaseMessage(symbol string, quantity int64) (*mail.Msg, error) {
	m := mail.NewMsg() // New message
	if err := m.From(s.mailbox); err != nil {
		return nil, errors.Wrap(err, "set sender")
	}
	if err := m.To(s.mailbox); err != nil {
		return nil, errors.Wrap(err, "set recipient")
	}
	m.Subject(Subject) // Fixed subject
	m.SetBodyString(mail.TypeTextPlain, fmt.Sprintf("You have bought %d shares of %s.", quantity, symbol))
	return m, nil
}

// NotifyPurchase sends one confirmation. It blocks for at most the configured timeout.
func (s *EmailSender) NotifyPurchase(ctx context.Context, symbol string, quantity int64) error {
	m, err := s.PurchaseMessage(symbol, quantity)
	if err != nil {
		return err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout) // Bound the send
		defer cancel()
	}
	if err := s.dialer.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrapf(err, "send purchase confirmation for %s", symbol)
	}
	return nil
}
