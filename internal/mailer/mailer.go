// Package mailer delivers outreach emails over SMTP.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Server holds decrypted SMTP connection settings for one account.
type Server struct {
	Host     string
	Port     int
	Username string
	Password string
}

type Message struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	HTML      string
}

// Transport sends one message and reports success or failure.
type Transport interface {
	Send(ctx context.Context, server Server, msg Message) error
}

type SMTPTransport struct {
	Timeout time.Duration
}

func NewSMTPTransport(timeout time.Duration) *SMTPTransport {
	return &SMTPTransport{Timeout: timeout}
}

func (t *SMTPTransport) Send(ctx context.Context, server Server, msg Message) error {
	m := mail.NewMsg()
	fromName := msg.FromName
	if fromName == "" {
		fromName = server.Username
	}
	if err := m.FromFormat(fromName, msg.FromEmail); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	opts := []mail.Option{
		mail.WithPort(server.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(server.Username),
		mail.WithPassword(server.Password),
	}
	if t.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(t.Timeout))
	}
	// Port 465 speaks implicit TLS; everything else upgrades with STARTTLS when offered.
	if server.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(server.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

var _ Transport = (*SMTPTransport)(nil)
