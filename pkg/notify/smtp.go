package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPNotifier struct {
	Sender MailSender
	From   string
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("notify: smtp host and sender address are required")
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &SMTPNotifier{
		Sender: gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		From:   cfg.From,
	}, nil
}

func (n *SMTPNotifier) Kind() string { return "smtp" }

// SendInvite dials per message. gomail has no context support, so ctx is
// only checked before dialing.
func (n *SMTPNotifier) SendInvite(ctx context.Context, msg InviteMessage) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", Subject(msg))
	m.SetBody("text/plain", TextBody(msg))

	if err := n.Sender.DialAndSend(m); err != nil {
		return fmt.Errorf("%w: smtp: %v", ErrDelivery, err)
	}
	return nil
}
