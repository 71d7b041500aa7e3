package notify

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers email through an SMTP relay.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return errors.Wrap(err, "invalid sender address")
	}
	if err := msg.To(recipient); err != nil {
		return errors.Wrapf(err, "invalid recipient %s", recipient)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{mail.WithPort(s.cfg.Port), mail.WithTLSPortPolicy(mail.TLSOpportunistic)}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password))
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return errors.Wrap(err, "smtp client")
	}
	return errors.Wrap(client.DialAndSendWithContext(ctx, msg), "smtp send")
}

// LogSender writes messages to the log instead of delivering them. It stands
// in for channels without a provider and for mail in development.
type LogSender struct {
	Channel Channel
}

func (s LogSender) Send(_ context.Context, recipient, subject, body string) error {
	log.WithFields(log.Fields{
		"channel":   s.Channel,
		"recipient": recipient,
		"subject":   subject,
	}).Info(body)
	return nil
}

// InboxWriter is the store method the admin inbox is written through.
type InboxWriter interface {
	CreateNotification(ctx context.Context, kind, message, link string) error
}

// InboxSender records messages in the admin notification inbox. The
// recipient is the notification kind and the subject an optional link.
type InboxSender struct {
	Store InboxWriter
}

func (s InboxSender) Send(ctx context.Context, kind, link, message string) error {
	return s.Store.CreateNotification(ctx, kind, message, link)
}
