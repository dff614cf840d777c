package notification

import (
	"context"

	"shoe_market_backend/internal/config"

	"github.com/pkg/errors"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Mailer delivers one rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay with go-mail.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewMailer returns an SMTPMailer, or a LogMailer when SMTP_HOST is empty.
func NewMailer(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	if cfg.SMTPHost == "" {
		logger.Info("SMTP_HOST not set, emails will only be logged")
		return NewLogMailer(logger), nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create SMTP client")
	}
	return &SMTPMailer{client: client, from: cfg.EmailFrom}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	out := mail.NewMsg()
	if err := out.From(m.from); err != nil {
		return errors.Wrapf(err, "invalid sender %q", m.from)
	}
	if err := out.To(msg.To); err != nil {
		return errors.Wrapf(err, "invalid recipient %q", msg.To)
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		out.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	if err := m.client.DialAndSendWithContext(ctx, out); err != nil {
		return errors.Wrapf(err, "failed to send %q to %s", msg.Subject, msg.To)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("LogMailer")}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("Email (not sent, SMTP disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return nil
}
