// Package mailer delivers plain text emails (with an optional HTML part) through an SMTP relay.
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// ErrAuth is wrapped into errors caused by the relay rejecting the credentials.
var ErrAuth = errors.New("smtp authentication failed")

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// TLSConfig overrides the STARTTLS settings, e.g. to trust a private CA. Optional.
	TLSConfig *tls.Config
}

// SMTPSender connects with STARTTLS and PLAIN auth for every message.
type SMTPSender struct {
	cfg Config
}

func NewSMTPSender(cfg Config) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := buildMsg(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.TLSConfig != nil {
		opts = append(opts, mail.WithTLSConfig(s.cfg.TLSConfig))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("mailer: new client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("mailer: %w: %v", ErrAuth, err)
		}
		return fmt.Errorf("mailer: send: %w", err)
	}
	return nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("mailer: invalid sender %q: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("mailer: invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// isAuthError matches the reply codes relays use for rejected credentials.
// go-mail prefixes failures of the AUTH exchange with "SMTP AUTH failed", which also
// covers relays answering with a non-standard code.
func isAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return true
		}
	}
	return strings.Contains(err.Error(), "SMTP AUTH failed")
}
