package service

import (
	"bytes"
	"context"
	"errors"
	"net/mail"
	"strings"

	"englishbuddy/internal/mailer"
	"englishbuddy/internal/notebook/model"
	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/logger"
	"englishbuddy/pkg/metrics"

	"github.com/yuin/goldmark"
)

//go:generate mockgen -source=notebook.service.go -destination=../../../mocks/sender.go -package=mocks

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

const (
	Subject = "Twoje słówka z notatnika AI English Buddy"

	bodyHeader = "Oto Twoje słowa z notatnika AI English Buddy:\n\n"
	bodyFooter = "\nPowodzenia w nauce!"
)

type NotebookService struct {
	Mail Sender
	From string
	// Configured is false when the relay settings are incomplete.
	Configured bool
}

func NewNotebookService(sender Sender, from string, configured bool) *NotebookService {
	return &NotebookService{Mail: sender, From: from, Configured: configured}
}

// Send emails the notebook entries to recipient.
func (s *NotebookService) Send(ctx context.Context, recipient string, entries []model.NotebookEntry) error {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || len(entries) == 0 {
		return apperror.NewValidation("Recipient email and notebook words are required")
	}
	if _, err := mail.ParseAddress(recipient); err != nil {
		return apperror.NewValidation("Recipient email is not a valid address")
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Original) == "" {
			return apperror.NewValidation("Every notebook word needs an original text")
		}
	}

	if !s.Configured || s.Mail == nil {
		return apperror.NewConfiguration("Mail server configuration is incomplete")
	}

	body := ComposeBody(entries)
	html, err := renderHTML(body)
	if err != nil {
		// The plain text part is enough to deliver the words.
		logger.Sugar.Warnf("Failed to render notebook HTML: %v", err)
		html = ""
	}

	err = s.Mail.Send(ctx, mailer.Message{
		From:    s.From,
		To:      recipient,
		Subject: Subject,
		Text:    body,
		HTML:    html,
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to send notebook email to %s: %v", recipient, err)
		if errors.Is(err, mailer.ErrAuth) {
			metrics.MailSend.WithLabelValues("auth_error").Inc()
			return apperror.NewMailAuth(err)
		}
		metrics.MailSend.WithLabelValues("error").Inc()
		return apperror.NewMailUnavailable(err)
	}

	metrics.MailSend.WithLabelValues("sent").Inc()
	logger.Sugar.Infof("Sent %d notebook words to %s", len(entries), recipient)
	return nil
}

// ComposeBody renders the plain text email: a greeting, one "- original - translated"
// line per entry and a sign-off.
func ComposeBody(entries []model.NotebookEntry) string {
	var b strings.Builder
	b.WriteString(bodyHeader)
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.Original)
		b.WriteString(" - ")
		b.WriteString(e.Translated)
		b.WriteString("\n")
	}
	b.WriteString(bodyFooter)
	return b.String()
}

// renderHTML treats the plain body as Markdown. Raw HTML in entries is omitted by goldmark.
func renderHTML(body string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(body), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
