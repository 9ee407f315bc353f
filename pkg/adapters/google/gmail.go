package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"google.golang.org/api/gmail/v1"
)

const me = "me"

// Mailbox is a ports.Mailbox backed by the Gmail API.
type Mailbox struct {
	svc *gmail.Service
}

// NewMailbox wraps an authorized Gmail service.
func NewMailbox(svc *gmail.Service) *Mailbox {
	return &Mailbox{svc: svc}
}

// Search lists up to limit messages matching query and fetches each one in full.
func (m *Mailbox) Search(ctx context.Context, query string, limit int) ([]domain.Email, error) {
	list, err := m.svc.Users.Messages.List(me).Q(query).MaxResults(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	emails := make([]domain.Email, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := m.svc.Users.Messages.Get(me, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("fetching message %s: %w", ref.Id, err)
		}
		emails = append(emails, toEmail(msg))
	}
	return emails, nil
}

// Send delivers a plain-text email from the authorized account.
func (m *Mailbox) Send(ctx context.Context, email domain.OutgoingEmail) error {
	raw := base64.URLEncoding.EncodeToString([]byte(composeMIME(email)))
	if _, err := m.svc.Users.Messages.Send(me, &gmail.Message{Raw: raw}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

func toEmail(msg *gmail.Message) domain.Email {
	e := domain.Email{
		ID:         msg.Id,
		Subject:    "No Subject",
		Sender:     "Unknown",
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload == nil {
		e.Body = msg.Snippet
		return e
	}
	for _, h := range msg.Payload.Headers {
		switch {
		case strings.EqualFold(h.Name, "Subject") && h.Value != "":
			e.Subject = h.Value
		case strings.EqualFold(h.Name, "From") && h.Value != "":
			e.Sender = h.Value
		}
	}
	if body, ok := plainTextBody(msg.Payload); ok {
		e.Body = body
	} else {
		e.Body = msg.Snippet
	}
	return e
}

// plainTextBody walks the MIME tree depth-first for the first text/plain part.
func plainTextBody(part *gmail.MessagePart) (string, bool) {
	if len(part.Parts) > 0 {
		for _, p := range part.Parts {
			if body, ok := plainTextBody(p); ok {
				return body, true
			}
		}
		return "", false
	}
	if part.MimeType != "text/plain" || part.Body == nil || part.Body.Data == "" {
		return "", false
	}
	data, err := base64.URLEncoding.DecodeString(part.Body.Data)
	if err != nil {
		if data, err = base64.RawURLEncoding.DecodeString(part.Body.Data); err != nil {
			return "", false
		}
	}
	return strings.ToValidUTF8(string(data), ""), true
}

func composeMIME(email domain.OutgoingEmail) string {
	var sb strings.Builder
	sb.WriteString("To: " + email.To + "\r\n")
	sb.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", email.Subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(email.Body)
	return sb.String()
}
