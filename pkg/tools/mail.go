package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/registry"
)

const (
	searchFetchLimit  = 5
	searchResultLimit = 2
)

type searchArgs struct {
	Query string        `mapstructure:"query" validate:"required"`
	Mail  ports.Mailbox `mapstructure:"mail" validate:"-"`
}

func searchMail(ctx context.Context, args searchArgs) (any, error) {
	emails, err := args.Mail.Search(ctx, args.Query, searchFetchLimit)
	if err != nil {
		return nil, &domain.ProviderError{Tool: SearchMail, Op: "search emails", Err: err}
	}
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	if len(emails) > searchResultLimit {
		emails = emails[:searchResultLimit]
	}
	if emails == nil {
		emails = []domain.Email{}
	}
	return emails, nil
}

type summarizeArgs struct {
	Emails []domain.Email `mapstructure:"emails" validate:"required,min=1"`
}

func (d Deps) summarizeMail(ctx context.Context, args summarizeArgs) (any, error) {
	var sb strings.Builder
	for i, e := range args.Emails {
		fmt.Fprintf(&sb, "Email %d\nFrom: %s\nSubject: %s\n%s\n\n", i+1, e.Sender, e.Subject, e.Body)
	}
	summary, err := d.complete(ctx, fmt.Sprintf(summarizePrompt, sb.String()))
	if err != nil {
		return nil, &domain.InferenceError{Err: err}
	}
	return strings.TrimSpace(summary), nil
}

type sendArgs struct {
	To      string        `mapstructure:"to" validate:"required,email"`
	Subject string        `mapstructure:"subject" validate:"required"`
	Body    string        `mapstructure:"body" validate:"required"`
	Mail    ports.Mailbox `mapstructure:"mail" validate:"-"`
}

func (a sendArgs) email() domain.OutgoingEmail {
	return domain.OutgoingEmail{To: a.To, Subject: a.Subject, Body: a.Body}
}

func sendEmail(ctx context.Context, args sendArgs) (any, error) {
	return deliver(ctx, SendEmail, args.Mail, args.email())
}

type sendConfirmedArgs struct {
	ConfirmationID string        `mapstructure:"confirmation_id" validate:"required"`
	Mail           ports.Mailbox `mapstructure:"mail" validate:"-"`
	Approvals      Approvals     `mapstructure:"approvals" validate:"-"`
}

func sendConfirmedEmail(ctx context.Context, args sendConfirmedArgs) (any, error) {
	c, ok := args.Approvals.Lookup(args.ConfirmationID)
	if !ok {
		return nil, &domain.InvalidArgumentsError{
			Fields: []string{domain.ConfirmationArgument},
			Reason: fmt.Sprintf("no pending confirmation %q", args.ConfirmationID),
		}
	}

	var confirmed sendArgs
	if err := registry.Decode(c.Request.Arguments, &confirmed); err != nil {
		return nil, err
	}

	result, err := deliver(ctx, SendConfirmedEmail, args.Mail, confirmed.email())
	if err != nil {
		return nil, err
	}
	args.Approvals.Consume(c.ID)
	return result, nil
}

func deliver(ctx context.Context, tool string, mail ports.Mailbox, email domain.OutgoingEmail) (string, error) {
	if err := mail.Send(ctx, email); err != nil {
		return "", &domain.ProviderError{Tool: tool, Op: "send email", Err: err}
	}
	return fmt.Sprintf("Email sent to %s with subject '%s'", email.To, email.Subject), nil
}

// CheckSend validates the arguments of a send_email request without sending
// anything, so an unusable email is never offered for confirmation.
func CheckSend(req domain.ToolCallRequest) error {
	raw := make(map[string]any, len(req.Arguments))
	for k, v := range req.Arguments {
		if k != HandleMail {
			raw[k] = v
		}
	}
	var args sendArgs
	if err := registry.Decode(raw, &args); err != nil {
		var invalid *domain.InvalidArgumentsError
		if errors.As(err, &invalid) && invalid.Tool == "" {
			tagged := *invalid
			tagged.Tool = req.Name
			return &tagged
		}
		return err
	}
	return nil
}

// Preview renders the human-readable preview of a send_email request.
func Preview(req domain.ToolCallRequest) string {
	str := func(key string) string {
		if v, ok := req.Arguments[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return "(missing)"
	}
	return fmt.Sprintf("To: %s\nSubject: %s\n\n%s", str("to"), str("subject"), str("body"))
}
