package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/missive/pkg/domain"
	"github.com/aretw0/missive/pkg/ports"
	"github.com/aretw0/missive/pkg/schema"
)

const (
	summarizePrompt = "Summarize the following emails in a few short bullet points. Mention who wrote each one.\n\n%s"

	meetingPrompt = `Extract the meeting details from the request below.
Reply with only a JSON object of the form
{"title": string, "datetime_text": string, "participants": [string]}.
Copy the date and time exactly as written in the request.

Request: %s`

	draftPrompt = `Write an email for the instruction below.
Reply with only a JSON object of the form {"subject": string, "body": string}.

Instruction: %s`

	defaultMeetingTitle = "Meeting"
)

// MeetingRequest is the result of parse_meeting_request.
type MeetingRequest struct {
	Title        string   `json:"title"`
	DateTime     string   `json:"datetime"`
	Participants []string `json:"participants"`
}

type meetingExtraction struct {
	Title        string   `json:"title"`
	DateTimeText string   `json:"datetime_text" validate:"required"`
	Participants []string `json:"participants"`
}

type parseMeetingArgs struct {
	Text string `mapstructure:"text" validate:"required"`
}

func (d Deps) parseMeetingRequest(ctx context.Context, args parseMeetingArgs) (any, error) {
	reply, err := d.complete(ctx, fmt.Sprintf(meetingPrompt, args.Text))
	if err != nil {
		return nil, &domain.InferenceError{Err: err}
	}

	var extracted meetingExtraction
	if err := schema.DecodeStrict(reply, &extracted); err != nil {
		return nil, &domain.InferenceError{Err: err}
	}

	when, err := d.Dates.Resolve(extracted.DateTimeText, d.Now())
	if err != nil {
		return nil, withField(err, "text")
	}

	out := MeetingRequest{
		Title:        strings.TrimSpace(extracted.Title),
		DateTime:     when.Format(time.RFC3339),
		Participants: extracted.Participants,
	}
	if out.Title == "" {
		out.Title = defaultMeetingTitle
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	return out, nil
}

// Draft is a drafted email.
type Draft struct {
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// WriteDraft asks the model for an email drafted from instruction.
// A reply that is not a valid {subject, body} object fails with *domain.InferenceError.
func WriteDraft(ctx context.Context, c ports.Completer, instruction string) (Draft, error) {
	if c == nil {
		return Draft{}, &domain.InferenceError{Err: errNoCompleter}
	}
	reply, err := c.Complete(ctx, fmt.Sprintf(draftPrompt, instruction))
	if err != nil {
		return Draft{}, &domain.InferenceError{Err: err}
	}
	var draft Draft
	if err := schema.DecodeStrict(reply, &draft); err != nil {
		return Draft{}, &domain.InferenceError{Err: err}
	}
	return draft, nil
}

type draftArgs struct {
	Instruction string `mapstructure:"instruction" validate:"required"`
}

func (d Deps) draftEmail(ctx context.Context, args draftArgs) (any, error) {
	return WriteDraft(ctx, d.Completer, args.Instruction)
}
