package domain

import "time"

// Email is a message retrieved from a mailbox provider.
type Email struct {
	ID         string    `json:"id" mapstructure:"id"`
	Subject    string    `json:"subject" mapstructure:"subject"`
	Sender     string    `json:"sender" mapstructure:"sender"`
	Body       string    `json:"body" mapstructure:"body"`
	ReceivedAt time.Time `json:"received_at,omitzero" mapstructure:"received_at"`
}

// OutgoingEmail is a plain-text email to deliver.
type OutgoingEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EventRequest describes a calendar event to create.
type EventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
	TimeZone    string    `json:"time_zone,omitempty"`
}

// Event is a calendar event as returned by a calendar provider.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
	Link        string    `json:"link,omitempty"`
}
