package domain

import (
	"context"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
)

// Address is one parsed mailbox from a message header.
type Address struct {
	Email string
	Name  string
}

type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus string
}

// MessageRecord is a provider message normalized for ingestion.
type MessageRecord struct {
	ExternalID      string
	ThreadID        string
	FromAddress     string
	FromDisplayName string
	// FromHeader is the raw header, kept for name extraction when the display name is missing
	FromHeader string
	To         []Address
	Subject    string
	Body       string
	Labels     []string
	ReceivedAt time.Time
}

// EventRecord is a provider calendar event normalized for ingestion.
type EventRecord struct {
	ExternalID     string
	OrganizerEmail string
	OrganizerName  string
	Attendees      []Attendee
	Title          string
	Description    string
	Location       string
	StartTime      time.Time
	EndTime        time.Time
	IsAllDay       bool
	Status         string
}

// Source fetches already-normalized records for one user.
type Source interface {
	ListEvents(ctx context.Context, user *authdomain.User, from, to time.Time) ([]EventRecord, error)
	ListMessages(ctx context.Context, user *authdomain.User, query string, maxResults int64) ([]MessageRecord, error)
}
