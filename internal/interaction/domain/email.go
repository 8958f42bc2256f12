package domain

import (
	"strings"
	"time"
)

// Email is one ingested message. Immutable once stored except for read/label flags.
type Email struct {
	ID          string           `json:"id" gorm:"primaryKey"`
	UserID      string           `json:"user_id" gorm:"not null"`
	ExternalID  string           `json:"external_id" gorm:"not null"`
	ThreadID    string           `json:"thread_id,omitempty"`
	Subject     string           `json:"subject"`
	FromEmail   string           `json:"from_email"`
	FromName    string           `json:"from_name,omitempty"`
	Body        string           `json:"body" gorm:"type:text"`
	IsRead      bool             `json:"is_read"`
	IsImportant bool             `json:"is_important"`
	Labels      []string         `json:"labels" gorm:"serializer:json;type:jsonb;not null"`
	ReceivedAt  time.Time        `json:"received_at"`
	Recipients  []EmailRecipient `json:"recipients" gorm:"foreignKey:EmailID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// EmailRecipient is one entry of a message's To list, kept in header order.
type EmailRecipient struct {
	EmailID     string `json:"-" gorm:"primaryKey"`
	Position    int    `json:"position" gorm:"primaryKey;autoIncrement:false"`
	Address     string `json:"address" gorm:"not null"`
	DisplayName string `json:"display_name,omitempty"`
}

// Participants returns the sender followed by every recipient, lower-cased.
// Duplicates are preserved; callers that need a set dedupe themselves.
func (e *Email) Participants() []string {
	out := make([]string, 0, len(e.Recipients)+1)
	if e.FromEmail != "" {
		out = append(out, strings.ToLower(e.FromEmail))
	}
	for _, r := range e.Recipients {
		out = append(out, strings.ToLower(r.Address))
	}
	return out
}

// Involves reports whether address is the sender or one of the recipients.
func (e *Email) Involves(address string) bool {
	address = strings.ToLower(address)
	for _, p := range e.Participants() {
		if p == address {
			return true
		}
	}
	return false
}
