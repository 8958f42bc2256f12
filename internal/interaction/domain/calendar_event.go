package domain

import (
	"strings"
	"time"
)

// CalendarEvent is one ingested meeting. Upserted by (UserID, ExternalID).
type CalendarEvent struct {
	ID            string          `json:"id" gorm:"primaryKey"`
	UserID        string          `json:"user_id" gorm:"not null"`
	ExternalID    string          `json:"external_id" gorm:"not null"`
	Title         string          `json:"title"`
	Description   string          `json:"description" gorm:"type:text"`
	Location      string          `json:"location,omitempty"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	IsAllDay      bool            `json:"is_all_day"`
	Status        string          `json:"status,omitempty"`
	Organizer     string          `json:"organizer"`
	OrganizerName string          `json:"organizer_name,omitempty"`
	Attendees     []EventAttendee `json:"attendees" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type EventAttendee struct {
	EventID        string `json:"-" gorm:"primaryKey"`
	Position       int    `json:"position" gorm:"primaryKey;autoIncrement:false"`
	Email          string `json:"email" gorm:"not null"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
}

// Participants returns the organizer followed by every attendee, lower-cased.
func (e *CalendarEvent) Participants() []string {
	out := make([]string, 0, len(e.Attendees)+1)
	if e.Organizer != "" {
		out = append(out, strings.ToLower(e.Organizer))
	}
	for _, a := range e.Attendees {
		out = append(out, strings.ToLower(a.Email))
	}
	return out
}

func (e *CalendarEvent) Involves(address string) bool {
	address = strings.ToLower(address)
	for _, p := range e.Participants() {
		if p == address {
			return true
		}
	}
	return false
}
