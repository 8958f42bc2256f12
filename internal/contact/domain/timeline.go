package domain

import (
	"encoding/json"
	"time"
)

type TimelineItemType string

const (
	TimelineEmail    TimelineItemType = "email"
	TimelineCalendar TimelineItemType = "calendar"
)

// TimelineItem is one entry of a contact's merged feed. Exactly one of Email or
// Calendar is set, matching Type.
type TimelineItem struct {
	ID       string
	Type     TimelineItemType
	Date     time.Time
	Title    string
	Email    *EmailDetails
	Calendar *CalendarDetails
}

type EmailDetails struct {
	From     string `json:"from"`
	FromName string `json:"fromName"`
	Body     string `json:"body"`
	IsRead   bool   `json:"isRead"`
}

type CalendarDetails struct {
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Organizer   string    `json:"organizer"`
}

type timelineItemJSON struct {
	ID      string           `json:"id"`
	Type    TimelineItemType `json:"type"`
	Date    time.Time        `json:"date"`
	Title   string           `json:"title"`
	Details any              `json:"details"`
}

// MarshalJSON flattens the variant into a single "details" object.
func (t TimelineItem) MarshalJSON() ([]byte, error) {
	out := timelineItemJSON{ID: t.ID, Type: t.Type, Date: t.Date, Title: t.Title}
	switch t.Type {
	case TimelineEmail:
		out.Details = t.Email
	case TimelineCalendar:
		out.Details = t.Calendar
	}
	return json.Marshal(out)
}
