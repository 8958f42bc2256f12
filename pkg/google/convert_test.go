package google

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func headers(kv ...string) []*gmail.MessagePartHeader {
	var out []*gmail.MessagePartHeader
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, &gmail.MessagePartHeader{Name: kv[i], Value: kv[i+1]})
	}
	return out
}

func TestConvertMessage(t *testing.T) {
	received := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	msg := &gmail.Message{
		Id:           "m-1",
		ThreadId:     "t-1",
		InternalDate: received.UnixMilli(),
		LabelIds:     []string{"INBOX", "UNREAD"},
		Snippet:      "snippet",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: headers(
				"From", `"Alice Smith" <Alice@Corp.com>`,
				"To", "Bob <bob@corp.com>, carol@corp.com",
				"Cc", "dave@corp.com",
				"Subject", "Quarterly plan",
			),
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: encode("<p>html body</p>")}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("plain body")}},
			},
		},
	}

	rec := convertMessage(msg)
	assert.Equal(t, "m-1", rec.ExternalID)
	assert.Equal(t, "t-1", rec.ThreadID)
	assert.Equal(t, "alice@corp.com", rec.FromAddress)
	assert.Equal(t, "Alice Smith", rec.FromDisplayName)
	assert.Equal(t, `"Alice Smith" <Alice@Corp.com>`, rec.FromHeader)
	assert.Equal(t, "Quarterly plan", rec.Subject)
	assert.Equal(t, "plain body", rec.Body)
	assert.True(t, rec.ReceivedAt.Equal(received))

	require.Len(t, rec.To, 2)
	assert.Equal(t, "bob@corp.com", rec.To[0].Email)
	assert.Equal(t, "Bob", rec.To[0].Name)
	assert.Equal(t, "carol@corp.com", rec.To[1].Email)
	for _, a := range rec.To {
		assert.NotEqual(t, "dave@corp.com", a.Email)
	}
}

func TestMessageBody_Fallbacks(t *testing.T) {
	htmlOnly := &gmail.Message{Payload: &gmail.MessagePart{
		MimeType: "text/html",
		Body:     &gmail.MessagePartBody{Data: encode("<div>Hello&nbsp;<b>there</b></div>")},
	}}
	assert.Equal(t, "Hello there", messageBody(htmlOnly))

	empty := &gmail.Message{Snippet: "just a snippet", Payload: &gmail.MessagePart{MimeType: "text/plain"}}
	assert.Equal(t, "just a snippet", messageBody(empty))

	assert.Equal(t, "no payload", messageBody(&gmail.Message{Snippet: "no payload"}))
}

func TestParseAddresses_MalformedHeaderFallsBack(t *testing.T) {
	msg := &gmail.Message{Payload: &gmail.MessagePart{Headers: headers(
		"From", "someone@corp.com",
		"To", "undisclosed-recipients:;, Broken <x@y.com",
	)}}

	rec := convertMessage(msg)
	assert.Equal(t, "someone@corp.com", rec.FromAddress)
	require.Len(t, rec.To, 1)
	assert.Equal(t, "x@y.com", rec.To[0].Email)
}

func TestConvertEvent_Timed(t *testing.T) {
	ev := &calendar.Event{
		Id:        "ev-1",
		Summary:   "Standup",
		Status:    "confirmed",
		Start:     &calendar.EventDateTime{DateTime: "2024-04-02T09:00:00+02:00"},
		End:       &calendar.EventDateTime{DateTime: "2024-04-02T09:15:00+02:00"},
		Organizer: &calendar.EventOrganizer{Email: "Lead@Corp.com", DisplayName: "Lead"},
		Attendees: []*calendar.EventAttendee{
			{Email: "a@corp.com", DisplayName: "A", ResponseStatus: "accepted"},
			{Email: ""},
		},
	}

	rec, ok := convertEvent(ev)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 4, 2, 7, 0, 0, 0, time.UTC), rec.StartTime)
	assert.Equal(t, time.Date(2024, 4, 2, 7, 15, 0, 0, time.UTC), rec.EndTime)
	assert.False(t, rec.IsAllDay)
	assert.Equal(t, "lead@corp.com", rec.OrganizerEmail)
	require.Len(t, rec.Attendees, 1)
	assert.Equal(t, "accepted", rec.Attendees[0].ResponseStatus)
}

func TestConvertEvent_AllDay(t *testing.T) {
	ev := &calendar.Event{
		Id:    "ev-2",
		Start: &calendar.EventDateTime{Date: "2024-04-02"},
		End:   &calendar.EventDateTime{Date: "2024-04-02"},
	}

	rec, ok := convertEvent(ev)
	require.True(t, ok)
	assert.True(t, rec.IsAllDay)
	assert.Equal(t, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), rec.StartTime)
	assert.Equal(t, time.Date(2024, 4, 2, 23, 59, 59, 0, time.UTC), rec.EndTime)
}

func TestConvertEvent_Unusable(t *testing.T) {
	_, ok := convertEvent(&calendar.Event{Start: &calendar.EventDateTime{Date: "2024-04-02"}})
	assert.False(t, ok, "missing id")

	_, ok = convertEvent(&calendar.Event{Id: "x"})
	assert.False(t, ok, "missing start")

	_, ok = convertEvent(&calendar.Event{Id: "x", Start: &calendar.EventDateTime{DateTime: "yesterday"}})
	assert.False(t, ok, "bad start")
}
