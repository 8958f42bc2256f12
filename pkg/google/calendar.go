package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	syncdomain "kithbook-backend/internal/sync/domain"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	primaryCalendar   = "primary"
	maxCalendarEvents = 250
	allDayLayout      = "2006-01-02"
)

// ListEvents returns single events of the primary calendar starting in [from, to).
func (s *Service) ListEvents(ctx context.Context, user *authdomain.User, from, to time.Time) ([]syncdomain.EventRecord, error) {
	client, err := s.httpClient(ctx, user)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %w", err)
	}

	resp, err := srv.Events.List(primaryCalendar).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(maxCalendarEvents).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list events: %w", err)
	}

	records := make([]syncdomain.EventRecord, 0, len(resp.Items))
	for _, item := range resp.Items {
		if record, ok := convertEvent(item); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// convertEvent maps an API event. Events without an id or start are dropped.
func convertEvent(ev *calendar.Event) (syncdomain.EventRecord, bool) {
	if ev == nil || ev.Id == "" || ev.Start == nil {
		return syncdomain.EventRecord{}, false
	}

	start, allDay, ok := eventTime(ev.Start, false)
	if !ok {
		return syncdomain.EventRecord{}, false
	}
	end, _, ok := eventTime(ev.End, true)
	if !ok {
		end = start
	}

	record := syncdomain.EventRecord{
		ExternalID:  ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		StartTime:   start,
		EndTime:     end,
		IsAllDay:    allDay,
		Status:      ev.Status,
	}
	if ev.Organizer != nil {
		record.OrganizerEmail = strings.ToLower(ev.Organizer.Email)
		record.OrganizerName = ev.Organizer.DisplayName
	}
	for _, a := range ev.Attendees {
		if a == nil || a.Email == "" {
			continue
		}
		record.Attendees = append(record.Attendees, syncdomain.Attendee{
			Email:          strings.ToLower(a.Email),
			DisplayName:    a.DisplayName,
			ResponseStatus: a.ResponseStatus,
		})
	}
	return record, true
}

// eventTime reads a timed or all-day boundary. All-day ends land on the last second of the day.
func eventTime(t *calendar.EventDateTime, end bool) (time.Time, bool, bool) {
	if t == nil {
		return time.Time{}, false, false
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false, false
		}
		return parsed.UTC(), false, true
	}
	if t.Date != "" {
		parsed, err := time.Parse(allDayLayout, t.Date)
		if err != nil {
			return time.Time{}, false, false
		}
		if end {
			parsed = parsed.Add(24*time.Hour - time.Second)
		}
		return parsed, true, true
	}
	return time.Time{}, false, false
}
