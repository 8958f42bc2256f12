package usecase

import (
	"context"
	"fmt"
	"sort"

	"kithbook-backend/internal/contact/domain"
	"kithbook-backend/internal/contact/identity"
	interactiondomain "kithbook-backend/internal/interaction/domain"
	"kithbook-backend/pkg/apperrors"
)

const timelineSnippetLength = 200

func (u *contactUsecase) GetContactTimeline(ctx context.Context, userID, contactEmail string) ([]domain.TimelineItem, error) {
	address := identity.NormalizeEmail(contactEmail)

	emails, err := u.interactionRepo.FindEmailsForAddress(ctx, userID, address)
	if err != nil {
		return nil, fmt.Errorf("load emails: %w", err)
	}
	events, err := u.interactionRepo.FindEventsForAddress(ctx, userID, address)
	if err != nil {
		return nil, fmt.Errorf("load calendar events: %w", err)
	}

	return buildTimeline(emails, events), nil
}

func (u *contactUsecase) GetContactTimelineByID(ctx context.Context, userID, contactID string) ([]domain.TimelineItem, error) {
	contact, err := u.contactRepo.FindByID(ctx, userID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, apperrors.ErrNotFound
	}
	return u.GetContactTimeline(ctx, userID, contact.Email)
}

// buildTimeline merges both feeds newest first. Equal timestamps keep input
// order: emails before events, each in the order given.
func buildTimeline(emails []*interactiondomain.Email, events []*interactiondomain.CalendarEvent) []domain.TimelineItem {
	items := make([]domain.TimelineItem, 0, len(emails)+len(events))

	for _, e := range emails {
		title := e.Subject
		if title == "" {
			title = "No Subject"
		}
		items = append(items, domain.TimelineItem{
			ID:    e.ID,
			Type:  domain.TimelineEmail,
			Date:  e.ReceivedAt,
			Title: title,
			Email: &domain.EmailDetails{
				From:     e.FromEmail,
				FromName: e.FromName,
				Body:     truncate(e.Body, timelineSnippetLength),
				IsRead:   e.IsRead,
			},
		})
	}

	for _, ev := range events {
		title := ev.Title
		if title == "" {
			title = "No Title"
		}
		items = append(items, domain.TimelineItem{
			ID:    ev.ID,
			Type:  domain.TimelineCalendar,
			Date:  ev.StartTime,
			Title: title,
			Calendar: &domain.CalendarDetails{
				StartTime:   ev.StartTime,
				EndTime:     ev.EndTime,
				Location:    ev.Location,
				Description: truncate(ev.Description, timelineSnippetLength),
				Status:      ev.Status,
				Organizer:   ev.Organizer,
			},
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
