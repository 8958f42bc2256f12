package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authrepo "kithbook-backend/internal/auth/repository"
	"kithbook-backend/internal/contact/identity"
	contactrepo "kithbook-backend/internal/contact/repository"
	contactusecase "kithbook-backend/internal/contact/usecase"
	interactiondomain "kithbook-backend/internal/interaction/domain"
	interactionrepo "kithbook-backend/internal/interaction/repository"
	"kithbook-backend/internal/sync/domain"
	"kithbook-backend/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyLength = 10000

type syncUsecase struct {
	userRepo        authrepo.UserRepository
	contactRepo     contactrepo.ContactRepository
	interactionRepo interactionrepo.InteractionRepository
	contacts        contactusecase.ContactUsecase
	source          domain.Source
	opts            Options
	logger          *zap.Logger
	now             func() time.Time
}

func NewSyncUsecase(
	userRepo authrepo.UserRepository,
	contactRepo contactrepo.ContactRepository,
	interactionRepo interactionrepo.InteractionRepository,
	contacts contactusecase.ContactUsecase,
	source domain.Source,
	opts Options,
	logger *zap.Logger,
) SyncUsecase {
	if opts.CalendarWindowDays <= 0 {
		opts.CalendarWindowDays = 30
	}
	if opts.ContactBatchSize <= 0 {
		opts.ContactBatchSize = 10
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 500
	}
	return &syncUsecase{
		userRepo:        userRepo,
		contactRepo:     contactRepo,
		interactionRepo: interactionRepo,
		contacts:        contacts,
		source:          source,
		opts:            opts,
		logger:          logger.Named("sync-service"),
		now:             time.Now,
	}
}

func (u *syncUsecase) IngestEvent(ctx context.Context, userID string, rec domain.EventRecord) (bool, error) {
	created, _, err := u.ingestEvent(ctx, userID, rec)
	return created, err
}

func (u *syncUsecase) IngestMessage(ctx context.Context, userID string, rec domain.MessageRecord, known map[string]struct{}) (bool, error) {
	stored, _, err := u.ingestMessage(ctx, userID, rec, known)
	return stored, err
}

// ingestEvent also reports how many contacts were created or updated
func (u *syncUsecase) ingestEvent(ctx context.Context, userID string, rec domain.EventRecord) (bool, int, error) {
	event := &interactiondomain.CalendarEvent{
		ID:          uuid.New().String(),
		UserID:      userID,
		ExternalID:  rec.ExternalID,
		Title:       rec.Title,
		Description: rec.Description,
		Location:    rec.Location,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		IsAllDay:    rec.IsAllDay,
		Status:      rec.Status,
	}
	if organizer := identity.NormalizeEmail(rec.OrganizerEmail); identity.IsAddress(organizer) {
		event.Organizer = organizer
		event.OrganizerName = strings.TrimSpace(rec.OrganizerName)
	}
	for _, a := range rec.Attendees {
		addr := identity.NormalizeEmail(a.Email)
		if !identity.IsAddress(addr) {
			continue
		}
		event.Attendees = append(event.Attendees, interactiondomain.EventAttendee{
			Position:       len(event.Attendees),
			Email:          addr,
			DisplayName:    strings.TrimSpace(a.DisplayName),
			ResponseStatus: a.ResponseStatus,
		})
	}

	created, err := u.interactionRepo.UpsertCalendarEvent(ctx, event)
	if err != nil {
		return false, 0, fmt.Errorf("store event %s: %w", rec.ExternalID, err)
	}

	upserted := 0
	if event.Organizer != "" {
		c, err := u.contacts.CreateOrUpdateContact(ctx, userID, event.Organizer, event.OrganizerName, rec.StartTime)
		if err != nil {
			return created, upserted, err
		}
		if c != nil {
			upserted++
		}
	}
	for _, a := range event.Attendees {
		c, err := u.contacts.CreateOrUpdateContact(ctx, userID, a.Email, a.DisplayName, rec.StartTime)
		if err != nil {
			return created, upserted, err
		}
		if c != nil {
			upserted++
		}
	}
	return created, upserted, nil
}

func (u *syncUsecase) ingestMessage(ctx context.Context, userID string, rec domain.MessageRecord, known map[string]struct{}) (bool, int, error) {
	exists, err := u.interactionRepo.EmailExists(ctx, userID, rec.ExternalID)
	if err != nil {
		return false, 0, fmt.Errorf("check message %s: %w", rec.ExternalID, err)
	}
	if exists {
		return false, 0, nil
	}

	from := identity.NormalizeEmail(rec.FromAddress)
	if !identity.IsAddress(from) {
		return false, 0, fmt.Errorf("message %s: %w: unusable sender %q", rec.ExternalID, apperrors.ErrInvalidInput, rec.FromAddress)
	}

	fromName := strings.TrimSpace(rec.FromDisplayName)
	if fromName == "" {
		fromName = identity.ExtractName(rec.FromHeader)
	}

	email := &interactiondomain.Email{
		ID:          uuid.New().String(),
		UserID:      userID,
		ExternalID:  rec.ExternalID,
		ThreadID:    rec.ThreadID,
		Subject:     rec.Subject,
		FromEmail:   from,
		FromName:    fromName,
		Body:        limitRunes(rec.Body, maxBodyLength),
		IsRead:      !hasLabel(rec.Labels, "UNREAD"),
		IsImportant: hasLabel(rec.Labels, "IMPORTANT"),
		Labels:      labelsOrEmpty(rec.Labels),
		ReceivedAt:  rec.ReceivedAt,
	}
	for _, to := range rec.To {
		addr := identity.NormalizeEmail(to.Email)
		if !identity.IsAddress(addr) {
			continue
		}
		email.Recipients = append(email.Recipients, interactiondomain.EmailRecipient{
			Position:    len(email.Recipients),
			Address:     addr,
			DisplayName: strings.TrimSpace(to.Name),
		})
	}

	if err := u.interactionRepo.CreateEmail(ctx, email); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// stored concurrently by another sync of the same user
			return false, 0, nil
		}
		return false, 0, fmt.Errorf("store message %s: %w", rec.ExternalID, err)
	}

	upserted := 0
	upsert := func(addr, name string) error {
		if _, ok := known[addr]; !ok {
			return nil
		}
		c, err := u.contacts.CreateOrUpdateContact(ctx, userID, addr, name, rec.ReceivedAt)
		if c != nil {
			upserted++
		}
		return err
	}

	if err := upsert(from, fromName); err != nil {
		return true, upserted, err
	}
	for _, r := range email.Recipients {
		if err := upsert(r.Address, r.DisplayName); err != nil {
			return true, upserted, err
		}
	}
	return true, upserted, nil
}

func (u *syncUsecase) SyncCalendar(ctx context.Context, userID string) (*domain.SyncResult, error) {
	user, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &domain.SyncResult{}
	u.syncCalendar(ctx, user, result)
	return result, ctx.Err()
}

func (u *syncUsecase) SyncGmail(ctx context.Context, userID string) (*domain.SyncResult, error) {
	user, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &domain.SyncResult{}
	u.syncGmail(ctx, user, result)
	return result, ctx.Err()
}

func (u *syncUsecase) Reconcile(ctx context.Context, userID string) (*domain.SyncResult, error) {
	result := &domain.SyncResult{}
	u.reconcile(ctx, userID, result)
	return result, ctx.Err()
}

func (u *syncUsecase) SyncUser(ctx context.Context, userID string) (*domain.SyncResult, error) {
	user, err := u.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	started := u.now()
	result := &domain.SyncResult{}

	u.syncCalendar(ctx, user, result)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	u.syncGmail(ctx, user, result)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	u.reconcile(ctx, userID, result)

	u.logger.Info("User sync finished",
		zap.String("user_id", userID),
		zap.Int("events_stored", result.EventsStored),
		zap.Int("messages_stored", result.MessagesStored),
		zap.Int("records_failed", result.RecordsFailed),
		zap.Int("contacts_upserted", result.ContactsUpserted),
		zap.Duration("took", u.now().Sub(started)),
	)
	return result, ctx.Err()
}

func (u *syncUsecase) Run(ctx context.Context, userID string, kind domain.JobKind) (*domain.SyncResult, error) {
	switch kind {
	case domain.JobFull:
		return u.SyncUser(ctx, userID)
	case domain.JobGmail:
		return u.SyncGmail(ctx, userID)
	case domain.JobCalendar:
		return u.SyncCalendar(ctx, userID)
	case domain.JobReconcile:
		return u.Reconcile(ctx, userID)
	}
	return nil, fmt.Errorf("%w: unknown sync kind %q", apperrors.ErrInvalidInput, kind)
}

func (u *syncUsecase) loadUser(ctx context.Context, userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}
	if !user.HasGoogleAccount() {
		return nil, apperrors.ErrNoGoogleAccount
	}
	return user, nil
}

func (u *syncUsecase) syncCalendar(ctx context.Context, user *authdomain.User, result *domain.SyncResult) {
	now := u.now()
	window := time.Duration(u.opts.CalendarWindowDays) * 24 * time.Hour

	records, err := u.source.ListEvents(ctx, user, now.Add(-window), now.Add(window))
	if err != nil {
		u.logger.Error("Calendar sync failed", zap.String("user_id", user.ID), zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("calendar: %v", err))
		return
	}
	result.EventsFound += len(records)

	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}
		created, upserted, err := u.ingestEvent(ctx, user.ID, rec)
		result.ContactsUpserted += upserted
		if err != nil {
			u.logger.Warn("Failed to ingest event", zap.String("user_id", user.ID), zap.String("event_id", rec.ExternalID), zap.Error(err))
			result.RecordsFailed++
			continue
		}
		if created {
			result.EventsStored++
		}
	}
}

func (u *syncUsecase) syncGmail(ctx context.Context, user *authdomain.User, result *domain.SyncResult) {
	contacts, err := u.contactRepo.ListActive(ctx, user.ID)
	if err != nil {
		u.logger.Error("Gmail sync failed to list contacts", zap.String("user_id", user.ID), zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("gmail: %v", err))
		return
	}
	if len(contacts) == 0 {
		return
	}

	known := make(map[string]struct{}, len(contacts))
	addresses := make([]string, 0, len(contacts))
	for _, c := range contacts {
		known[c.Email] = struct{}{}
		addresses = append(addresses, c.Email)
	}

	for _, batch := range chunk(addresses, u.opts.ContactBatchSize) {
		if ctx.Err() != nil {
			return
		}
		records, err := u.source.ListMessages(ctx, user, BuildContactQuery(batch), u.opts.MaxResults)
		if err != nil {
			u.logger.Error("Gmail batch failed", zap.String("user_id", user.ID), zap.Int("batch_size", len(batch)), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("gmail: %v", err))
			continue
		}
		result.MessagesFound += len(records)

		for _, rec := range records {
			if ctx.Err() != nil {
				return
			}
			stored, upserted, err := u.ingestMessage(ctx, user.ID, rec, known)
			result.ContactsUpserted += upserted
			if err != nil {
				u.logger.Warn("Failed to ingest message", zap.String("user_id", user.ID), zap.String("message_id", rec.ExternalID), zap.Error(err))
				result.RecordsFailed++
				continue
			}
			if stored {
				result.MessagesStored++
			}
		}
	}
}

func (u *syncUsecase) reconcile(ctx context.Context, userID string, result *domain.SyncResult) {
	if err := u.contacts.RecalculateAllInteractionCounts(ctx, userID); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("reconcile: %v", err))
		return
	}
	result.Reconciled = true
}

// BuildContactQuery matches messages sent by or to any of the addresses
func BuildContactQuery(addresses []string) string {
	from := make([]string, len(addresses))
	to := make([]string, len(addresses))
	for i, a := range addresses {
		from[i] = "from:" + a
		to[i] = "to:" + a
	}
	return fmt.Sprintf("(%s) OR (%s)", strings.Join(from, " OR "), strings.Join(to, " OR "))
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

func limitRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// labelsOrEmpty keeps the labels column a JSON array for unlabeled messages.
func labelsOrEmpty(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
