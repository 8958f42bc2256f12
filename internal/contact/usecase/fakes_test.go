package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authrepo "kithbook-backend/internal/auth/repository"
	"kithbook-backend/internal/contact/domain"
	"kithbook-backend/internal/contact/identity"
	interactiondomain "kithbook-backend/internal/interaction/domain"
	interactionrepo "kithbook-backend/internal/interaction/repository"
	"kithbook-backend/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStore = errors.New("store unavailable")

// fakeContactRepo is an in-memory ContactRepository
type fakeContactRepo struct {
	mu       sync.Mutex
	contacts map[string]*domain.Contact

	createErr error
	findErr   error
	// setCountErr fails SetInteractionCount for these emails
	setCountErr map[string]error
	// raceOnCreate makes the next Create lose to a concurrent insert of the same contact
	raceOnCreate *domain.Contact
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: make(map[string]*domain.Contact), setCountErr: make(map[string]error)}
}

func (r *fakeContactRepo) put(c *domain.Contact) *domain.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	cp := *c
	r.contacts[c.ID] = &cp
	return c
}

func (r *fakeContactRepo) get(userID, email string) *domain.Contact {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.contacts {
		if c.UserID == userID && c.Email == email {
			cp := *c
			return &cp
		}
	}
	return nil
}

func (r *fakeContactRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.contacts)
}

func (r *fakeContactRepo) Create(_ context.Context, c *domain.Contact) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	if r.raceOnCreate != nil {
		winner := *r.raceOnCreate
		r.raceOnCreate = nil
		r.contacts[winner.ID] = &winner
	}
	for _, existing := range r.contacts {
		if existing.UserID == c.UserID && existing.Email == c.Email {
			r.mu.Unlock()
			return apperrors.ErrConflict
		}
	}
	r.mu.Unlock()
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.put(c)
	return nil
}

func (r *fakeContactRepo) FindByID(_ context.Context, userID, id string) (*domain.Contact, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contacts[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContactRepo) FindByEmail(_ context.Context, userID, email string) (*domain.Contact, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.get(userID, email), nil
}

func (r *fakeContactRepo) UpdateDerived(_ context.Context, c *domain.Contact) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contacts[c.ID]
	if !ok || stored.Archived {
		return false, nil
	}
	stored.Name = c.Name
	stored.LastInteractionAt = c.LastInteractionAt
	stored.InteractionCount = c.InteractionCount
	stored.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeContactRepo) SetInteractionCount(_ context.Context, id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contacts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if err := r.setCountErr[stored.Email]; err != nil {
		return err
	}
	stored.InteractionCount = count
	return nil
}

func (r *fakeContactRepo) Update(_ context.Context, c *domain.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contacts[c.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.Name = c.Name
	stored.Email = c.Email
	return nil
}

func (r *fakeContactRepo) SetArchived(_ context.Context, userID, id string, archived bool, at time.Time) (*domain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.contacts[id]
	if !ok || stored.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	stored.Archived = archived
	if archived {
		stored.ArchivedAt = &at
	} else {
		stored.ArchivedAt = nil
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeContactRepo) ListActive(_ context.Context, userID string) ([]*domain.Contact, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Contact
	for _, c := range r.contacts {
		if c.UserID == userID && !c.Archived {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastInteractionAt.After(out[j].LastInteractionAt) })
	return out, nil
}

func (r *fakeContactRepo) Search(ctx context.Context, userID, term string, limit int) ([]*domain.Contact, error) {
	all, _ := r.ListActive(ctx, userID)
	term = strings.ToLower(term)
	var out []*domain.Contact
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), term) || strings.Contains(c.Email, term) {
			out = append(out, c)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakeInteractionRepo keeps emails and events in memory and applies the same
// exact-address participant predicate as the SQL store
type fakeInteractionRepo struct {
	mu       sync.Mutex
	emails   []*interactiondomain.Email
	events   []*interactiondomain.CalendarEvent
	countErr error
}

var _ interactionrepo.InteractionRepository = (*fakeInteractionRepo)(nil)

func (r *fakeInteractionRepo) addEmail(from string, to []string, subject string, at time.Time) *interactiondomain.Email {
	e := &interactiondomain.Email{
		ID:         uuid.New().String(),
		ExternalID: uuid.New().String(),
		FromEmail:  from,
		Subject:    subject,
		ReceivedAt: at,
	}
	for i, addr := range to {
		e.Recipients = append(e.Recipients, interactiondomain.EmailRecipient{EmailID: e.ID, Position: i, Address: addr})
	}
	r.mu.Lock()
	r.emails = append(r.emails, e)
	r.mu.Unlock()
	return e
}

func (r *fakeInteractionRepo) addEvent(organizer string, attendees []string, title string, at time.Time) *interactiondomain.CalendarEvent {
	ev := &interactiondomain.CalendarEvent{
		ID:         uuid.New().String(),
		ExternalID: uuid.New().String(),
		Organizer:  organizer,
		Title:      title,
		StartTime:  at,
		EndTime:    at.Add(time.Hour),
	}
	for i, addr := range attendees {
		ev.Attendees = append(ev.Attendees, interactiondomain.EventAttendee{EventID: ev.ID, Position: i, Email: addr})
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return ev
}

func (r *fakeInteractionRepo) EmailExists(_ context.Context, _, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.emails {
		if e.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInteractionRepo) CreateEmail(_ context.Context, e *interactiondomain.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, e)
	return nil
}

func (r *fakeInteractionRepo) UpsertCalendarEvent(_ context.Context, ev *interactiondomain.CalendarEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.events {
		if existing.ExternalID == ev.ExternalID {
			r.events[i] = ev
			return false, nil
		}
	}
	r.events = append(r.events, ev)
	return true, nil
}

func (r *fakeInteractionRepo) CountForAddress(_ context.Context, _, address string) (int64, int64, error) {
	if r.countErr != nil {
		return 0, 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var emails, events int64
	for _, e := range r.emails {
		if e.Involves(address) {
			emails++
		}
	}
	for _, ev := range r.events {
		if ev.Involves(address) {
			events++
		}
	}
	return emails, events, nil
}

func (r *fakeInteractionRepo) FindEmailsForAddress(_ context.Context, _, address string) ([]*interactiondomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*interactiondomain.Email
	for _, e := range r.emails {
		if e.Involves(address) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out, nil
}

func (r *fakeInteractionRepo) FindEventsForAddress(_ context.Context, _, address string) ([]*interactiondomain.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*interactiondomain.CalendarEvent
	for _, ev := range r.events {
		if ev.Involves(address) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

func (r *fakeInteractionRepo) FindAllEmails(context.Context, string) ([]*interactiondomain.Email, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*interactiondomain.Email(nil), r.emails...), nil
}

func (r *fakeInteractionRepo) FindAllEvents(context.Context, string) ([]*interactiondomain.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*interactiondomain.CalendarEvent(nil), r.events...), nil
}

// fakeUsers resolves users by id; other UserRepository methods are unused here
type fakeUsers struct {
	authrepo.UserRepository
	users map[string]*authdomain.User
	err   error
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*authdomain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

const (
	testUserID    = "user-1"
	testUserEmail = "me@x.com"
)

type fixture struct {
	contacts     *fakeContactRepo
	interactions *fakeInteractionRepo
	users        *fakeUsers
	usecase      *contactUsecase
	graph        GraphUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	classifier, err := identity.NewDefaultClassifier(nil, nil)
	require.NoError(t, err)

	f := &fixture{
		contacts:     newFakeContactRepo(),
		interactions: &fakeInteractionRepo{},
		users: &fakeUsers{users: map[string]*authdomain.User{
			testUserID: {ID: testUserID, Email: "Me@X.com"},
		}},
	}
	f.usecase = NewContactUsecase(f.contacts, f.interactions, f.users, classifier, zap.NewNop()).(*contactUsecase)
	f.graph = NewGraphUsecase(f.contacts, f.interactions, zap.NewNop())
	return f
}

func day(n int) time.Time {
	return time.Date(2024, time.March, n, 9, 0, 0, 0, time.UTC)
}
