package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	authdomain "kithbook-backend/internal/auth/domain"
	authrepo "kithbook-backend/internal/auth/repository"
	contactdomain "kithbook-backend/internal/contact/domain"
	contactrepo "kithbook-backend/internal/contact/repository"
	contactusecase "kithbook-backend/internal/contact/usecase"
	interactiondomain "kithbook-backend/internal/interaction/domain"
	interactionrepo "kithbook-backend/internal/interaction/repository"
	"kithbook-backend/internal/sync/domain"
	"kithbook-backend/pkg/apperrors"
)

type fakeUsers struct {
	authrepo.UserRepository
	users map[string]*authdomain.User
}

func (f *fakeUsers) FindByID(_ context.Context, id string) (*authdomain.User, error) {
	return f.users[id], nil
}

type fakeContacts struct {
	contactrepo.ContactRepository
	active []*contactdomain.Contact
}

func (f *fakeContacts) ListActive(context.Context, string) ([]*contactdomain.Contact, error) {
	return f.active, nil
}

type fakeInteractions struct {
	interactionrepo.InteractionRepository
	mu     sync.Mutex
	emails map[string]*interactiondomain.Email
	events map[string]*interactiondomain.CalendarEvent
}

func newFakeInteractions() *fakeInteractions {
	return &fakeInteractions{
		emails: make(map[string]*interactiondomain.Email),
		events: make(map[string]*interactiondomain.CalendarEvent),
	}
}

func (f *fakeInteractions) EmailExists(_ context.Context, _, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.emails[externalID]
	return ok, nil
}

func (f *fakeInteractions) CreateEmail(_ context.Context, e *interactiondomain.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.emails[e.ExternalID]; ok {
		return apperrors.ErrConflict
	}
	f.emails[e.ExternalID] = e
	return nil
}

func (f *fakeInteractions) UpsertCalendarEvent(_ context.Context, e *interactiondomain.CalendarEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, existed := f.events[e.ExternalID]
	f.events[e.ExternalID] = e
	return !existed, nil
}

type upsertCall struct {
	Email string
	Name  string
	At    time.Time
}

// recordingContacts captures every upsert request and accepts all of them
type recordingContacts struct {
	contactusecase.ContactUsecase
	mu           sync.Mutex
	calls        []upsertCall
	reconciled   int
	reconcileErr error
}

func (r *recordingContacts) CreateOrUpdateContact(_ context.Context, userID, email, name string, at time.Time) (*contactdomain.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, upsertCall{Email: email, Name: name, At: at})
	return &contactdomain.Contact{UserID: userID, Email: email, Name: name}, nil
}

func (r *recordingContacts) RecalculateAllInteractionCounts(context.Context, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reconciled++
	return r.reconcileErr
}

func (r *recordingContacts) emails() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Email)
	}
	sort.Strings(out)
	return out
}

type fakeSource struct {
	events    []domain.EventRecord
	eventsErr error
	// messages are returned for every query
	messages []domain.MessageRecord
	msgErr   error

	mu      sync.Mutex
	queries []string
	window  [2]time.Time
}

func (f *fakeSource) ListEvents(_ context.Context, _ *authdomain.User, from, to time.Time) ([]domain.EventRecord, error) {
	f.window = [2]time.Time{from, to}
	return f.events, f.eventsErr
}

func (f *fakeSource) ListMessages(_ context.Context, _ *authdomain.User, query string, _ int64) ([]domain.MessageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.messages, f.msgErr
}

var baseTime = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func googleUser() *authdomain.User {
	return &authdomain.User{ID: "user-1", Email: "me@x.com", GoogleAccessToken: "at", GoogleRefreshToken: "rt"}
}
