// Package modeltest provides in-memory repository implementations for tests.
// MemEventRepo honors the same reservation atomicity contract as the Mongo
// store by doing the whole check-and-append under a mutex; that approach is
// only valid in a single process, which is all a test needs.
package modeltest

import (
	"sort"
	"sync"
	"time"

	"eventmanager/models"
)

var (
	_ models.UserRepository  = (*MemUserRepo)(nil)
	_ models.EventRepository = (*MemEventRepo)(nil)
)

type tokenRecord struct {
	UserID    int64
	CreatedAt time.Time
}

type MemUserRepo struct {
	mu     sync.Mutex
	nextID int64
	Users  map[string]models.User // keyed by email
	Tokens map[string]tokenRecord
}

func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{
		Users:  map[string]models.User{},
		Tokens: map[string]tokenRecord{},
	}
}

func (m *MemUserRepo) Create(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Users {
		if existing.Username == u.Username {
			return models.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return models.ErrEmailTaken
		}
	}
	// Passwords are stored as-is; bcrypt is exercised by the utils tests and
	// would dominate test runtime here.
	m.nextID++
	u.ID = m.nextID
	m.Users[u.Email] = *u
	return nil
}

func (m *MemUserRepo) ValidateCredentials(email, plain string) (models.User, error) {
	m.mu.Lock()
	u, ok := m.Users[email]
	m.mu.Unlock()
	if !ok || u.Password != plain {
		return models.User{}, models.ErrInvalidCredentials
	}
	return u, nil
}

func (m *MemUserRepo) AddToken(userID int64, t models.SessionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tokens[t.Token] = tokenRecord{UserID: userID, CreatedAt: t.CreatedAt}
	return nil
}

func (m *MemUserRepo) FindByToken(token string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Tokens[token]
	if !ok {
		return models.User{}, models.ErrUnauthorized
	}
	for _, u := range m.Users {
		if u.ID == rec.UserID {
			return u, nil
		}
	}
	return models.User{}, models.ErrUnauthorized
}

func (m *MemUserRepo) SweepTokens(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	touched := map[int64]struct{}{}
	for tok, rec := range m.Tokens {
		if rec.CreatedAt.Before(cutoff) {
			delete(m.Tokens, tok)
			touched[rec.UserID] = struct{}{}
		}
	}
	return len(touched), nil
}

type MemEventRepo struct {
	mu    sync.Mutex
	Items map[string]models.Event
}

func NewMemEventRepo() *MemEventRepo {
	return &MemEventRepo{Items: map[string]models.Event{}}
}

func (m *MemEventRepo) Create(e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[e.ID] = *e
	return nil
}

func (m *MemEventRepo) GetByID(id string) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, models.ErrNotFound
	}
	return e, nil
}

func (m *MemEventRepo) UpdateDetails(id string, d models.EventDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	// Status is never written by an edit; only CompleteDue changes it.
	d.Status = e.Details.Status
	e.Details = d
	m.Items[id] = e
	return nil
}

func (m *MemEventRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Items, id)
	return nil
}

func (m *MemEventRepo) List(page, limit int) ([]models.Event, int64, error) {
	return m.paged(func(models.Event) bool { return true }, page, limit)
}

func (m *MemEventRepo) ListByOrganizer(email string, page, limit int) ([]models.Event, int64, error) {
	return m.paged(func(e models.Event) bool { return e.Organizer.Email == email }, page, limit)
}

func (m *MemEventRepo) ListByAttendee(email string, page, limit int) ([]models.Event, int64, error) {
	return m.paged(func(e models.Event) bool {
		for _, a := range e.Attendees {
			if a.Buyer.Email == email {
				return true
			}
		}
		return false
	}, page, limit)
}

func (m *MemEventRepo) paged(match func(models.Event) bool, page, limit int) ([]models.Event, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Event
	for _, e := range m.Items {
		if match(e) {
			all = append(all, e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Event{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *MemEventRepo) ReserveSeat(id string, buyer models.PersonDets, tier models.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.Items[id]
	if !ok {
		return models.ErrNotFound
	}
	switch {
	case e.Details.Status != models.StatusPending:
		return models.ErrEventClosed
	case e.Organizer.Email == buyer.Email:
		return models.ErrSelfPurchase
	case hasAttendee(e, buyer.Email):
		return models.ErrAlreadyPurchased
	case len(e.Attendees) >= e.Details.Capacity:
		return models.ErrSoldOut
	}

	e.Attendees = append(e.Attendees, models.Attendee{Buyer: buyer, Tier: tier})
	m.Items[id] = e
	return nil
}

func hasAttendee(e models.Event, email string) bool {
	for _, a := range e.Attendees {
		if a.Buyer.Email == email {
			return true
		}
	}
	return false
}

func (m *MemEventRepo) CompleteDue(today string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.Items {
		if e.Details.Status == models.StatusPending && e.Details.Date <= today {
			e.Details.Status = models.StatusCompleted
			m.Items[id] = e
			n++
		}
	}
	return n, nil
}

func (m *MemEventRepo) PendingOn(date string) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, e := range m.Items {
		if e.Details.Status == models.StatusPending && e.Details.Date == date {
			out = append(out, e)
		}
	}
	return out, nil
}
