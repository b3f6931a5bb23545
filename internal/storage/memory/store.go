// Package memory is an in-process implementation of the service's storage
// contracts. Event rows carry their own lock so that reservations against
// different events never wait on each other.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cimillas/eventapi/internal/domain"
)

var errNoTx = errors.New("memory: operation requires a transaction")

type eventRow struct {
	// lock is a one-slot semaphore so acquisition can honor ctx cancellation.
	lock  chan struct{}
	event domain.Event
}

type Store struct {
	mu      sync.RWMutex
	events  map[string]*eventRow
	names   map[string]string
	tickets []domain.Ticket
	users   map[string]domain.User
	byEmail map[string]string
}

func NewStore() *Store {
	return &Store{
		events:  make(map[string]*eventRow),
		names:   make(map[string]string),
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

type txKey struct{}

type tx struct {
	locked  map[string]*eventRow
	sold    map[string]int
	tickets []domain.Ticket
}

// WithTx runs fn in a transaction. Writes become visible only if fn returns
// nil; row locks taken by GetEventForUpdate are released on return.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	t := &tx{
		locked: make(map[string]*eventRow),
		sold:   make(map[string]int),
	}
	defer func() {
		for _, row := range t.locked {
			<-row.lock
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sold := range t.sold {
		t.locked[id].event.TicketSold = sold
	}
	s.tickets = append(s.tickets, t.tickets...)
	return nil
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

func (s *Store) row(eventID string) (*eventRow, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.events[eventID]
	return row, ok
}

func (s *Store) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	t := txFromContext(ctx)
	if t == nil {
		return domain.Event{}, errNoTx
	}
	row, ok := s.row(eventID)
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if _, held := t.locked[eventID]; !held {
		select {
		case row.lock <- struct{}{}:
			t.locked[eventID] = row
		case <-ctx.Done():
			return domain.Event{}, ctx.Err()
		}
	}

	s.mu.RLock()
	event := row.event
	s.mu.RUnlock()
	if sold, ok := t.sold[eventID]; ok {
		event.TicketSold = sold
	}
	return event, nil
}

func (s *Store) UpdateTicketSold(ctx context.Context, eventID string, sold int) error {
	t := txFromContext(ctx)
	if t == nil {
		return errNoTx
	}
	row, held := t.locked[eventID]
	if !held {
		return errors.New("memory: event row not locked")
	}
	if sold < 0 || sold > row.event.TotalTickets {
		return errors.New("memory: ticket_sold out of range")
	}
	t.sold[eventID] = sold
	return nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	t := txFromContext(ctx)
	if t == nil {
		return errNoTx
	}
	if _, ok := s.row(ticket.EventID); !ok {
		return domain.ErrEventNotFound
	}
	t.tickets = append(t.tickets, ticket)
	return nil
}

func (s *Store) CreateEvent(_ context.Context, event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.names[event.Name]; exists {
		return domain.ErrDuplicateEvent
	}
	s.events[event.ID] = &eventRow{
		lock:  make(chan struct{}, 1),
		event: event,
	}
	s.names[event.Name] = event.ID
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.events[eventID]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return row.event, nil
}

func (s *Store) ListEvents(_ context.Context) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]domain.Event, 0, len(s.events))
	for _, row := range s.events {
		events = append(events, row.event)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].Name < events[j].Name
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

func (s *Store) ListTicketsByEvent(_ context.Context, eventID string) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, domain.ErrEventNotFound
	}
	var out []domain.Ticket
	for _, t := range s.tickets {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[user.Email]; exists {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}
