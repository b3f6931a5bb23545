package app

import (
	"context"
	"strings"
	"time"

	"github.com/cimillas/eventapi/internal/clock"
	"github.com/cimillas/eventapi/internal/domain"
)

type EventRepository interface {
	CreateEvent(ctx context.Context, event domain.Event) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
}

type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	Name         string
	Date         *time.Time
	TotalTickets int
}

// CreateEvent registers a new event with nothing sold. Admin only.
func (s *EventService) CreateEvent(ctx context.Context, p domain.Principal, in CreateEventInput) (domain.Event, error) {
	if !p.Role.CanCreateEvents() {
		return domain.Event{}, domain.ErrPermissionDenied
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if in.Date == nil {
		return domain.Event{}, domain.ErrEventDateRequired
	}
	if in.TotalTickets < 0 {
		return domain.Event{}, domain.ErrInvalidTotalTickets
	}

	d := in.Date.UTC()
	event := domain.Event{
		ID:           newID(),
		Name:         name,
		Date:         time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		TotalTickets: in.TotalTickets,
		TicketSold:   0,
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

func (s *EventService) ListEvents(ctx context.Context, _ domain.Principal) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx)
}

func (s *EventService) GetEvent(ctx context.Context, _ domain.Principal, eventID string) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetEvent(ctx, eventID)
}
