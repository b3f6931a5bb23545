package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/eventapi/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, name, date, total_tickets, ticket_sold, created_at`

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetEventForUpdate row-locks the event until the enclosing transaction ends.
func (r *EventRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	if txFromContext(ctx) == nil {
		return domain.Event{}, errors.New("get event for update: no transaction in context")
	}
	const query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.getEvent(ctx, query, eventID)
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.getEvent(ctx, query, eventID)
}

func (r *EventRepository) getEvent(ctx context.Context, query, eventID string) (domain.Event, error) {
	// A malformed id would abort the surrounding transaction.
	if uuid.Validate(eventID) != nil {
		return domain.Event{}, domain.ErrInvalidID
	}
	var e domain.Event
	err := conn(ctx, r.pool).QueryRow(ctx, query, eventID).
		Scan(&e.ID, &e.Name, &e.Date, &e.TotalTickets, &e.TicketSold, &e.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) UpdateTicketSold(ctx context.Context, eventID string, sold int) error {
	const stmt = `UPDATE events SET ticket_sold = $2 WHERE id = $1`

	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, eventID, sold)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("update ticket_sold to %d: %w", sold, domain.ErrInsufficientCapacity)
		}
		return fmt.Errorf("update ticket_sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, user_id, event_id, quantity, purchase_date)
VALUES ($1, $2, $3, $4, $5)`

	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		ticket.ID,
		ticket.UserID,
		ticket.EventID,
		ticket.Quantity,
		ticket.PurchaseDate,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			if _, constraint := pgCode(err); constraint == "tickets_user_id_fkey" {
				return domain.ErrUserNotFound
			}
			return domain.ErrEventNotFound
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidQuantity
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *EventRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, date, total_tickets, ticket_sold, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := conn(ctx, r.pool).Exec(ctx, stmt,
		event.ID,
		event.Name,
		event.Date,
		event.TotalTickets,
		event.TicketSold,
		event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEvent
		}
		if isCheckViolation(err) {
			return domain.ErrInvalidTotalTickets
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events ORDER BY created_at ASC, name ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.TotalTickets, &e.TicketSold, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *EventRepository) ListTicketsByEvent(ctx context.Context, eventID string) ([]domain.Ticket, error) {
	if _, err := r.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	const query = `
SELECT id, user_id, event_id, quantity, purchase_date
FROM tickets
WHERE event_id = $1
ORDER BY purchase_date ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.UserID, &t.EventID, &t.Quantity, &t.PurchaseDate); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tickets: %w", rows.Err())
	}
	return tickets, nil
}
