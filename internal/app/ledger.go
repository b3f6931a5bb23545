package app

import (
	"context"
	"errors"

	"github.com/cimillas/eventapi/internal/clock"
	"github.com/cimillas/eventapi/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/cimillas/eventapi/internal/app"

// LedgerRepository is the storage contract of the ledger. GetEventForUpdate
// must hold a lock on the event row until the surrounding WithTx returns.
type LedgerRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	UpdateTicketSold(ctx context.Context, eventID string, sold int) error
	CreateTicket(ctx context.Context, ticket domain.Ticket) error
}

// Ledger owns ticket_sold for every event and is its only writer.
type Ledger struct {
	repo   LedgerRepository
	clock  clock.Clock
	logger *zap.Logger
	tracer trace.Tracer
}

type LedgerOption func(*Ledger)

func WithLedgerLogger(logger *zap.Logger) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithLedgerTracer(tracer trace.Tracer) LedgerOption {
	return func(l *Ledger) {
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

func NewLedger(repo LedgerRepository, clk clock.Clock, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		repo:   repo,
		clock:  clk,
		logger: zap.NewNop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type ReserveInput struct {
	EventID  string
	UserID   string
	Quantity int
}

// Reserve sells Quantity tickets of an event if they fit, atomically with
// respect to every other Reserve on the same event. Capacity rejection,
// unknown events and bad quantities are outcomes, not errors; the error is
// only set when storage fails, in which case nothing was written.
func (l *Ledger) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.reserve", trace.WithAttributes(
		attribute.String("event.id", in.EventID),
		attribute.Int("ticket.quantity", in.Quantity),
	))
	defer span.End()

	if in.Quantity <= 0 {
		span.SetAttributes(attribute.String("ledger.outcome", string(domain.ReservationInvalidQuantity)))
		return domain.Reservation{Status: domain.ReservationInvalidQuantity}, nil
	}

	var (
		result   domain.Reservation
		backstop bool
	)
	err := l.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := l.repo.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			if errors.Is(err, domain.ErrEventNotFound) || errors.Is(err, domain.ErrInvalidID) {
				result = domain.Reservation{Status: domain.ReservationNotFound}
				return nil
			}
			return err
		}

		// Compared against the remainder so a huge quantity cannot overflow.
		if in.Quantity > event.Available() {
			result = domain.Reservation{
				Status:    domain.ReservationRejected,
				Sold:      event.TicketSold,
				Available: event.Available(),
			}
			return nil
		}

		wouldSell := event.TicketSold + in.Quantity
		ticket := domain.Ticket{
			ID:           newID(),
			UserID:       in.UserID,
			EventID:      event.ID,
			Quantity:     in.Quantity,
			PurchaseDate: l.clock.Now(),
		}
		if err := l.repo.UpdateTicketSold(txCtx, event.ID, wouldSell); err != nil {
			if errors.Is(err, domain.ErrInsufficientCapacity) {
				// Storage constraint fired; roll back and report it as a rejection.
				backstop = true
				result = domain.Reservation{
					Status:    domain.ReservationRejected,
					Sold:      event.TicketSold,
					Available: event.Available(),
				}
			}
			return err
		}
		if err := l.repo.CreateTicket(txCtx, ticket); err != nil {
			return err
		}

		result = domain.Reservation{
			Status:    domain.ReservationCommitted,
			Sold:      wouldSell,
			Available: event.TotalTickets - wouldSell,
			Ticket:    ticket,
		}
		return nil
	})
	if err != nil && backstop {
		l.logger.Warn("capacity constraint rejected reserve",
			zap.String("event_id", in.EventID),
			zap.Int("quantity", in.Quantity),
			zap.Error(err),
		)
		err = nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve failed")
		l.logger.Error("reserve failed",
			zap.String("event_id", in.EventID),
			zap.Int("quantity", in.Quantity),
			zap.Error(err),
		)
		return domain.Reservation{}, err
	}

	span.SetAttributes(
		attribute.String("ledger.outcome", string(result.Status)),
		attribute.Int("ledger.available", result.Available),
	)
	l.logger.Debug("reserve",
		zap.String("event_id", in.EventID),
		zap.Int("quantity", in.Quantity),
		zap.String("outcome", string(result.Status)),
		zap.Int("sold", result.Sold),
		zap.Int("available", result.Available),
	)
	return result, nil
}
