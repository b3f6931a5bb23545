package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/eventapi/internal/domain"
	"go.uber.org/zap"
)

// Reserver is the part of the ledger the purchase flow depends on.
type Reserver interface {
	Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error)
}

// TicketPurchased is published after a sale has been committed.
type TicketPurchased struct {
	TicketID    string    `json:"ticket_id"`
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Quantity    int       `json:"quantity"`
	TicketSold  int       `json:"ticket_sold"`
	PurchasedAt time.Time `json:"purchased_at"`
}

type PurchasePublisher interface {
	PublishTicketPurchased(ctx context.Context, msg TicketPurchased) error
}

type nopPublisher struct{}

func (nopPublisher) PublishTicketPurchased(context.Context, TicketPurchased) error { return nil }

type PurchaseService struct {
	ledger    Reserver
	publisher PurchasePublisher
	logger    *zap.Logger
}

type PurchaseServiceOption func(*PurchaseService)

// WithPublisher sends committed purchases to pub.
func WithPublisher(pub PurchasePublisher) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if pub != nil {
			s.publisher = pub
		}
	}
}

func WithPurchaseLogger(logger *zap.Logger) PurchaseServiceOption {
	return func(s *PurchaseService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewPurchaseService(ledger Reserver, opts ...PurchaseServiceOption) *PurchaseService {
	svc := &PurchaseService{
		ledger:    ledger,
		publisher: nopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// PurchaseInput carries the raw request; a nil Quantity means it was not supplied.
type PurchaseInput struct {
	EventID  string
	Quantity *int
}

type PurchaseResult struct {
	Ticket   domain.Ticket
	Quantity int
	Sold     int
}

// Purchase checks role and quantity, then asks the ledger exactly once.
func (s *PurchaseService) Purchase(ctx context.Context, p domain.Principal, in PurchaseInput) (PurchaseResult, error) {
	if !p.Role.CanPurchase() {
		return PurchaseResult{}, domain.ErrPermissionDenied
	}
	if in.Quantity == nil || *in.Quantity <= 0 {
		return PurchaseResult{}, domain.ErrInvalidQuantity
	}
	quantity := *in.Quantity

	res, err := s.ledger.Reserve(ctx, ReserveInput{
		EventID:  in.EventID,
		UserID:   p.UserID,
		Quantity: quantity,
	})
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("reserve tickets: %w", err)
	}

	switch res.Status {
	case domain.ReservationCommitted:
	case domain.ReservationNotFound:
		return PurchaseResult{}, domain.ErrEventNotFound
	case domain.ReservationRejected:
		return PurchaseResult{}, &domain.CapacityError{Available: res.Available}
	case domain.ReservationInvalidQuantity:
		return PurchaseResult{}, domain.ErrInvalidQuantity
	default:
		return PurchaseResult{}, fmt.Errorf("unexpected reservation status %q", res.Status)
	}

	msg := TicketPurchased{
		TicketID:    res.Ticket.ID,
		EventID:     res.Ticket.EventID,
		UserID:      res.Ticket.UserID,
		Quantity:    res.Ticket.Quantity,
		TicketSold:  res.Sold,
		PurchasedAt: res.Ticket.PurchaseDate,
	}
	if err := s.publisher.PublishTicketPurchased(ctx, msg); err != nil {
		// The sale is already durable.
		s.logger.Warn("publish ticket purchased",
			zap.String("ticket_id", msg.TicketID),
			zap.String("event_id", msg.EventID),
			zap.Error(err),
		)
	}

	return PurchaseResult{
		Ticket:   res.Ticket,
		Quantity: quantity,
		Sold:     res.Sold,
	}, nil
}
