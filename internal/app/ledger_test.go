package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/eventapi/internal/clock"
	"github.com/cimillas/eventapi/internal/domain"
	"github.com/cimillas/eventapi/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryLedger(t *testing.T, events ...domain.Event) (*Ledger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, e := range events {
		require.NoError(t, store.CreateEvent(context.Background(), e))
	}
	return NewLedger(store, clock.NewFixed(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))), store
}

func TestLedger_Reserve(t *testing.T) {
	t.Parallel()

	t.Run("commits when capacity available", func(t *testing.T) {
		ledger, store := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 10})

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", UserID: "u1", Quantity: 3})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationCommitted, res.Status)
		assert.Equal(t, 3, res.Sold)
		assert.Equal(t, 7, res.Available)
		assert.NotEmpty(t, res.Ticket.ID)
		assert.Equal(t, "u1", res.Ticket.UserID)
		assert.Equal(t, 3, res.Ticket.Quantity)

		ev, err := store.GetEvent(context.Background(), "e1")
		require.NoError(t, err)
		assert.Equal(t, 3, ev.TicketSold)

		tickets, err := store.ListTicketsByEvent(context.Background(), "e1")
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, res.Ticket, tickets[0])
	})

	t.Run("sold out rejects with zero available", func(t *testing.T) {
		ledger, store := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 5, TicketSold: 5})

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", UserID: "u1", Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationRejected, res.Status)
		assert.Equal(t, 0, res.Available)

		ev, _ := store.GetEvent(context.Background(), "e1")
		assert.Equal(t, 5, ev.TicketSold)
	})

	t.Run("last seat commits", func(t *testing.T) {
		ledger, _ := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 5, TicketSold: 4})

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", UserID: "u1", Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationCommitted, res.Status)
		assert.Equal(t, 5, res.Sold)
	})

	t.Run("rejection reports remaining capacity", func(t *testing.T) {
		ledger, store := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 10, TicketSold: 7})

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", UserID: "u1", Quantity: 4})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationRejected, res.Status)
		assert.Equal(t, 3, res.Available)

		tickets, _ := store.ListTicketsByEvent(context.Background(), "e1")
		assert.Empty(t, tickets)
	})

	t.Run("huge quantity is rejected without overflow", func(t *testing.T) {
		ledger, store := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 10, TicketSold: 1})

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", UserID: "u1", Quantity: math.MaxInt})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationRejected, res.Status)
		assert.Equal(t, 9, res.Available)

		ev, _ := store.GetEvent(context.Background(), "e1")
		assert.Equal(t, 1, ev.TicketSold)
	})

	t.Run("unknown event", func(t *testing.T) {
		ledger, _ := newMemoryLedger(t)

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "missing", UserID: "u1", Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationNotFound, res.Status)
	})

	t.Run("non-positive quantity never touches storage", func(t *testing.T) {
		repo := &fakeLedgerRepo{}
		ledger := NewLedger(repo, clock.NewSystem())

		for _, q := range []int{0, -1} {
			res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", Quantity: q})
			require.NoError(t, err)
			assert.Equal(t, domain.ReservationInvalidQuantity, res.Status)
		}
		assert.Zero(t, repo.txCalls)
	})

	t.Run("storage failure is an error, not an outcome", func(t *testing.T) {
		boom := errors.New("connection refused")
		repo := &fakeLedgerRepo{
			event:     domain.Event{ID: "e1", TotalTickets: 10},
			createErr: boom,
		}
		ledger := NewLedger(repo, clock.NewSystem())

		_, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", Quantity: 1})
		assert.ErrorIs(t, err, boom)
		assert.True(t, repo.rolledBack)
	})

	t.Run("capacity constraint violation is a rejection", func(t *testing.T) {
		repo := &fakeLedgerRepo{
			event:     domain.Event{ID: "e1", TotalTickets: 10, TicketSold: 6},
			updateErr: fmt.Errorf("update ticket_sold to 11: %w", domain.ErrInsufficientCapacity),
		}
		ledger := NewLedger(repo, clock.NewSystem())

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationRejected, res.Status)
		assert.Equal(t, 4, res.Available)
		assert.True(t, repo.rolledBack)
		assert.Empty(t, repo.tickets)
	})

	t.Run("invalid id is reported as not found", func(t *testing.T) {
		repo := &fakeLedgerRepo{getErr: domain.ErrInvalidID}
		ledger := NewLedger(repo, clock.NewSystem())

		res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "not-a-uuid", Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationNotFound, res.Status)
	})
}

func TestLedger_ConcurrentRace(t *testing.T) {
	t.Parallel()

	ledger, store := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 10})

	var wg sync.WaitGroup
	results := make([]domain.Reservation, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: "e1", UserID: "u1", Quantity: 6})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	close(start)
	wg.Wait()

	var committed, rejected int
	for _, res := range results {
		switch res.Status {
		case domain.ReservationCommitted:
			committed++
			assert.Equal(t, 6, res.Sold)
		case domain.ReservationRejected:
			rejected++
			assert.Equal(t, 4, res.Available)
		default:
			t.Fatalf("unexpected status %s", res.Status)
		}
	}
	assert.Equal(t, 1, committed)
	assert.Equal(t, 1, rejected)

	ev, _ := store.GetEvent(context.Background(), "e1")
	assert.Equal(t, 6, ev.TicketSold)
}

func TestLedger_NoOversellUnderLoad(t *testing.T) {
	t.Parallel()

	const total = 50
	ledger, store := newMemoryLedger(t,
		domain.Event{ID: "e1", Name: "Concert", TotalTickets: total},
		domain.Event{ID: "e2", Name: "Opera", TotalTickets: total},
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	committedQty := map[string]int{}
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			eventID := "e1"
			if i%2 == 1 {
				eventID = "e2"
			}
			q := i%3 + 1
			res, err := ledger.Reserve(context.Background(), ReserveInput{EventID: eventID, UserID: "u", Quantity: q})
			if !assert.NoError(t, err) {
				return
			}
			if res.Committed() {
				mu.Lock()
				committedQty[eventID] += q
				mu.Unlock()
			} else {
				assert.Less(t, res.Available, q)
			}
		}(i)
	}
	wg.Wait()

	ctx := context.Background()
	for _, id := range []string{"e1", "e2"} {
		ev, err := store.GetEvent(ctx, id)
		require.NoError(t, err)
		assert.LessOrEqual(t, ev.TicketSold, total)
		assert.Equal(t, committedQty[id], ev.TicketSold)

		tickets, err := store.ListTicketsByEvent(ctx, id)
		require.NoError(t, err)
		sum := 0
		for _, tk := range tickets {
			sum += tk.Quantity
		}
		assert.Equal(t, ev.TicketSold, sum)
	}
}

func TestLedger_CancelledContextLeavesNoPartialWrite(t *testing.T) {
	t.Parallel()

	ledger, store := newMemoryLedger(t, domain.Event{ID: "e1", Name: "Concert", TotalTickets: 10})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ledger.Reserve(ctx, ReserveInput{EventID: "e1", UserID: "u1", Quantity: 2})
	require.Error(t, err)

	ev, _ := store.GetEvent(context.Background(), "e1")
	assert.Equal(t, 0, ev.TicketSold)
	tickets, _ := store.ListTicketsByEvent(context.Background(), "e1")
	assert.Empty(t, tickets)
}

type fakeLedgerRepo struct {
	event     domain.Event
	getErr    error
	updateErr error
	createErr error

	txCalls    int
	rolledBack bool
	sold       int
	tickets    []domain.Ticket
}

func (f *fakeLedgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCalls++
	if err := fn(ctx); err != nil {
		f.rolledBack = true
		return err
	}
	return nil
}

func (f *fakeLedgerRepo) GetEventForUpdate(_ context.Context, _ string) (domain.Event, error) {
	if f.getErr != nil {
		return domain.Event{}, f.getErr
	}
	return f.event, nil
}

func (f *fakeLedgerRepo) UpdateTicketSold(_ context.Context, _ string, sold int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.sold = sold
	return nil
}

func (f *fakeLedgerRepo) CreateTicket(_ context.Context, ticket domain.Ticket) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.tickets = append(f.tickets, ticket)
	return nil
}
