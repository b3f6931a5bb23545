package postgres_test

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/cimillas/eventapi/internal/app"
	"github.com/cimillas/eventapi/internal/clock"
	"github.com/cimillas/eventapi/internal/domain"
	"github.com/cimillas/eventapi/internal/storage/postgres"
	"github.com/cimillas/eventapi/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
)

type LedgerSuite struct {
	suite.Suite
	pool   *pgxpool.Pool
	ledger *app.Ledger
	userID string
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupSuite() {
	s.pool = testutil.NewTestPool(s.T())
	testutil.ApplyMigrations(s.T(), context.Background(), s.pool)
	s.ledger = app.NewLedger(postgres.NewEventRepository(s.pool), clock.NewSystem())
}

func (s *LedgerSuite) SetupTest() {
	ctx := context.Background()
	testutil.TruncateAll(s.T(), ctx, s.pool)
	s.userID = testutil.InsertUser(s.T(), ctx, s.pool, "buyer@example.com", domain.RoleUser)
}

func (s *LedgerSuite) TestBoundaries() {
	ctx := context.Background()

	full := testutil.InsertEvent(s.T(), ctx, s.pool, "Full", 5, 5)
	res, err := s.ledger.Reserve(ctx, app.ReserveInput{EventID: full, UserID: s.userID, Quantity: 1})
	s.Require().NoError(err)
	s.Equal(domain.ReservationRejected, res.Status)
	s.Equal(0, res.Available)

	last := testutil.InsertEvent(s.T(), ctx, s.pool, "LastSeat", 5, 4)
	res, err = s.ledger.Reserve(ctx, app.ReserveInput{EventID: last, UserID: s.userID, Quantity: 1})
	s.Require().NoError(err)
	s.Equal(domain.ReservationCommitted, res.Status)
	s.Equal(5, res.Sold)

	partial := testutil.InsertEvent(s.T(), ctx, s.pool, "Partial", 10, 1)
	res, err = s.ledger.Reserve(ctx, app.ReserveInput{EventID: partial, UserID: s.userID, Quantity: math.MaxInt})
	s.Require().NoError(err)
	s.Equal(domain.ReservationRejected, res.Status)
	s.Equal(9, res.Available)

	res, err = s.ledger.Reserve(ctx, app.ReserveInput{EventID: "not-a-uuid", UserID: s.userID, Quantity: 1})
	s.Require().NoError(err)
	s.Equal(domain.ReservationNotFound, res.Status)
}

func (s *LedgerSuite) TestReadAfterCommit() {
	ctx := context.Background()
	eventID := testutil.InsertEvent(s.T(), ctx, s.pool, "Concert", 10, 3)

	res, err := s.ledger.Reserve(ctx, app.ReserveInput{EventID: eventID, UserID: s.userID, Quantity: 4})
	s.Require().NoError(err)
	s.Require().True(res.Committed())

	sold, sum := testutil.TicketSold(s.T(), ctx, s.pool, eventID)
	s.Equal(7, sold)
	s.Equal(4, sum)
}

func (s *LedgerSuite) TestConcurrentRace() {
	ctx := context.Background()
	eventID := testutil.InsertEvent(s.T(), ctx, s.pool, "Race", 10, 0)

	var wg sync.WaitGroup
	results := make([]domain.Reservation, 2)
	errs := make([]error, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = s.ledger.Reserve(ctx, app.ReserveInput{EventID: eventID, UserID: s.userID, Quantity: 6})
		}(i)
	}
	close(start)
	wg.Wait()

	statuses := map[domain.ReservationStatus]int{}
	for i, res := range results {
		s.Require().NoError(errs[i])
		statuses[res.Status]++
		if res.Status == domain.ReservationRejected {
			s.Equal(4, res.Available)
		}
	}
	s.Equal(1, statuses[domain.ReservationCommitted])
	s.Equal(1, statuses[domain.ReservationRejected])

	sold, sum := testutil.TicketSold(s.T(), ctx, s.pool, eventID)
	s.Equal(6, sold)
	s.Equal(6, sum)
}

func (s *LedgerSuite) TestNoOversellUnderLoad() {
	ctx := context.Background()
	const total = 40
	ids := []string{
		testutil.InsertEvent(s.T(), ctx, s.pool, "A", total, 0),
		testutil.InsertEvent(s.T(), ctx, s.pool, "B", total, 0),
	}

	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.ledger.Reserve(ctx, app.ReserveInput{EventID: ids[i%2], UserID: s.userID, Quantity: i%3 + 1})
			s.NoError(err, fmt.Sprintf("reserve %d", i))
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		sold, sum := testutil.TicketSold(s.T(), ctx, s.pool, id)
		s.LessOrEqual(sold, total)
		s.Equal(sold, sum)
	}
}
