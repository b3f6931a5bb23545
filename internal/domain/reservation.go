package domain

type ReservationStatus string

const (
	ReservationCommitted       ReservationStatus = "committed"
	ReservationRejected        ReservationStatus = "rejected"
	ReservationNotFound        ReservationStatus = "not_found"
	ReservationInvalidQuantity ReservationStatus = "invalid_quantity"
)

// Reservation is the ledger's decision for one reserve call.
// Sold is set on commit, Available on rejection.
type Reservation struct {
	Status    ReservationStatus
	Sold      int
	Available int
	Ticket    Ticket
}

func (r Reservation) Committed() bool {
	return r.Status == ReservationCommitted
}
