package domain

import "time"

// Event is a ticketed event with a fixed seat pool.
type Event struct {
	ID           string
	Name         string
	Date         time.Time
	TotalTickets int
	TicketSold   int
	CreatedAt    time.Time
}

// Available returns how many tickets are still unsold.
func (e Event) Available() int {
	return e.TotalTickets - e.TicketSold
}
