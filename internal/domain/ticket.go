package domain

import "time"

// Ticket is a purchase record; Quantity seats for one user on one event.
type Ticket struct {
	ID           string
	UserID       string
	EventID      string
	Quantity     int
	PurchaseDate time.Time
}
