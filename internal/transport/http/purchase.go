package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cimillas/eventapi/internal/app"
	"github.com/cimillas/eventapi/internal/domain"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TicketPurchaser is the minimal interface needed to buy tickets.
type TicketPurchaser interface {
	Purchase(ctx context.Context, p domain.Principal, in app.PurchaseInput) (app.PurchaseResult, error)
}

type purchaseRequest struct {
	Quantity json.RawMessage `json:"quantity"`
}

type purchaseResponse struct {
	Msg        string `json:"msg"`
	Comment    string `json:"comment"`
	Quantity   int    `json:"quantity"`
	TicketSold int    `json:"ticket_sold"`
	TicketID   string `json:"ticket_id"`
}

// quantity returns nil when the field is absent or null, and an error when it
// is present but not an integer.
func (r purchaseRequest) quantity() (*int, error) {
	raw := bytes.TrimSpace(r.Quantity)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var q int
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, domain.ErrInvalidQuantity
	}
	return &q, nil
}

// HandlePurchase returns an HTTP handler for POST /events/{id}/purchase.
func HandlePurchase(svc TicketPurchaser, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMissingToken, "authentication required")
			return
		}

		var req purchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		quantity, err := req.quantity()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
			return
		}

		res, err := svc.Purchase(r.Context(), p, app.PurchaseInput{
			EventID:  mux.Vars(r)["id"],
			Quantity: quantity,
		})
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, http.StatusOK, purchaseResponse{
			Msg:        "success",
			Comment:    fmt.Sprintf("Successfully purchased %d tickets", res.Quantity),
			Quantity:   res.Quantity,
			TicketSold: res.Sold,
			TicketID:   res.Ticket.ID,
		})
	}
}
