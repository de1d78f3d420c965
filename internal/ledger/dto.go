package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// EventView is the API shape of one ledger movement.
type EventView struct {
	ID        uuid.UUID             `json:"id"`
	Type      enums.LedgerEventType `json:"type"`
	Amount    decimal.Decimal       `json:"amount"`
	Reference string                `json:"reference"`
	Metadata  json.RawMessage       `json:"metadata,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

func NewEventViews(events []models.LedgerEvent) []EventView {
	out := make([]EventView, 0, len(events))
	for _, e := range events {
		out = append(out, EventView{
			ID:        e.ID,
			Type:      e.Type,
			Amount:    e.Amount,
			Reference: e.Reference,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
