// Package events publishes domain events to a message broker after the
// transaction that produced them has committed.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	PurchaseCompleted Type = "purchase.completed"
	PurchaseRefunded  Type = "purchase.refunded"
	OfferingCancelled Type = "offering.cancelled"
	RefundManual      Type = "refund.manual"
)

type Event struct {
	ID             uuid.UUID   `json:"id"`
	Type           Type        `json:"type"`
	OfferingID     int64       `json:"offering_id,omitempty"`
	TransactionRef *uuid.UUID  `json:"transaction_ref,omitempty"`
	AccountID      int64       `json:"account_id,omitempty"`
	AmountCents    int64       `json:"amount_cents"`
	Purchases      []uuid.UUID `json:"purchases,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

func (e Event) Marshal() ([]byte, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// PublishBestEffort publishes ev and logs a failure instead of returning it.
// Broker outages never fail a request whose transaction already committed.
func PublishBestEffort(ctx context.Context, p Publisher, log *slog.Logger, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.WarnContext(ctx, "event publish failed",
			slog.String("type", string(ev.Type)),
			slog.Int64("offering_id", ev.OfferingID),
			slog.Any("err", err),
		)
	}
}
