package observability

import "go.opentelemetry.io/otel/attribute"

var (
	OfferingIDKey     = attribute.Key("tix.offering_id")
	AccountIDKey      = attribute.Key("tix.account_id")
	QuantityKey       = attribute.Key("tix.quantity")
	TransactionRefKey = attribute.Key("tix.transaction_ref")
	PurchaseIDKey     = attribute.Key("tix.purchase_id")
	AmountCentsKey    = attribute.Key("tix.amount_cents")
	OutcomeKey        = attribute.Key("tix.outcome")
)
