package refund

import (
	"fmt"
	"time"

	"github.com/kirinyoku/tix-engine/internal/domain"
)

type Config struct {
	// Deadline is how long before the start a general refund is still allowed.
	Deadline time.Duration
	Percent  int
	// TransportLateDeadline and TransportLatePercent form the second, smaller
	// window that transport offerings get once Deadline has passed.
	TransportLateDeadline time.Duration
	TransportLatePercent  int
}

func DefaultConfig() Config {
	return Config{
		Deadline:              24 * time.Hour,
		Percent:               80,
		TransportLateDeadline: 2 * time.Hour,
		TransportLatePercent:  50,
	}
}

type Decision struct {
	Refundable     bool
	Percent        int
	AmountCents    int64
	Reason         string
	HoursRemaining float64
}

// Denied converts a negative decision into the error returned to callers.
func (d Decision) Denied() error {
	if d.Refundable {
		return nil
	}
	return &domain.RefundDeniedError{HoursRemaining: d.HoursRemaining, Reason: d.Reason}
}

// Policy decides whether a purchase may be refunded and for how much. It is
// pure: the same inputs always give the same decision.
type Policy struct {
	cfg Config
}

// Validate rejects percentages outside 0..100 and negative windows. A zero
// percent or window is a valid setting.
func (c Config) Validate() error {
	const op = "refund.Config.Validate"

	if c.Percent < 0 || c.Percent > 100 {
		return fmt.Errorf("%s: refund percent %d out of range 0..100", op, c.Percent)
	}
	if c.TransportLatePercent < 0 || c.TransportLatePercent > 100 {
		return fmt.Errorf("%s: transport late percent %d out of range 0..100", op, c.TransportLatePercent)
	}
	if c.Deadline < 0 || c.TransportLateDeadline < 0 {
		return fmt.Errorf("%s: refund windows must not be negative", op)
	}
	return nil
}

// NewPolicy builds a policy from cfg as given. Callers validate cfg first.
func NewPolicy(cfg Config) *Policy {
	return &Policy{cfg: cfg}
}

// Evaluate applies the refund windows to one purchase of the offering.
//
// Parameters:
//   - o: the offering the purchase belongs to.
//   - unitPriceCents: price paid for the purchase.
//   - now: evaluation time.
//
// Returns:
//   - Decision: refundable with percent and amount, or not refundable with
//     the hours left before the start (never negative).
func (p *Policy) Evaluate(o *domain.Offering, unitPriceCents int64, now time.Time) Decision {
	left := o.StartsAt.Sub(now)

	if left > p.cfg.Deadline {
		return p.refundable(p.cfg.Percent, unitPriceCents, left)
	}

	if o.IsTransport() && left > p.cfg.TransportLateDeadline {
		return p.refundable(p.cfg.TransportLatePercent, unitPriceCents, left)
	}

	deadline := p.cfg.Deadline
	if o.IsTransport() {
		deadline = p.cfg.TransportLateDeadline
	}

	return Decision{
		Refundable:     false,
		Reason:         fmt.Sprintf("refunds close %s before start", deadline),
		HoursRemaining: hours(left),
	}
}

func (p *Policy) refundable(percent int, unitPriceCents int64, left time.Duration) Decision {
	return Decision{
		Refundable:     true,
		Percent:        percent,
		AmountCents:    PercentOf(unitPriceCents, percent),
		HoursRemaining: hours(left),
	}
}

// PercentOf returns amount * percent / 100 rounded down.
func PercentOf(amountCents int64, percent int) int64 {
	return amountCents * int64(percent) / 100
}

func hours(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Hours()
}
