package ledger

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Apply charges requestedDays against a balance copy: approved requests
// spend used days, escalated requests reserve pending days until human
// review resolves them. The balance is rejected, never clamped, when the
// charge would overdraw it.
func Apply(b Balance, requestedDays decimal.Decimal, disposition string) (Balance, error) {
	if requestedDays.LessThanOrEqual(decimal.Zero) {
		return b, errors.New("requested days must be positive")
	}

	remaining := b.Remaining()
	if remaining.LessThan(requestedDays) {
		return b, &InsufficientBalanceError{Remaining: remaining, Requested: requestedDays}
	}

	switch disposition {
	case StatusApproved:
		b.UsedDays = b.UsedDays.Add(requestedDays)
	case StatusEscalated:
		b.PendingDays = b.PendingDays.Add(requestedDays)
	default:
		return b, errors.New("unknown disposition " + disposition)
	}

	if err := checkInvariant(b); err != nil {
		return b, err
	}
	return b, nil
}

// Settle resolves a pending reservation after human review: approval moves
// the days from pending to used, rejection releases them.
func Settle(b Balance, days decimal.Decimal, approved bool) (Balance, error) {
	if days.GreaterThan(b.PendingDays) {
		return b, errors.New("settlement exceeds pending reservation")
	}
	b.PendingDays = b.PendingDays.Sub(days)
	if approved {
		b.UsedDays = b.UsedDays.Add(days)
	}
	if err := checkInvariant(b); err != nil {
		return b, err
	}
	return b, nil
}

func checkInvariant(b Balance) error {
	if b.UsedDays.IsNegative() || b.PendingDays.IsNegative() {
		return errors.New("balance invariant violated: negative used or pending days")
	}
	if b.UsedDays.Add(b.PendingDays).GreaterThan(b.Entitlement.Add(b.CarriedForward)) {
		return errors.New("balance invariant violated: used + pending exceeds entitlement")
	}
	return nil
}
