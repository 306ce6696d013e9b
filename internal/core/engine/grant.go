package engine

import (
	"math/rand"

	"github.com/shopspring/decimal"
)

// InitialGrant is the balance a brand-new account starts with: a pseudo-random
// amount in [1, max), rounded to two decimal places. The ceiling is an
// operational policy knob (INITIAL_GRANT_MAX), not a core invariant.
func InitialGrant(max float64) decimal.Decimal {
	if max <= 1 {
		return decimal.NewFromInt(1)
	}
	grant := 1 + rand.Float64()*(max-1)
	return decimal.NewFromFloat(grant).Round(2)
}
