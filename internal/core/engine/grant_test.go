package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pscode22/payment-app/internal/core/engine"
)

func TestInitialGrantRange(t *testing.T) {
	one := decimal.NewFromInt(1)
	max := decimal.NewFromInt(10000)

	for i := 0; i < 100; i++ {
		grant := engine.InitialGrant(10000)
		if grant.LessThan(one) || grant.GreaterThan(max) {
			t.Fatalf("grant %s outside [1, 10000]", grant)
		}
		if grant.Exponent() < -2 {
			t.Fatalf("grant %s has more than two decimal places", grant)
		}
	}
}

func TestInitialGrantDegenerateCeiling(t *testing.T) {
	if got := engine.InitialGrant(0); !got.Equal(decimal.NewFromInt(1)) {
		t.Errorf("grant with zero ceiling = %s, want 1", got)
	}
}
