package ordervalue

import (
	"math"
	"testing"

	"github.com/opensource-commerce/kea/internal/domain"
)

const tolerance = 1e-9

func TestComputeTakesMaxNotSum(t *testing.T) {
	items := []domain.LineItem{
		{BasePrice: 100, BaseDiscountAmount: 0, Quantity: 1},
		{BasePrice: 250, BaseDiscountAmount: 0, Quantity: 1},
		{BasePrice: 40, BaseDiscountAmount: 0, Quantity: 2},
	}

	got := Compute(items, 1.0)
	if math.Abs(got-250) > tolerance {
		t.Errorf("Compute = %v, want 250 (max item price, not sum)", got)
	}
}

func TestComputeAppliesPerUnitDiscount(t *testing.T) {
	// 30 discount over qty 3 leaves 90 per unit; the undiscounted 95 item
	// becomes the most expensive.
	items := []domain.LineItem{
		{BasePrice: 100, BaseDiscountAmount: 30, Quantity: 3},
		{BasePrice: 95, BaseDiscountAmount: 0, Quantity: 1},
	}

	got := Compute(items, 1.0)
	if math.Abs(got-95) > tolerance {
		t.Errorf("Compute = %v, want 95", got)
	}

	// With a smaller discount the first item stays on top.
	items[0].BaseDiscountAmount = 9
	got = Compute(items, 1.0)
	if math.Abs(got-97) > tolerance {
		t.Errorf("Compute = %v, want 97", got)
	}
}

func TestComputeDividesByExchangeRate(t *testing.T) {
	items := []domain.LineItem{
		{BasePrice: 200, BaseDiscountAmount: 0, Quantity: 1},
	}

	got := Compute(items, 0.5)
	if math.Abs(got-400) > tolerance {
		t.Errorf("Compute = %v, want 400", got)
	}
}

func TestComputeEmptyOrder(t *testing.T) {
	if got := Compute(nil, 1.0); got != 0 {
		t.Errorf("Compute(nil) = %v, want 0", got)
	}
}

func TestComputeZeroQuantitySkipsDiscountShare(t *testing.T) {
	items := []domain.LineItem{
		{BasePrice: 120, BaseDiscountAmount: 50, Quantity: 0},
	}

	got := Compute(items, 1.0)
	if math.Abs(got-120) > tolerance {
		t.Errorf("Compute = %v, want 120", got)
	}
}
