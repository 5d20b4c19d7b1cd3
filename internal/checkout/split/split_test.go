package split

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestCalculateTwoMerchantScenario(t *testing.T) {
	t.Parallel()
	merchantA := uuid.New()
	merchantB := uuid.New()

	result, err := Calculate(Input{
		Lines: []Line{
			{ProductID: uuid.New(), MerchantID: merchantA, Quantity: 1, UnitPrice: dec("50"), FreeShipping: true},
			{ProductID: uuid.New(), MerchantID: merchantB, Quantity: 1, UnitPrice: dec("30"), ShippingCost: dec("5")},
		},
		DeliveryType: enums.DeliveryTypeDelivery,
		FeePct:       dec("5"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(result.Units))
	}

	assertUnit(t, result.Units[0], merchantA, "50", "0", "2.50", "47.50")
	assertUnit(t, result.Units[1], merchantB, "30", "5", "1.75", "33.25")
	if !result.GrandTotal.Equal(dec("85")) {
		t.Fatalf("expected grand total 85, got %s", result.GrandTotal)
	}
}

func assertUnit(t *testing.T, unit Unit, merchant uuid.UUID, subtotal, shipping, fee, amount string) {
	t.Helper()
	if unit.MerchantID != merchant {
		t.Fatalf("unexpected merchant %s", unit.MerchantID)
	}
	if !unit.Subtotal.Equal(dec(subtotal)) {
		t.Fatalf("subtotal: want %s got %s", subtotal, unit.Subtotal)
	}
	if !unit.ShippingCost.Equal(dec(shipping)) {
		t.Fatalf("shipping: want %s got %s", shipping, unit.ShippingCost)
	}
	if !unit.PlatformFee.Equal(dec(fee)) {
		t.Fatalf("fee: want %s got %s", fee, unit.PlatformFee)
	}
	if !unit.MerchantAmount.Equal(dec(amount)) {
		t.Fatalf("merchant amount: want %s got %s", amount, unit.MerchantAmount)
	}
}

func TestCalculatePickupZeroesShipping(t *testing.T) {
	t.Parallel()
	merchant := uuid.New()
	result, err := Calculate(Input{
		Lines: []Line{
			{ProductID: uuid.New(), MerchantID: merchant, Quantity: 2, UnitPrice: dec("10"), ShippingCost: dec("4")},
		},
		DeliveryType: enums.DeliveryTypePickup,
		FeePct:       dec("5"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertUnit(t, result.Units[0], merchant, "20", "0", "1", "19")
	if !result.Units[0].Items[0].ShippingCost.IsZero() {
		t.Fatalf("item shipping should be zero on pickup")
	}
}

func TestCalculateUsesLowerSalePrice(t *testing.T) {
	t.Parallel()
	merchant := uuid.New()
	sale := dec("8")
	higher := dec("12")
	result, err := Calculate(Input{
		Lines: []Line{
			{ProductID: uuid.New(), MerchantID: merchant, Quantity: 3, UnitPrice: dec("10"), SalePrice: &sale},
			{ProductID: uuid.New(), MerchantID: merchant, Quantity: 1, UnitPrice: dec("10"), SalePrice: &higher},
		},
		DeliveryType: enums.DeliveryTypePickup,
		FeePct:       dec("0"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Units[0].Subtotal.Equal(dec("34")) {
		t.Fatalf("expected subtotal 34, got %s", result.Units[0].Subtotal)
	}
	if !result.Units[0].Items[1].EffectivePrice.Equal(dec("10")) {
		t.Fatalf("higher sale price must be ignored")
	}
}

func TestCalculatePreservesEncounterOrder(t *testing.T) {
	t.Parallel()
	merchants := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	lines := []Line{
		{ProductID: uuid.New(), MerchantID: merchants[2], Quantity: 1, UnitPrice: dec("1")},
		{ProductID: uuid.New(), MerchantID: merchants[0], Quantity: 1, UnitPrice: dec("1")},
		{ProductID: uuid.New(), MerchantID: merchants[2], Quantity: 1, UnitPrice: dec("1")},
		{ProductID: uuid.New(), MerchantID: merchants[1], Quantity: 1, UnitPrice: dec("1")},
	}
	result, err := Calculate(Input{Lines: lines, DeliveryType: enums.DeliveryTypeDelivery, FeePct: dec("5")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []uuid.UUID{merchants[2], merchants[0], merchants[1]}
	for i, unit := range result.Units {
		if unit.MerchantID != want[i] || unit.Position != i {
			t.Fatalf("unit %d: got merchant %s position %d", i, unit.MerchantID, unit.Position)
		}
	}
	if len(result.Units[0].Items) != 2 {
		t.Fatalf("expected first merchant to hold both of its lines")
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	t.Parallel()
	cases := map[string]Input{
		"empty cart":    {DeliveryType: enums.DeliveryTypeDelivery, FeePct: dec("5")},
		"zero quantity": {Lines: []Line{{ProductID: uuid.New(), MerchantID: uuid.New(), UnitPrice: dec("1")}}, DeliveryType: enums.DeliveryTypeDelivery, FeePct: dec("5")},
		"bad delivery":  {Lines: []Line{{ProductID: uuid.New(), MerchantID: uuid.New(), Quantity: 1, UnitPrice: dec("1")}}, DeliveryType: "drone", FeePct: dec("5")},
		"fee too high":  {Lines: []Line{{ProductID: uuid.New(), MerchantID: uuid.New(), Quantity: 1, UnitPrice: dec("1")}}, DeliveryType: enums.DeliveryTypePickup, FeePct: dec("101")},
	}
	for name, in := range cases {
		if _, err := Calculate(in); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

// Unit totals always add back up to the cart total, to the cent, and every
// unit satisfies fee + merchant amount = gross.
func TestCalculateSumsMatchCartTotal(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		merchants := make([]uuid.UUID, 1+rng.Intn(5))
		for i := range merchants {
			merchants[i] = uuid.New()
		}
		delivery := enums.DeliveryTypeDelivery
		if rng.Intn(2) == 0 {
			delivery = enums.DeliveryTypePickup
		}

		var lines []Line
		cartTotal := decimal.Zero
		for i := 0; i < 1+rng.Intn(12); i++ {
			line := Line{
				ProductID:    uuid.New(),
				MerchantID:   merchants[rng.Intn(len(merchants))],
				Quantity:     1 + rng.Intn(5),
				UnitPrice:    decimal.New(int64(rng.Intn(100000)), -2),
				ShippingCost: decimal.New(int64(rng.Intn(2000)), -2),
				FreeShipping: rng.Intn(3) == 0,
			}
			lines = append(lines, line)
			cartTotal = cartTotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			if delivery == enums.DeliveryTypeDelivery && !line.FreeShipping {
				cartTotal = cartTotal.Add(line.ShippingCost)
			}
		}

		fee := decimal.New(int64(rng.Intn(2000)), -2)
		result, err := Calculate(Input{Lines: lines, DeliveryType: delivery, FeePct: fee})
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}

		distinct := map[uuid.UUID]bool{}
		for _, line := range lines {
			distinct[line.MerchantID] = true
		}
		if len(result.Units) != len(distinct) {
			t.Fatalf("run %d: expected %d units, got %d", run, len(distinct), len(result.Units))
		}

		sum := decimal.Zero
		for _, unit := range result.Units {
			sum = sum.Add(unit.Gross())
			if !unit.PlatformFee.Add(unit.MerchantAmount).Equal(unit.Gross()) {
				t.Fatalf("run %d: fee+amount != gross for %s", run, unit.MerchantID)
			}
		}
		if !sum.Equal(cartTotal) || !result.GrandTotal.Equal(cartTotal) {
			t.Fatalf("run %d: cart total %s, unit sum %s, grand total %s", run, cartTotal, sum, result.GrandTotal)
		}
	}
}
