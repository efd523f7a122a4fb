package rebalance

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// newTestBook returns a book with two owners, three holdings and some cash.
func newTestBook(t *testing.T) *Book {
	t.Helper()
	b := NewBook("GBP")
	b.Owners["EF"] = "Ed Forrester"
	b.Owners["LF"] = "Lucy Forrester"
	for _, h := range []Holding{
		{Owner: "EF", Account: "SIPP", Ticker: "VJPN", Name: "Vanguard Japan", Quantity: Q(100), LastPrice: GBP(40), Target: 10},
		{Owner: "LF", Account: "ISA", Ticker: "VJPN", Name: "Vanguard Japan", Quantity: Q(50), LastPrice: GBP(40), Target: 10},
		{Owner: "LF", Account: "ISA", Ticker: "SGLN", Name: "iShares Gold", Quantity: Q(200), LastPrice: GBP(30), Target: 5},
	} {
		if err := b.AddHolding(h); err != nil {
			t.Fatalf("AddHolding() error = %v", err)
		}
	}
	if err := b.SetCash("Ed Forrester SIPP", GBP(1000)); err != nil {
		t.Fatalf("SetCash() error = %v", err)
	}
	return b
}

func TestBook_AddHolding(t *testing.T) {
	b := newTestBook(t)

	h, err := b.Holding(HoldingKey{Ticker: "VJPN", Account: "SIPP", Owner: "EF"})
	if err != nil {
		t.Fatalf("Holding() error = %v", err)
	}
	if got, want := h.Value, GBP(4000); !got.Equal(want) {
		t.Errorf("Holding().Value = %v, want %v", got, want)
	}
	if h.AssetType != "EQ" {
		t.Errorf("Holding().AssetType = %q, want %q", h.AssetType, "EQ")
	}

	t.Run("duplicate", func(t *testing.T) {
		err := b.AddHolding(Holding{Owner: "EF", Account: "SIPP", Ticker: "VJPN", Quantity: Q(1), LastPrice: GBP(1), Target: 1})
		if !errors.Is(err, ErrDuplicateHolding) {
			t.Errorf("AddHolding() error = %v, want %v", err, ErrDuplicateHolding)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name string
			h    Holding
		}{
			{"missing owner", Holding{Account: "ISA", Ticker: "X", Quantity: Q(1), LastPrice: GBP(1)}},
			{"missing ticker", Holding{Owner: "EF", Account: "ISA", Quantity: Q(1), LastPrice: GBP(1)}},
			{"negative quantity", Holding{Owner: "EF", Account: "ISA", Ticker: "X", Quantity: Q(-1), LastPrice: GBP(1)}},
			{"target above 100", Holding{Owner: "EF", Account: "ISA", Ticker: "X", Quantity: Q(1), LastPrice: GBP(1), Target: 101}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				before := len(b.Holdings)
				if err := b.AddHolding(tt.h); !errors.Is(err, ErrInvalidHolding) {
					t.Errorf("AddHolding() error = %v, want %v", err, ErrInvalidHolding)
				}
				if len(b.Holdings) != before {
					t.Errorf("AddHolding() modified the book on error")
				}
			})
		}
	})
}

func TestBook_AddHolding_ValueOnly(t *testing.T) {
	b := NewBook("GBP")
	if err := b.AddHolding(Holding{Owner: "EF", Account: "ISA", Ticker: "B61ZBV3", Quantity: Q(1), Value: GBP(2500), Target: 5}); err != nil {
		t.Fatalf("AddHolding() error = %v", err)
	}
	h := b.Holdings[0]
	if !h.LastPrice.Equal(GBP(2500)) || !h.Value.Equal(GBP(2500)) {
		t.Errorf("AddHolding() price, value = %v, %v, want £2,500.00 twice", h.LastPrice, h.Value)
	}
	if !h.Estimated {
		t.Errorf("AddHolding() without a price did not estimate the quantity")
	}

	// the first real price fixes the quantity, not the value.
	if _, err := b.ApplyPrices(map[string]Money{"B61ZBV3": GBP(125)}); err != nil {
		t.Fatalf("ApplyPrices() error = %v", err)
	}
	h = b.Holdings[0]
	if !h.Value.Equal(GBP(2500)) || !h.Quantity.Equal(Q(20)) || h.Estimated {
		t.Errorf("ApplyPrices() = %v × %v estimated %v, want 20 units worth £2,500.00", h.Quantity, h.Value, h.Estimated)
	}
}

func TestBook_UpdateHolding(t *testing.T) {
	key := HoldingKey{Ticker: "SGLN", Account: "ISA", Owner: "LF"}
	key2 := HoldingKey{Ticker: "SGLN", Account: "ISA", Owner: "EF"}

	t.Run("quantity recomputes the value", func(t *testing.T) {
		b := newTestBook(t)
		q := Q(300)
		if err := b.UpdateHolding(key, HoldingUpdate{Quantity: &q}); err != nil {
			t.Fatalf("UpdateHolding() error = %v", err)
		}
		h, _ := b.Holding(key)
		if got, want := h.Value, GBP(9000); !got.Equal(want) {
			t.Errorf("Value = %v, want %v", got, want)
		}
	})

	t.Run("explicit value is kept", func(t *testing.T) {
		b := newTestBook(t)
		v := NO(1234.5)
		name := "Gold"
		if err := b.UpdateHolding(key, HoldingUpdate{Value: &v, Name: &name}); err != nil {
			t.Fatalf("UpdateHolding() error = %v", err)
		}
		h, _ := b.Holding(key)
		if got, want := h.Value, GBP(1234.5); !got.Equal(want) {
			t.Errorf("Value = %v, want %v", got, want)
		}
		if h.Name != "Gold" {
			t.Errorf("Name = %q, want %q", h.Name, "Gold")
		}
	})

	t.Run("price rescales an estimated quantity", func(t *testing.T) {
		b := NewBook("GBP")
		if err := b.AddHolding(Holding{Owner: "EF", Account: "ISA", Ticker: "SGLN", Quantity: Q(1), Value: GBP(900)}); err != nil {
			t.Fatalf("AddHolding() error = %v", err)
		}
		p := GBP(30)
		if err := b.UpdateHolding(key2, HoldingUpdate{LastPrice: &p}); err != nil {
			t.Fatalf("UpdateHolding() error = %v", err)
		}
		h, _ := b.Holding(key2)
		if !h.Value.Equal(GBP(900)) || !h.Quantity.Equal(Q(30)) {
			t.Errorf("UpdateHolding() = %v × %v, want 30 units worth £900.00", h.Quantity, h.Value)
		}
	})

	t.Run("quantity ends the estimate", func(t *testing.T) {
		b := NewBook("GBP")
		if err := b.AddHolding(Holding{Owner: "EF", Account: "ISA", Ticker: "SGLN", Quantity: Q(1), Value: GBP(900)}); err != nil {
			t.Fatalf("AddHolding() error = %v", err)
		}
		q := Q(2)
		if err := b.UpdateHolding(key2, HoldingUpdate{Quantity: &q}); err != nil {
			t.Fatalf("UpdateHolding() error = %v", err)
		}
		h, _ := b.Holding(key2)
		if !h.Value.Equal(GBP(1800)) || h.Estimated {
			t.Errorf("UpdateHolding() = %v estimated %v, want £1,800.00 not estimated", h.Value, h.Estimated)
		}
	})

	t.Run("invalid target is rejected", func(t *testing.T) {
		b := newTestBook(t)
		target := Percent(-1)
		if err := b.UpdateHolding(key, HoldingUpdate{Target: &target}); !errors.Is(err, ErrInvalidHolding) {
			t.Errorf("UpdateHolding() error = %v, want %v", err, ErrInvalidHolding)
		}
		h, _ := b.Holding(key)
		if h.Target != 5 {
			t.Errorf("Target = %v, want unchanged 5", h.Target)
		}
	})

	t.Run("not found", func(t *testing.T) {
		b := newTestBook(t)
		err := b.UpdateHolding(HoldingKey{Ticker: "NOPE", Account: "ISA", Owner: "LF"}, HoldingUpdate{})
		if !errors.Is(err, ErrHoldingNotFound) {
			t.Errorf("UpdateHolding() error = %v, want %v", err, ErrHoldingNotFound)
		}
	})
}

func TestBook_DeleteHolding(t *testing.T) {
	b := newTestBook(t)
	if err := b.DeleteHolding(HoldingKey{Ticker: "SGLN", Account: "ISA", Owner: "LF"}); err != nil {
		t.Fatalf("DeleteHolding() error = %v", err)
	}
	if len(b.Holdings) != 2 {
		t.Errorf("len(Holdings) = %d, want 2", len(b.Holdings))
	}
	if got, want := b.Cash["Lucy Forrester ISA"], GBP(6000); !got.Equal(want) {
		t.Errorf("Cash[Lucy Forrester ISA] = %v, want %v", got, want)
	}

	err := b.DeleteHolding(HoldingKey{Ticker: "SGLN", Account: "ISA", Owner: "LF"})
	if !errors.Is(err, ErrHoldingNotFound) {
		t.Errorf("DeleteHolding() error = %v, want %v", err, ErrHoldingNotFound)
	}
}

func TestBook_Cash(t *testing.T) {
	b := newTestBook(t)
	if err := b.SetCash("Lucy Forrester ISA", NO(250)); err != nil {
		t.Fatalf("SetCash() error = %v", err)
	}
	if got, want := b.Cash["Lucy Forrester ISA"], GBP(250); !got.Equal(want) {
		t.Errorf("Cash[Lucy Forrester ISA] = %v, want %v", got, want)
	}
	if err := b.SetCash("Lucy Forrester ISA", GBP(-1)); !errors.Is(err, ErrNegativeCash) {
		t.Errorf("SetCash() error = %v, want %v", err, ErrNegativeCash)
	}
	if err := b.SetCashTarget(150); !errors.Is(err, ErrInvalidPercent) {
		t.Errorf("SetCashTarget() error = %v, want %v", err, ErrInvalidPercent)
	}
	if err := b.SetCashTarget(10); err != nil || b.CashTarget != 10 {
		t.Errorf("SetCashTarget(10) = %v, CashTarget = %v", err, b.CashTarget)
	}
}

func TestBook_SetOwner(t *testing.T) {
	b := newTestBook(t)
	if err := b.SetOwner("EF", "Edward Forrester"); err != nil {
		t.Fatalf("SetOwner() error = %v", err)
	}
	if _, ok := b.Cash["Ed Forrester SIPP"]; ok {
		t.Errorf("Cash still has the previous account name: %v", b.Cash)
	}
	if got, want := b.Cash["Edward Forrester SIPP"], GBP(1000); !got.Equal(want) {
		t.Errorf("Cash[Edward Forrester SIPP] = %v, want %v", got, want)
	}
}

func TestBook_ScaleTicker(t *testing.T) {
	b := newTestBook(t)
	// VJPN is worth 4000 + 2000.
	if err := b.ScaleTicker("VJPN", GBP(9000)); err != nil {
		t.Fatalf("ScaleTicker() error = %v", err)
	}
	sipp, _ := b.Holding(HoldingKey{Ticker: "VJPN", Account: "SIPP", Owner: "EF"})
	isa, _ := b.Holding(HoldingKey{Ticker: "VJPN", Account: "ISA", Owner: "LF"})
	if !sipp.Value.Equal(GBP(6000)) || !isa.Value.Equal(GBP(3000)) {
		t.Errorf("ScaleTicker() values = %v, %v, want %v, %v", sipp.Value, isa.Value, GBP(6000), GBP(3000))
	}
	if !sipp.Quantity.Equal(Q(150)) || !isa.Quantity.Equal(Q(75)) {
		t.Errorf("ScaleTicker() quantities = %v, %v, want 150, 75", sipp.Quantity, isa.Quantity)
	}
	if !sipp.LastPrice.Equal(GBP(40)) {
		t.Errorf("ScaleTicker() changed the last price to %v", sipp.LastPrice)
	}

	if err := b.ScaleTicker("NOPE", GBP(1)); !errors.Is(err, ErrTickerNotFound) {
		t.Errorf("ScaleTicker() error = %v, want %v", err, ErrTickerNotFound)
	}

	zero := NewBook("GBP")
	if err := zero.AddHolding(Holding{Owner: "EF", Account: "ISA", Ticker: "Z", Quantity: Q(0), LastPrice: GBP(10)}); err != nil {
		t.Fatalf("AddHolding() error = %v", err)
	}
	if err := zero.ScaleTicker("Z", GBP(100)); !errors.Is(err, ErrZeroValue) {
		t.Errorf("ScaleTicker() error = %v, want %v", err, ErrZeroValue)
	}
}

func TestBook_SetTickerTarget(t *testing.T) {
	b := newTestBook(t)
	if err := b.SetTickerTarget("VJPN", 12.5); err != nil {
		t.Fatalf("SetTickerTarget() error = %v", err)
	}
	for _, h := range b.Holdings {
		if h.Ticker == "VJPN" && h.Target != 12.5 {
			t.Errorf("Target of %s/%s = %v, want 12.5", h.Owner, h.Account, h.Target)
		}
	}
	if err := b.SetTickerTarget("NOPE", 1); !errors.Is(err, ErrTickerNotFound) {
		t.Errorf("SetTickerTarget() error = %v, want %v", err, ErrTickerNotFound)
	}
}

func TestBook_ApplyPrices(t *testing.T) {
	b := newTestBook(t)
	updated, err := b.ApplyPrices(map[string]Money{"VJPN": NO(42), "OTHER": GBP(1)})
	if err != nil {
		t.Fatalf("ApplyPrices() error = %v", err)
	}
	if diff := cmp.Diff([]string{"VJPN"}, updated); diff != "" {
		t.Errorf("ApplyPrices() mismatch (-want +got):\n%s", diff)
	}
	h, _ := b.Holding(HoldingKey{Ticker: "VJPN", Account: "ISA", Owner: "LF"})
	if !h.LastPrice.Equal(GBP(42)) || !h.Value.Equal(GBP(2100)) {
		t.Errorf("ApplyPrices() holding = %v %v, want %v %v", h.LastPrice, h.Value, GBP(42), GBP(2100))
	}
}

func TestBook_Snapshot(t *testing.T) {
	b := newTestBook(t)
	s := b.Snapshot()

	// 4000 + 2000 + 6000 invested, 1000 cash.
	if got, want := s.Total, GBP(13000); !got.Equal(want) {
		t.Errorf("Snapshot().Total = %v, want %v", got, want)
	}
	if got := s.Holdings[0].OwnerName; got != "Ed Forrester" {
		t.Errorf("Snapshot().Holdings[0].OwnerName = %q, want %q", got, "Ed Forrester")
	}
	if got := s.Holdings[2].Weight; !got.Equal(Percent(6000.0 / 13000 * 100)) {
		t.Errorf("Snapshot().Holdings[2].Weight = %v, want %v", got, Percent(6000.0/13000*100))
	}
	s.Holdings[0].Target = 99
	if b.Holdings[0].Target == 99 {
		t.Errorf("Snapshot() aliases the book holdings")
	}

	t.Run("deposits", func(t *testing.T) {
		d, err := s.WithDeposits(map[string]Money{
			"Lucy Forrester ISA": GBP(2000),
			"Ed Forrester SIPP":  GBP(-500),
		})
		if err != nil {
			t.Fatalf("WithDeposits() error = %v", err)
		}
		if got, want := d.Total, GBP(15000); !got.Equal(want) {
			t.Errorf("WithDeposits().Total = %v, want %v", got, want)
		}
		if got, want := d.Cash["Lucy Forrester ISA"], GBP(2000); !got.Equal(want) {
			t.Errorf("WithDeposits().Cash[Lucy Forrester ISA] = %v, want %v", got, want)
		}
		if got, want := d.Cash["Ed Forrester SIPP"], GBP(1000); !got.Equal(want) {
			t.Errorf("WithDeposits() applied a negative deposit: %v", got)
		}
		if _, ok := s.Cash["Lucy Forrester ISA"]; ok {
			t.Errorf("WithDeposits() modified the original snapshot")
		}
		if got := d.Holdings[2].Weight; !got.Equal(40) {
			t.Errorf("WithDeposits().Holdings[2].Weight = %v, want 40", got)
		}
	})

	t.Run("empty book", func(t *testing.T) {
		s := NewBook("GBP").Snapshot()
		if !s.Total.IsZero() {
			t.Errorf("Snapshot().Total = %v, want 0", s.Total)
		}
		r := s.Analyze()
		if len(r.Adjustments) != 0 || len(r.Actions) != 0 || len(r.CashNeeds) != 0 {
			t.Errorf("Analyze() of an empty book = %+v, want empty", r)
		}
	})
}

func TestSnapshot_Report(t *testing.T) {
	r := newTestBook(t).Snapshot().Report()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var got map[string]json.RawMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	for _, key := range []string{"total_value", "adjustments", "account_actions", "account_cash_needs", "holdings", "cash_target_percentage"} {
		if _, ok := got[key]; !ok {
			t.Errorf("Report JSON has no %q member: %s", key, data)
		}
	}
	var holdings []Holding
	if err := json.Unmarshal(got["holdings"], &holdings); err != nil {
		t.Fatalf("json.Unmarshal(holdings) error = %v", err)
	}
	if len(holdings) != 3 || holdings[1].OwnerName != "Lucy Forrester" {
		t.Errorf("Report holdings = %+v, want the 3 snapshot holdings", holdings)
	}
}

func TestBook_CurrencyMismatch(t *testing.T) {
	usd := M(10, "USD")
	key := HoldingKey{Ticker: "SGLN", Account: "ISA", Owner: "LF"}
	tests := []struct {
		name string
		fn   func(b *Book) error
	}{
		{"AddHolding", func(b *Book) error {
			return b.AddHolding(Holding{Owner: "EF", Account: "ISA", Ticker: "IUSA", Quantity: Q(1), LastPrice: usd})
		}},
		{"AddHolding value", func(b *Book) error {
			return b.AddHolding(Holding{Owner: "EF", Account: "ISA", Ticker: "IUSA", Quantity: Q(1), Value: usd})
		}},
		{"UpdateHolding", func(b *Book) error {
			return b.UpdateHolding(key, HoldingUpdate{LastPrice: &usd})
		}},
		{"UpdateHolding book cost", func(b *Book) error {
			return b.UpdateHolding(key, HoldingUpdate{BookCost: &usd})
		}},
		{"SetCash", func(b *Book) error {
			return b.SetCash("Ed Forrester SIPP", usd)
		}},
		{"ScaleTicker", func(b *Book) error {
			return b.ScaleTicker("VJPN", usd)
		}},
		{"ApplyPrices", func(b *Book) error {
			_, err := b.ApplyPrices(map[string]Money{"VJPN": GBP(41), "SGLN": usd})
			return err
		}},
		{"WithDeposits", func(b *Book) error {
			_, err := b.Snapshot().WithDeposits(map[string]Money{"Ed Forrester SIPP": usd})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBook(t)
			if err := tt.fn(b); !errors.Is(err, ErrCurrencyMismatch) {
				t.Errorf("%s error = %v, want %v", tt.name, err, ErrCurrencyMismatch)
			}
			if diff := cmp.Diff(newTestBook(t), b, moneyComparer, quantityComparer); diff != "" {
				t.Errorf("%s modified the book (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}
