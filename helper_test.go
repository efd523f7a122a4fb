package rebalance

import (
	"github.com/google/go-cmp/cmp"
)

// GBP is a helper for test to create pound money from const
func GBP(v float64) Money { return M(v, "GBP") }

// NO is a helper for test to create money from const with no currency set
func NO(v float64) Money { return M(v, "") }

// moneyComparer compares Money by value and currency for cmp.Diff.
var moneyComparer = cmp.Comparer(func(a, b Money) bool { return a.Equal(b) })

// quantityComparer compares Quantity by value for cmp.Diff.
var quantityComparer = cmp.Comparer(func(a, b Quantity) bool { return a.Equal(b) })

// holding is a helper for test to create a holding with a value and a target.
func holding(owner, account, ticker string, value float64, target Percent) Holding {
	return Holding{
		Owner:     owner,
		AssetType: "EQ",
		Account:   account,
		Ticker:    ticker,
		Name:      ticker + " Fund",
		Quantity:  Q(1),
		LastPrice: GBP(value),
		BookCost:  GBP(value),
		Value:     GBP(value),
		Target:    target,
	}
}

// sumFor returns the signed sum of the account actions on ticker.
func sumFor(r *Result, ticker string) Money {
	var total Money
	for _, actions := range r.Actions {
		for _, a := range actions {
			if a.Ticker == ticker {
				total = total.Add(a.Signed())
			}
		}
	}
	return total
}
