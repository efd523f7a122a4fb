package rebalance

import (
	"maps"
	"slices"
)

// Holding is one position, in one security, held in one account.
type Holding struct {
	Owner     string   `json:"owner"`                // owner code, e.g. "EF"
	OwnerName string   `json:"owner_name,omitempty"` // display name, the code is used when empty
	AssetType string   `json:"asset_type"`           // EQ, MA, FI, AA
	Account   string   `json:"account"`              // account type, e.g. "SIPP" or "ISA"
	Ticker    string   `json:"ticker"`
	Name      string   `json:"name"`
	Quantity  Quantity `json:"quantity"`
	LastPrice Money    `json:"last_price"`
	BookCost  Money    `json:"book_cost"`      // amount originally paid
	Value     Money    `json:"current_value"`  // current value
	Weight    Percent  `json:"current_weight"` // current weight in the total portfolio
	Target    Percent  `json:"target_weight"`  // target weight in the total portfolio

	// Estimated is set when the quantity was not known and derived from the
	// value, e.g. on CSV import. The first known price then rescales the
	// quantity instead of the value.
	Estimated bool `json:"estimated_quantity,omitempty"`
}

// Reprice sets the last price and recomputes the value as quantity × price.
// An estimated quantity is rescaled to value / price instead, the value is
// kept.
func (h *Holding) Reprice(price Money) {
	h.LastPrice = price
	if h.Estimated && price.IsPositive() {
		h.Quantity = h.Value.DivPrice(price)
		h.Estimated = false
		return
	}
	h.Value = price.Mul(h.Quantity)
}

// FullAccount returns the account identity used for cash and actions
// bookkeeping, like "Ed Forrester SIPP".
func (h Holding) FullAccount() string {
	name := h.OwnerName
	if name == "" {
		name = h.Owner
	}
	return FullAccount(name, h.Account)
}

// Key returns the identity of the holding within a book.
func (h Holding) Key() HoldingKey {
	return HoldingKey{Ticker: h.Ticker, Account: h.Account, Owner: h.Owner}
}

// FullAccount joins an owner display name and an account type.
func FullAccount(ownerName, account string) string {
	return ownerName + " " + account
}

// HoldingKey identifies a holding: a ticker in an owner's account.
type HoldingKey struct {
	Ticker  string `json:"ticker"`
	Account string `json:"account"`
	Owner   string `json:"owner"`
}

// Owners maps owner codes to their display names.
type Owners map[string]string

// Name returns the display name of owner code, or the code itself.
func (o Owners) Name(code string) string {
	if name, ok := o[code]; ok && name != "" {
		return name
	}
	return code
}

// CashBalances maps a full account name to its cash amount.
type CashBalances map[string]Money

// Total returns the sum of all balances.
func (c CashBalances) Total() Money {
	var total Money
	for _, acc := range c.Accounts() {
		total = total.Add(c[acc])
	}
	return total
}

// Accounts returns the account names in alphabetical order.
func (c CashBalances) Accounts() []string {
	return slices.Sorted(maps.Keys(c))
}

// Clone returns a copy of c that never aliases it.
func (c CashBalances) Clone() CashBalances {
	clone := make(CashBalances, len(c))
	maps.Copy(clone, c)
	return clone
}

// totalValue returns the sum of the holdings values.
func totalValue(holdings []Holding) Money {
	var total Money
	for _, h := range holdings {
		total = total.Add(h.Value)
	}
	return total
}
