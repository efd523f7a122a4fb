package rebalance

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidHolding   = errors.New("invalid holding")
	ErrHoldingNotFound  = errors.New("holding not found")
	ErrDuplicateHolding = errors.New("holding already exists")
	ErrTickerNotFound   = errors.New("ticker not found")
	ErrZeroValue        = errors.New("cannot update zero-value holding")
	ErrInvalidPercent   = errors.New("percentage must be within [0, 100]")
	ErrMissingAccount   = errors.New("account is required")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// NewHolding returns a validated holding whose value is quantity × last price.
func NewHolding(owner, account, ticker, name string, quantity Quantity, lastPrice Money, target Percent) (Holding, error) {
	h := Holding{
		Owner:     strings.TrimSpace(owner),
		AssetType: "EQ",
		Account:   strings.TrimSpace(account),
		Ticker:    strings.TrimSpace(ticker),
		Name:      name,
		Quantity:  quantity,
		LastPrice: lastPrice,
		BookCost:  lastPrice.Mul(quantity),
		Value:     lastPrice.Mul(quantity),
		Target:    target,
	}
	return h, h.Validate()
}

// Validate returns an error wrapping ErrInvalidHolding listing every failed rule.
func (h Holding) Validate() error {
	var errs []error
	if h.Owner == "" {
		errs = append(errs, errors.New("owner is required"))
	}
	if h.Account == "" {
		errs = append(errs, ErrMissingAccount)
	}
	if h.Ticker == "" {
		errs = append(errs, errors.New("ticker is required"))
	}
	if h.Quantity.IsNegative() {
		errs = append(errs, fmt.Errorf("quantity %v is negative", h.Quantity))
	}
	if h.Value.IsNegative() {
		errs = append(errs, fmt.Errorf("current value %v is negative", h.Value))
	}
	if h.LastPrice.IsNegative() {
		errs = append(errs, fmt.Errorf("last price %v is negative", h.LastPrice))
	}
	if err := validPercent(h.Target); err != nil {
		errs = append(errs, fmt.Errorf("target weight: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %s/%s/%s: %w", ErrInvalidHolding, h.Owner, h.Account, h.Ticker, errors.Join(errs...))
}

func validPercent(p Percent) error {
	if p < 0 || p > 100 || p != p {
		return fmt.Errorf("%w: got %v", ErrInvalidPercent, float64(p))
	}
	return nil
}
