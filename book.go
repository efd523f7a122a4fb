package rebalance

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DefaultCurrency is the currency of a book that does not declare one.
const DefaultCurrency = "GBP"

// DefaultCashTarget is the cash target percentage of a new book.
const DefaultCashTarget Percent = 7.6

// ErrNegativeCash is returned when setting a negative cash balance.
var ErrNegativeCash = errors.New("cash balance cannot be negative")

// Book is the persisted state of the portfolio: holdings, cash per account,
// and the portfolio wide cash target.
//
// Book methods validate their inputs and leave the book untouched on error.
type Book struct {
	Currency   string
	Owners     Owners
	Holdings   []Holding
	Cash       CashBalances
	CashTarget Percent
}

// NewBook returns an empty book in currency.
func NewBook(currency string) *Book {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Book{
		Currency:   currency,
		Owners:     make(Owners),
		Cash:       make(CashBalances),
		CashTarget: DefaultCashTarget,
	}
}

// FullAccount returns the full account name of an owner's account.
func (b *Book) FullAccount(owner, account string) string {
	return FullAccount(b.Owners.Name(owner), account)
}

// Accounts returns every full account known to the book, from holdings and
// cash balances, in alphabetical order.
func (b *Book) Accounts() []string {
	seen := make(map[string]bool)
	for _, h := range b.Holdings {
		seen[b.FullAccount(h.Owner, h.Account)] = true
	}
	for acc := range b.Cash {
		seen[acc] = true
	}
	accounts := make([]string, 0, len(seen))
	for acc := range seen {
		accounts = append(accounts, acc)
	}
	slices.Sort(accounts)
	return accounts
}

// Tickers returns the distinct tickers held, in first appearance order.
func (b *Book) Tickers() []string {
	var tickers []string
	for _, h := range b.Holdings {
		if !slices.Contains(tickers, h.Ticker) {
			tickers = append(tickers, h.Ticker)
		}
	}
	return tickers
}

// index returns the position of the holding identified by key, or -1.
func (b *Book) index(key HoldingKey) int {
	return slices.IndexFunc(b.Holdings, func(h Holding) bool { return h.Key() == key })
}

// Holding returns the holding identified by key.
func (b *Book) Holding(key HoldingKey) (Holding, error) {
	i := b.index(key)
	if i < 0 {
		return Holding{}, fmt.Errorf("%w: %s/%s/%s", ErrHoldingNotFound, key.Owner, key.Account, key.Ticker)
	}
	return b.Holdings[i], nil
}

// AddHolding appends h to the book. Its value is recomputed as quantity ×
// last price. When the last price is missing it is derived from the value,
// and the quantity is marked as estimated.
func (b *Book) AddHolding(h Holding) error {
	h.Owner = strings.TrimSpace(h.Owner)
	h.Account = strings.TrimSpace(h.Account)
	h.Ticker = strings.TrimSpace(h.Ticker)
	if h.AssetType == "" {
		h.AssetType = "EQ"
	}
	for _, m := range []*Money{&h.LastPrice, &h.BookCost, &h.Value} {
		amount, err := b.inCurrency(*m)
		if err != nil {
			return fmt.Errorf("holding %s/%s/%s: %w", h.Owner, h.Account, h.Ticker, err)
		}
		*m = amount
	}
	h.Estimated = h.LastPrice.IsZero() && h.Quantity.IsPositive() && h.Value.IsPositive()
	if h.Estimated {
		h.LastPrice = h.Value.Div(h.Quantity)
	} else {
		h.Value = h.LastPrice.Mul(h.Quantity)
	}
	h.OwnerName, h.Weight = "", 0
	if err := h.Validate(); err != nil {
		return err
	}
	if b.index(h.Key()) >= 0 {
		return fmt.Errorf("%w: %s/%s/%s", ErrDuplicateHolding, h.Owner, h.Account, h.Ticker)
	}
	b.Holdings = append(b.Holdings, h)
	return nil
}

// HoldingUpdate is a partial update of a holding, nil fields are left
// unchanged.
type HoldingUpdate struct {
	Name      *string   `json:"name,omitempty"`
	AssetType *string   `json:"asset_type,omitempty"`
	Quantity  *Quantity `json:"quantity,omitempty"`
	LastPrice *Money    `json:"last_price,omitempty"`
	BookCost  *Money    `json:"book_cost,omitempty"`
	Value     *Money    `json:"current_value,omitempty"`
	Target    *Percent  `json:"target_weight,omitempty"`
}

// UpdateHolding applies u to the holding identified by key. The value is
// recomputed as quantity × last price when either of them changes, otherwise
// an explicit value is kept as is. A new quantity is no longer estimated, a
// new price alone reprices an estimated quantity, see Holding.Reprice.
func (b *Book) UpdateHolding(key HoldingKey, u HoldingUpdate) error {
	i := b.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s/%s", ErrHoldingNotFound, key.Owner, key.Account, key.Ticker)
	}
	for _, m := range []*Money{u.LastPrice, u.BookCost, u.Value} {
		if m == nil {
			continue
		}
		if _, err := b.inCurrency(*m); err != nil {
			return fmt.Errorf("holding %s/%s/%s: %w", key.Owner, key.Account, key.Ticker, err)
		}
	}
	h := b.Holdings[i]
	if u.Name != nil {
		h.Name = *u.Name
	}
	if u.AssetType != nil {
		h.AssetType = *u.AssetType
	}
	if u.BookCost != nil {
		h.BookCost = u.BookCost.In(b.Currency)
	}
	if u.Value != nil {
		h.Value = u.Value.In(b.Currency)
	}
	if u.Target != nil {
		h.Target = *u.Target
	}
	if u.Quantity != nil {
		h.Quantity = *u.Quantity
		h.Estimated = false
	}
	switch {
	case u.LastPrice != nil:
		h.Reprice(u.LastPrice.In(b.Currency))
	case u.Quantity != nil:
		h.Value = h.LastPrice.Mul(h.Quantity)
	}
	if err := h.Validate(); err != nil {
		return err
	}
	b.Holdings[i] = h
	return nil
}

// DeleteHolding removes the holding identified by key and credits its value
// to the account's cash.
func (b *Book) DeleteHolding(key HoldingKey) error {
	i := b.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s/%s/%s", ErrHoldingNotFound, key.Owner, key.Account, key.Ticker)
	}
	h := b.Holdings[i]
	acc := b.FullAccount(h.Owner, h.Account)
	if b.Cash == nil {
		b.Cash = make(CashBalances)
	}
	b.Cash[acc] = b.Cash[acc].Add(h.Value).In(b.Currency)
	b.Holdings = slices.Delete(b.Holdings, i, i+1)
	return nil
}

// SetCash sets the cash balance of a full account.
func (b *Book) SetCash(account string, amount Money) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return ErrMissingAccount
	}
	amount, err := b.inCurrency(amount)
	if err != nil {
		return fmt.Errorf("cash of %s: %w", account, err)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s %v", ErrNegativeCash, account, amount)
	}
	if b.Cash == nil {
		b.Cash = make(CashBalances)
	}
	b.Cash[account] = amount
	return nil
}

// SetCashTarget sets the portfolio wide cash target percentage.
func (b *Book) SetCashTarget(p Percent) error {
	if err := validPercent(p); err != nil {
		return fmt.Errorf("cash target: %w", err)
	}
	b.CashTarget = p
	return nil
}

// SetOwner sets the display name of an owner code. Cash balances filed under
// the previous full account names are moved to the new ones.
func (b *Book) SetOwner(code, name string) error {
	code, name = strings.TrimSpace(code), strings.TrimSpace(name)
	if code == "" {
		return errors.New("owner code is required")
	}
	previous := b.Owners.Name(code) + " "
	if b.Owners == nil {
		b.Owners = make(Owners)
	}
	b.Owners[code] = name
	current := b.Owners.Name(code) + " "
	if previous == current {
		return nil
	}
	for _, acc := range b.Cash.Accounts() {
		if account, ok := strings.CutPrefix(acc, previous); ok {
			b.Cash[current+account] = b.Cash[current+account].Add(b.Cash[acc])
			delete(b.Cash, acc)
		}
	}
	return nil
}

// ScaleTicker sets the total value of ticker across all accounts to total.
// Each holding's value and quantity are scaled by the same ratio, the last
// price is left unchanged.
func (b *Book) ScaleTicker(ticker string, total Money) error {
	var current Money
	var found bool
	for _, h := range b.Holdings {
		if h.Ticker == ticker {
			found = true
			current = current.Add(h.Value)
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	if current.IsZero() {
		return fmt.Errorf("%w: %s", ErrZeroValue, ticker)
	}
	total, err := b.inCurrency(total)
	if err != nil {
		return fmt.Errorf("total value of %s: %w", ticker, err)
	}
	if total.IsNegative() {
		return fmt.Errorf("%w: new value %v is negative", ErrInvalidHolding, total)
	}
	ratio := total.DivPrice(current)
	for i, h := range b.Holdings {
		if h.Ticker != ticker {
			continue
		}
		b.Holdings[i].Value = h.Value.Mul(ratio)
		b.Holdings[i].Quantity = h.Quantity.Mul(ratio)
	}
	return nil
}

// SetTickerTarget sets the target weight of every holding of ticker.
func (b *Book) SetTickerTarget(ticker string, target Percent) error {
	if err := validPercent(target); err != nil {
		return fmt.Errorf("target weight of %s: %w", ticker, err)
	}
	var found bool
	for i, h := range b.Holdings {
		if h.Ticker == ticker {
			b.Holdings[i].Target = target
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrTickerNotFound, ticker)
	}
	return nil
}

// ApplyPrices reprices every holding whose ticker has a price, see
// Holding.Reprice. It returns the updated tickers in first appearance order.
// Nothing is updated when a price is not in the book currency.
func (b *Book) ApplyPrices(prices map[string]Money) ([]string, error) {
	for ticker, price := range prices {
		if _, err := b.inCurrency(price); err != nil {
			return nil, fmt.Errorf("price of %s: %w", ticker, err)
		}
	}
	var updated []string
	for i, h := range b.Holdings {
		price, ok := prices[h.Ticker]
		if !ok || price.IsNegative() {
			continue
		}
		b.Holdings[i].Reprice(price.In(b.Currency))
		if !slices.Contains(updated, h.Ticker) {
			updated = append(updated, h.Ticker)
		}
	}
	return updated, nil
}

// inCurrency labels m in the book currency. Amounts in another currency are
// rejected.
func (b *Book) inCurrency(m Money) (Money, error) {
	return checkCurrency(m, b.Currency)
}

func checkCurrency(m Money, currency string) (Money, error) {
	if m.cur != "" && m.cur != currency {
		return m, fmt.Errorf("%w: %s amount in a %s portfolio", ErrCurrencyMismatch, m.cur, currency)
	}
	return m.In(currency), nil
}

// Snapshot is the frozen input of an analysis: holdings with their current
// weights, cash per account, the total value and the cash target.
type Snapshot struct {
	Holdings   []Holding    `json:"holdings"`
	Cash       CashBalances `json:"cash_balances"`
	Total      Money        `json:"total_value"`
	CashTarget Percent      `json:"cash_target_percentage"`
	currency   string
}

// Snapshot returns the current state of the book ready for analysis. It never
// aliases the book.
func (b *Book) Snapshot() *Snapshot {
	s := &Snapshot{
		Holdings:   make([]Holding, len(b.Holdings)),
		Cash:       b.Cash.Clone(),
		CashTarget: b.CashTarget,
		currency:   b.Currency,
	}
	copy(s.Holdings, b.Holdings)
	for i := range s.Holdings {
		s.Holdings[i].OwnerName = b.Owners.Name(s.Holdings[i].Owner)
	}
	s.weigh()
	return s
}

// weigh recomputes the total value and the current weight of each holding.
func (s *Snapshot) weigh() {
	s.Total = s.Invested().Add(s.Cash.Total()).In(s.currency)
	for i, h := range s.Holdings {
		s.Holdings[i].Weight = PercentOf(h.Value, s.Total)
	}
}

// Invested returns the total value of the holdings, cash excluded.
func (s *Snapshot) Invested() Money {
	return totalValue(s.Holdings).In(s.currency)
}

// WithDeposits returns a copy of s where each strictly positive deposit is
// added to its account cash. Total value and weights are recomputed. Deposits
// must be in the snapshot currency.
func (s *Snapshot) WithDeposits(deposits map[string]Money) (*Snapshot, error) {
	d := &Snapshot{
		Holdings:   slices.Clone(s.Holdings),
		Cash:       s.Cash.Clone(),
		CashTarget: s.CashTarget,
		currency:   s.currency,
	}
	for acc, amount := range deposits {
		amount, err := checkCurrency(amount, s.currency)
		if err != nil {
			return nil, fmt.Errorf("deposit in %s: %w", acc, err)
		}
		if amount.IsPositive() {
			d.Cash[acc] = d.Cash[acc].Add(amount)
		}
	}
	d.weigh()
	return d, nil
}

// Analyze runs the rebalancing analysis on the snapshot.
func (s *Snapshot) Analyze() *Result {
	return Analyze(s.Holdings, s.Cash, s.Total, s.CashTarget)
}

// Report is an analysis together with the holdings it was computed from.
type Report struct {
	*Result
	Holdings []Holding `json:"holdings"`
}

// Report runs the analysis and keeps the snapshot holdings alongside.
func (s *Snapshot) Report() *Report {
	return &Report{Result: s.Analyze(), Holdings: s.Holdings}
}
