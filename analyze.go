package rebalance

import (
	"slices"
)

// Materiality is the minimum absolute amount, in currency units, a ticker
// must drift from its target before an Adjustment is recommended.
const Materiality = 100

// Action is the kind of trade recommended.
type Action string

const (
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Adjustment is the portfolio level recommendation for a single ticker,
// aggregated across all the accounts holding it.
type Adjustment struct {
	Ticker        string   `json:"ticker"`
	Name          string   `json:"name"`
	Current       Money    `json:"current_value"`    // sum of current values across accounts
	Target        Money    `json:"target_value"`     // total value × target weight
	Value         Money    `json:"adjustment_value"` // Target - Current, positive to buy
	CurrentWeight Percent  `json:"current_weight"`   // Current in % of the total value
	TargetWeight  Percent  `json:"target_weight"`    // max target weight across accounts
	Drift         Percent  `json:"adjustment_pct"`   // CurrentWeight - TargetWeight
	Action        Action   `json:"action"`
	Accounts      []string `json:"held_in_accounts"` // full accounts holding the ticker
}

// AccountAction is a trade to execute in a given account.
type AccountAction struct {
	Action Action `json:"action"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
	Value  Money  `json:"value"` // always positive, Action gives the direction
}

// Signed returns the action value, negative for a sell.
func (a AccountAction) Signed() Money {
	if a.Action == Sell {
		return a.Value.Neg()
	}
	return a.Value
}

// Result is the outcome of a rebalancing analysis.
type Result struct {
	TotalValue   Money        `json:"total_value"`
	CashBalances CashBalances `json:"cash_balances"`
	TotalCash    Money        `json:"total_cash"`
	CashTarget   Percent      `json:"cash_target_percentage"`
	// TargetCash is CashTarget applied to TotalValue. It is reported only,
	// target weights already encode the non cash allocation.
	TargetCash Money `json:"target_cash_value"`
	// Adjustments sorted by decreasing absolute value.
	Adjustments []Adjustment `json:"adjustments"`
	// Actions per full account, in the order they were decided.
	Actions map[string][]AccountAction `json:"account_actions"`
	// CashNeeds per full account, only strictly positive needs are present.
	CashNeeds map[string]Money `json:"account_cash_needs"`
}

// Accounts returns the accounts with actions, in alphabetical order.
func (r *Result) Accounts() []string {
	accounts := make([]string, 0, len(r.Actions))
	for acc := range r.Actions {
		accounts = append(accounts, acc)
	}
	slices.Sort(accounts)
	return accounts
}

// Analyze computes the rebalancing recommendations for holdings and cash
// balances.
//
// total is the total portfolio value (holdings and cash) as computed by the
// caller, it is not recomputed. cashTarget is reported in the result but
// does not change the per ticker targets.
//
// Inputs are never modified.
func Analyze(holdings []Holding, cash CashBalances, total Money, cashTarget Percent) *Result {
	r := &Result{
		TotalValue:   total,
		CashBalances: cash.Clone(),
		TotalCash:    cash.Total(),
		CashTarget:   cashTarget,
		TargetCash:   cashTarget.Of(total),
		Adjustments:  []Adjustment{},
		Actions:      make(map[string][]AccountAction),
		CashNeeds:    make(map[string]Money),
	}

	groups := groupByTicker(holdings)

	// sells must be decided before buys, they free the cash buys consume.
	adjustments := r.adjust(groups)
	available := newCashTracker(cash)
	r.allocateSells(groups, adjustments, available)
	r.allocateBuys(groups, adjustments, available)
	r.fundingNeeds(cash)

	slices.SortStableFunc(r.Adjustments, func(a, b Adjustment) int {
		return b.Value.Abs().Decimal().Cmp(a.Value.Abs().Decimal())
	})
	return r
}

// tickerGroup gathers the holdings of one ticker.
type tickerGroup struct {
	ticker   string
	holdings []Holding
}

// groupByTicker groups holdings by ticker, in first appearance order.
func groupByTicker(holdings []Holding) []tickerGroup {
	var groups []tickerGroup
	index := make(map[string]int)
	for _, h := range holdings {
		i, ok := index[h.Ticker]
		if !ok {
			i = len(groups)
			index[h.Ticker] = i
			groups = append(groups, tickerGroup{ticker: h.Ticker})
		}
		groups[i].holdings = append(groups[i].holdings, h)
	}
	return groups
}

// adjust computes the portfolio level adjustment of each ticker.
func (r *Result) adjust(groups []tickerGroup) map[string]Adjustment {
	adjustments := make(map[string]Adjustment)
	for _, g := range groups {
		current := totalValue(g.holdings)

		// an account phasing the ticker out (0%) must not hide the target of
		// the others.
		var target Percent
		for _, h := range g.holdings {
			target = max(target, h.Target)
		}
		if target == 0 {
			continue
		}

		targetValue := target.Of(r.TotalValue)
		value := targetValue.Sub(current)
		if value.Abs().LessThanOrEqual(M(Materiality, "")) {
			continue
		}

		action := Sell
		if value.IsPositive() {
			action = Buy
		}
		currentWeight := PercentOf(current, r.TotalValue)
		accounts := make([]string, 0, len(g.holdings))
		for _, h := range g.holdings {
			accounts = append(accounts, h.FullAccount())
		}
		adj := Adjustment{
			Ticker:        g.ticker,
			Name:          g.holdings[0].Name,
			Current:       current,
			Target:        targetValue,
			Value:         value,
			CurrentWeight: currentWeight,
			TargetWeight:  target,
			Drift:         currentWeight - target,
			Action:        action,
			Accounts:      accounts,
		}
		r.Adjustments = append(r.Adjustments, adj)
		adjustments[g.ticker] = adj
	}
	return adjustments
}

// allocateSells fully exits the holdings whose own target is 0, then spreads
// the remaining sell of each SELL adjustment across the kept holdings in
// proportion of their value.
func (r *Result) allocateSells(groups []tickerGroup, adjustments map[string]Adjustment, available cashTracker) {
	for _, g := range groups {
		var exited Money
		var keep []Holding
		for _, h := range g.holdings {
			switch {
			case h.Target == 0 && h.Value.IsPositive():
				r.record(h.FullAccount(), Sell, h, h.Value)
				available.credit(h.FullAccount(), h.Value)
				exited = exited.Add(h.Value)
			case h.Target > 0:
				keep = append(keep, h)
			}
		}

		adj, ok := adjustments[g.ticker]
		if !ok || adj.Action != Sell || len(keep) == 0 {
			continue
		}
		remaining := adj.Value.Abs().Sub(exited)
		if !remaining.IsPositive() {
			// exits already cover the ticker reduction.
			continue
		}
		kept := totalValue(keep)
		if !kept.IsPositive() {
			continue
		}
		for _, h := range keep {
			amount := remaining.Mul(h.Value.DivPrice(kept))
			if amount.IsZero() {
				continue
			}
			r.record(h.FullAccount(), Sell, h, amount)
			available.credit(h.FullAccount(), amount)
		}
	}
}

// allocateBuys spreads each BUY adjustment across the accounts with a non zero
// target, in proportion of their available cash, or evenly when none is
// available. Shares are taken over the positive balances only: an overdrawn
// account gets no part of the buy rather than a negative one.
func (r *Result) allocateBuys(groups []tickerGroup, adjustments map[string]Adjustment, available cashTracker) {
	for _, g := range groups {
		adj, ok := adjustments[g.ticker]
		if !ok || adj.Action != Buy {
			continue
		}

		// one destination per account, even if it holds the ticker twice.
		var accounts []string
		names := make(map[string]Holding)
		for _, h := range g.holdings {
			acc := h.FullAccount()
			if _, seen := names[acc]; seen || h.Target <= 0 {
				continue
			}
			names[acc] = h
			accounts = append(accounts, acc)
		}
		if len(accounts) == 0 {
			continue
		}

		var combined, positive Money
		for _, acc := range accounts {
			combined = combined.Add(available.balance(acc))
			positive = positive.Add(available.balance(acc).Max(Money{}))
		}

		for _, acc := range accounts {
			var amount Money
			if combined.IsPositive() {
				share := available.balance(acc).Max(Money{}).DivPrice(positive)
				amount = adj.Value.Mul(share)
			} else {
				amount = adj.Value.Div(Q(len(accounts)))
			}
			if amount.IsZero() {
				continue
			}
			r.record(acc, Buy, names[acc], amount)
			// may become negative: a shortfall to fund.
			available.debit(acc, amount)
		}
	}
}

// fundingNeeds computes, for each account with actions, the cash missing
// once the sells and the original balance are used for the buys.
func (r *Result) fundingNeeds(cash CashBalances) {
	for acc, actions := range r.Actions {
		var buys, sells Money
		for _, a := range actions {
			switch a.Action {
			case Buy:
				buys = buys.Add(a.Value)
			case Sell:
				sells = sells.Add(a.Value.Abs())
			}
		}
		need := buys.Sub(sells).Sub(cash[acc])
		if need.IsPositive() {
			r.CashNeeds[acc] = need
		}
	}
}

func (r *Result) record(account string, action Action, h Holding, amount Money) {
	r.Actions[account] = append(r.Actions[account], AccountAction{
		Action: action,
		Ticker: h.Ticker,
		Name:   h.Name,
		Value:  amount,
	})
}

// cashTracker is the running cash balance of each account during one
// analysis. It may go negative.
type cashTracker map[string]Money

func newCashTracker(cash CashBalances) cashTracker {
	return cashTracker(cash.Clone())
}

func (t cashTracker) balance(account string) Money { return t[account] }
func (t cashTracker) credit(account string, m Money) {
	t[account] = t[account].Add(m)
}
func (t cashTracker) debit(account string, m Money) {
	t[account] = t[account].Sub(m)
}
