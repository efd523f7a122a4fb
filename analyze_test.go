package rebalance

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAnalyze_Scenarios(t *testing.T) {
	t.Run("single buy without cash", func(t *testing.T) {
		holdings := []Holding{holding("X", "ISA", "ABC", 10000, 15)}
		cash := CashBalances{"X ISA": GBP(0)}

		r := Analyze(holdings, cash, GBP(100000), 7.6)

		if len(r.Adjustments) != 1 {
			t.Fatalf("Analyze() got %d adjustments, want 1", len(r.Adjustments))
		}
		adj := r.Adjustments[0]
		if adj.Action != Buy {
			t.Errorf("Adjustment.Action = %v, want %v", adj.Action, Buy)
		}
		if !adj.Value.Equal(GBP(5000)) {
			t.Errorf("Adjustment.Value = %v, want %v", adj.Value, GBP(5000))
		}
		if !adj.Drift.Equal(-5) {
			t.Errorf("Adjustment.Drift = %v, want -5%%", adj.Drift)
		}

		want := []AccountAction{{Action: Buy, Ticker: "ABC", Name: "ABC Fund", Value: GBP(5000)}}
		if diff := cmp.Diff(want, r.Actions["X ISA"], moneyComparer); diff != "" {
			t.Errorf("Analyze() actions mismatch (-want +got):\n%s", diff)
		}
		if got := r.CashNeeds["X ISA"]; !got.Equal(GBP(5000)) {
			t.Errorf("CashNeeds[X ISA] = %v, want %v", got, GBP(5000))
		}
		if got, want := r.TargetCash, GBP(7600); !got.Equal(want) {
			t.Errorf("TargetCash = %v, want %v", got, want)
		}
	})

	t.Run("zero target exit covers the ticker reduction", func(t *testing.T) {
		holdings := []Holding{
			holding("P", "SIPP", "XYZ", 20000, 0),
			holding("Q", "ISA", "XYZ", 5000, 10),
		}

		r := Analyze(holdings, CashBalances{}, GBP(100000), 0)

		if len(r.Adjustments) != 1 {
			t.Fatalf("Analyze() got %d adjustments, want 1", len(r.Adjustments))
		}
		adj := r.Adjustments[0]
		if adj.Action != Sell || !adj.Value.Equal(GBP(-15000)) {
			t.Errorf("Adjustment = %v %v, want SELL %v", adj.Action, adj.Value, GBP(-15000))
		}
		if adj.TargetWeight != 10 || !adj.Target.Equal(GBP(10000)) {
			t.Errorf("Adjustment target = %v %v, want 10%% %v", adj.TargetWeight, adj.Target, GBP(10000))
		}

		want := []AccountAction{{Action: Sell, Ticker: "XYZ", Name: "XYZ Fund", Value: GBP(20000)}}
		if diff := cmp.Diff(want, r.Actions["P SIPP"], moneyComparer); diff != "" {
			t.Errorf("Analyze() actions of P mismatch (-want +got):\n%s", diff)
		}
		if got, ok := r.Actions["Q ISA"]; ok {
			t.Errorf("Actions[Q ISA] = %v, want none", got)
		}
		if len(r.CashNeeds) != 0 {
			t.Errorf("CashNeeds = %v, want empty", r.CashNeeds)
		}
	})

	t.Run("empty portfolio", func(t *testing.T) {
		r := Analyze(nil, CashBalances{}, Money{}, 7.6)

		if len(r.Adjustments) != 0 {
			t.Errorf("Adjustments = %v, want empty", r.Adjustments)
		}
		if len(r.Actions) != 0 {
			t.Errorf("Actions = %v, want empty", r.Actions)
		}
		if len(r.CashNeeds) != 0 {
			t.Errorf("CashNeeds = %v, want empty", r.CashNeeds)
		}
	})
}

func TestAnalyze_MaxTarget(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "VWRL", 1000, 0),
		holding("B", "SIPP", "VWRL", 2000, 5),
	}
	r := Analyze(holdings, CashBalances{}, GBP(100000), 0)

	if len(r.Adjustments) != 1 {
		t.Fatalf("Analyze() got %d adjustments, want 1", len(r.Adjustments))
	}
	if got := r.Adjustments[0].TargetWeight; got != 5 {
		t.Errorf("TargetWeight = %v, want 5", got)
	}
	if got := r.Adjustments[0].Accounts; !cmp.Equal(got, []string{"A ISA", "B SIPP"}) {
		t.Errorf("Accounts = %v, want [A ISA B SIPP]", got)
	}

	exit := r.Actions["A ISA"]
	if len(exit) != 1 || exit[0].Action != Sell || !exit[0].Value.Equal(GBP(1000)) {
		t.Errorf("Actions[A ISA] = %v, want a full exit of %v", exit, GBP(1000))
	}
	// the 0% account never receives the buy.
	buys := r.Actions["B SIPP"]
	if len(buys) != 1 || buys[0].Action != Buy || !buys[0].Value.Equal(GBP(2000)) {
		t.Errorf("Actions[B SIPP] = %v, want BUY %v", buys, GBP(2000))
	}
}

func TestAnalyze_ZeroTargetTickerExitsWithoutAdjustment(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "OLD", 3000, 0),
		holding("A", "ISA", "NEW", 97000, 100),
	}
	r := Analyze(holdings, CashBalances{}, GBP(100000), 0)

	for _, adj := range r.Adjustments {
		if adj.Ticker == "OLD" {
			t.Errorf("Analyze() emitted an adjustment for a 0%% ticker: %+v", adj)
		}
	}
	want := []AccountAction{
		{Action: Sell, Ticker: "OLD", Name: "OLD Fund", Value: GBP(3000)},
		{Action: Buy, Ticker: "NEW", Name: "NEW Fund", Value: GBP(3000)},
	}
	if diff := cmp.Diff(want, r.Actions["A ISA"], moneyComparer); diff != "" {
		t.Errorf("Analyze() actions mismatch (-want +got):\n%s", diff)
	}
	if len(r.CashNeeds) != 0 {
		t.Errorf("CashNeeds = %v, want empty", r.CashNeeds)
	}
}

func TestAnalyze_Materiality(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		want    int
	}{
		{name: "exactly at threshold", current: 9900, want: 0},
		{name: "below threshold", current: 9950, want: 0},
		{name: "above target within threshold", current: 10100, want: 0},
		{name: "beyond threshold", current: 9899, want: 1},
		{name: "beyond threshold above", current: 10101, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holdings := []Holding{holding("A", "ISA", "ABC", tt.current, 10)}
			r := Analyze(holdings, CashBalances{}, GBP(100000), 0)
			if got := len(r.Adjustments); got != tt.want {
				t.Errorf("Analyze() got %d adjustments, want %d", got, tt.want)
			}
		})
	}
}

func TestAnalyze_ProportionalSell(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "ABC", 30000, 10),
		holding("B", "SIPP", "ABC", 10000, 10),
	}
	r := Analyze(holdings, CashBalances{"A ISA": GBP(100)}, GBP(100000), 0)

	// 40000 held, 10000 wanted: 30000 sold pro rata of 3/4 and 1/4.
	if got := r.Actions["A ISA"]; len(got) != 1 || !got[0].Value.Equal(GBP(22500)) {
		t.Errorf("Actions[A ISA] = %v, want SELL %v", got, GBP(22500))
	}
	if got := r.Actions["B SIPP"]; len(got) != 1 || !got[0].Value.Equal(GBP(7500)) {
		t.Errorf("Actions[B SIPP] = %v, want SELL %v", got, GBP(7500))
	}
	if got := sumFor(r, "ABC"); !got.Equal(GBP(-30000)) {
		t.Errorf("sum of actions = %v, want %v", got, GBP(-30000))
	}
}

func TestAnalyze_ProportionalBuy(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "ABC", 5000, 15),
		holding("B", "SIPP", "ABC", 5000, 15),
	}
	cash := CashBalances{"A ISA": GBP(3000), "B SIPP": GBP(1000)}
	r := Analyze(holdings, cash, GBP(100000), 0)

	if got := r.Actions["A ISA"]; len(got) != 1 || !got[0].Value.Equal(GBP(3750)) {
		t.Errorf("Actions[A ISA] = %v, want BUY %v", got, GBP(3750))
	}
	if got := r.Actions["B SIPP"]; len(got) != 1 || !got[0].Value.Equal(GBP(1250)) {
		t.Errorf("Actions[B SIPP] = %v, want BUY %v", got, GBP(1250))
	}
	if got := r.CashNeeds["A ISA"]; !got.Equal(GBP(750)) {
		t.Errorf("CashNeeds[A ISA] = %v, want %v", got, GBP(750))
	}
	if got := r.CashNeeds["B SIPP"]; !got.Equal(GBP(250)) {
		t.Errorf("CashNeeds[B SIPP] = %v, want %v", got, GBP(250))
	}
}

func TestAnalyze_BuySkipsOverdrawnAccount(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "ABC", 5000, 15),
		holding("B", "SIPP", "ABC", 5000, 15),
	}
	cash := CashBalances{"A ISA": GBP(-1000), "B SIPP": GBP(3000)}
	r := Analyze(holdings, cash, GBP(100000), 0)

	if got, ok := r.Actions["A ISA"]; ok {
		t.Errorf("Actions[A ISA] = %v, want none", got)
	}
	if got := r.Actions["B SIPP"]; len(got) != 1 || got[0].Action != Buy || !got[0].Value.Equal(GBP(5000)) {
		t.Errorf("Actions[B SIPP] = %v, want BUY %v", got, GBP(5000))
	}
	if got := r.CashNeeds["B SIPP"]; !got.Equal(GBP(2000)) {
		t.Errorf("CashNeeds[B SIPP] = %v, want %v", got, GBP(2000))
	}
}

func TestAnalyze_BuyUsesSellProceeds(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "OUT", 20000, 5),
		holding("A", "ISA", "IN", 5000, 15),
		holding("B", "SIPP", "IN", 5000, 15),
	}
	r := Analyze(holdings, CashBalances{}, GBP(100000), 0)

	// the 15000 sold in A ISA makes it the only account with cash.
	want := []AccountAction{
		{Action: Sell, Ticker: "OUT", Name: "OUT Fund", Value: GBP(15000)},
		{Action: Buy, Ticker: "IN", Name: "IN Fund", Value: GBP(5000)},
	}
	if diff := cmp.Diff(want, r.Actions["A ISA"], moneyComparer); diff != "" {
		t.Errorf("Analyze() actions mismatch (-want +got):\n%s", diff)
	}
	if got, ok := r.Actions["B SIPP"]; ok {
		t.Errorf("Actions[B SIPP] = %v, want none", got)
	}
	if len(r.CashNeeds) != 0 {
		t.Errorf("CashNeeds = %v, want empty", r.CashNeeds)
	}
}

func TestAnalyze_EvenSplitWhenNoCash(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "ABC", 1000, 10),
		holding("B", "SIPP", "ABC", 1000, 10),
		holding("C", "GIA", "ABC", 1000, 10),
	}
	cash := CashBalances{"A ISA": GBP(-500), "B SIPP": GBP(200)}
	r := Analyze(holdings, cash, GBP(100000), 0)

	for _, acc := range []string{"A ISA", "B SIPP", "C GIA"} {
		got := r.Actions[acc]
		if len(got) != 1 || !got[0].Value.Round().Equal(GBP(2333.33)) {
			t.Errorf("Actions[%s] = %v, want BUY about 2333.33", acc, got)
		}
	}
	if got := sumFor(r, "ABC").Round(); !got.Equal(GBP(7000)) {
		t.Errorf("sum of actions = %v, want %v", got, GBP(7000))
	}
}

func TestAnalyze_DegenerateKeptValue(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "ABC", 0, 10),
		holding("B", "SIPP", "ABC", 0, 0),
	}
	// only a negative total can leave a sell to spread over zero value holdings.
	r := Analyze(holdings, CashBalances{}, GBP(-100000), 0)
	if len(r.Adjustments) != 1 || r.Adjustments[0].Action != Sell {
		t.Fatalf("Adjustments = %v, want one SELL", r.Adjustments)
	}
	if len(r.Actions) != 0 {
		t.Errorf("Actions = %v, want empty", r.Actions)
	}
}

func TestAnalyze_Properties(t *testing.T) {
	holdings := []Holding{
		holding("A", "ISA", "VWRL", 42000, 40),
		holding("B", "SIPP", "VWRL", 18000, 40),
		holding("A", "ISA", "IGLT", 4000, 10),
		holding("B", "SIPP", "SGLN", 9000, 5),
		holding("A", "ISA", "EQQQ", 12000, 20),
		holding("B", "SIPP", "EQQQ", 3000, 20),
	}
	cash := CashBalances{"A ISA": GBP(2000), "B SIPP": GBP(10000)}
	total := totalValue(holdings).Add(cash.Total())

	r := Analyze(holdings, cash, total, 7.6)

	t.Run("adjustments sorted by absolute value", func(t *testing.T) {
		for i := 1; i < len(r.Adjustments); i++ {
			if r.Adjustments[i].Value.Abs().GreaterThan(r.Adjustments[i-1].Value.Abs()) {
				t.Errorf("Adjustments[%d] = %v is larger than Adjustments[%d] = %v", i, r.Adjustments[i].Value, i-1, r.Adjustments[i-1].Value)
			}
		}
	})

	t.Run("conservation", func(t *testing.T) {
		for _, adj := range r.Adjustments {
			got := sumFor(r, adj.Ticker)
			if diff := got.Sub(adj.Value).Abs(); diff.GreaterThan(NO(1e-6)) {
				t.Errorf("sum of %s actions = %v, want %v", adj.Ticker, got, adj.Value)
			}
		}
	})

	t.Run("funding needs are positive", func(t *testing.T) {
		for acc, need := range r.CashNeeds {
			if !need.IsPositive() {
				t.Errorf("CashNeeds[%s] = %v, want > 0", acc, need)
			}
		}
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		if !cash["A ISA"].Equal(GBP(2000)) || !cash["B SIPP"].Equal(GBP(10000)) {
			t.Errorf("Analyze() modified the cash balances: %v", cash)
		}
		r.CashBalances["A ISA"] = GBP(0)
		if !cash["A ISA"].Equal(GBP(2000)) {
			t.Errorf("Result.CashBalances aliases the input")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first := Analyze(holdings, cash, total, 7.6)
		second := Analyze(holdings, cash, total, 7.6)
		if diff := cmp.Diff(first, second, moneyComparer); diff != "" {
			t.Errorf("Analyze() is not idempotent (-first +second):\n%s", diff)
		}
	})
}

func TestResult_MarshalJSON(t *testing.T) {
	holdings := []Holding{holding("X", "ISA", "ABC", 10000, 15)}
	r := Analyze(holdings, CashBalances{"X ISA": GBP(0)}, GBP(100000), 7.6)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	for _, key := range []string{"total_value", "cash_balances", "total_cash", "cash_target_percentage", "target_cash_value", "adjustments", "account_actions", "account_cash_needs"} {
		if _, ok := got[key]; !ok {
			t.Errorf("json.Marshal() missing key %q in %s", key, data)
		}
	}
	actions, ok := got["account_actions"].(map[string]any)
	if !ok {
		t.Fatalf("account_actions = %T, want an object", got["account_actions"])
	}
	if _, ok := actions["X ISA"]; !ok {
		t.Errorf("account_actions has no entry for X ISA: %v", actions)
	}
	needs, ok := got["account_cash_needs"].(map[string]any)
	if !ok {
		t.Fatalf("account_cash_needs = %T, want an object", got["account_cash_needs"])
	}
	want := map[string]any{"currency": "GBP", "amount": 5000.0}
	if diff := cmp.Diff(want, needs["X ISA"]); diff != "" {
		t.Errorf("account_cash_needs[X ISA] mismatch (-want +got):\n%s", diff)
	}
}
