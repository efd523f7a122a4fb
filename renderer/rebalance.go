package renderer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/etnz/rebalance"
	md "github.com/nao1215/markdown"
)

// RebalanceMarkdown renders the rebalancing analysis: totals, cash by
// account, recommendations, actions by account and funding requirements.
func RebalanceMarkdown(r *rebalance.Result) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolio Rebalancing Analysis")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Total Portfolio Value"), md.Bold(r.TotalValue.String())},
		Rows: [][]string{
			{"Total Cash Available", r.TotalCash.String()},
			{fmt.Sprintf("Cash Target (%v)", r.CashTarget), r.TargetCash.String()},
		},
	})

	doc.H2("Cash Balances by Account")
	if len(r.CashBalances) == 0 {
		doc.PlainText("No cash recorded.")
	} else {
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Account", "Balance"},
		}
		for _, acc := range r.CashBalances.Accounts() {
			table.Rows = append(table.Rows, []string{acc, r.CashBalances[acc].String()})
		}
		doc.Table(table)
	}

	doc.H2("Rebalancing Recommendations")
	if len(r.Adjustments) == 0 {
		doc.PlainText("Portfolio is well balanced! No significant adjustments needed.")
	} else {
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft, md.AlignLeft, md.AlignLeft,
				md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight,
				md.AlignLeft,
			},
			Header: []string{"Action", "Ticker", "Name", "Current", "Target", "Adjust", "Drift", "Held in"},
		}
		for _, adj := range r.Adjustments {
			table.Rows = append(table.Rows, []string{
				md.Bold(string(adj.Action)),
				adj.Ticker,
				adj.Name,
				fmt.Sprintf("%v (%v)", adj.Current, adj.CurrentWeight),
				fmt.Sprintf("%v (%v)", adj.Target, adj.TargetWeight),
				adj.Value.SignedString(),
				adj.Drift.SignedString(),
				strings.Join(adj.Accounts, ", "),
			})
		}
		doc.Table(table)
	}

	doc.H2("Actions by Account")
	if len(r.Actions) == 0 {
		doc.PlainText("No trade to execute.")
	}
	cur := r.TotalValue.Currency()
	for _, acc := range r.Accounts() {
		actions := r.Actions[acc]
		cash := r.CashBalances[acc].In(cur)
		doc.H3(acc)
		doc.PlainText(fmt.Sprintf("Current Cash: %v", cash))

		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignLeft, md.AlignRight},
			Header:    []string{"Action", "Ticker", "Name", "Value"},
		}
		net := cash
		// sells first, they fund the buys.
		for _, kind := range []rebalance.Action{rebalance.Sell, rebalance.Buy} {
			for _, a := range actions {
				if a.Action != kind {
					continue
				}
				table.Rows = append(table.Rows, []string{string(a.Action), a.Ticker, a.Name, a.Value.String()})
				net = net.Sub(a.Signed())
			}
		}
		doc.Table(table)
		doc.PlainText("")
		doc.PlainText(fmt.Sprintf("%s %v", md.Bold("Net cash after trades:"), net))
	}

	doc.H2("Account Funding Requirements")
	if len(r.CashNeeds) == 0 {
		doc.PlainText("All accounts have sufficient cash for rebalancing!")
	} else {
		doc.PlainText("The following accounts need additional funding:")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Account", "Needs"},
		}
		for _, acc := range rebalance.CashBalances(r.CashNeeds).Accounts() {
			table.Rows = append(table.Rows, []string{acc, r.CashNeeds[acc].String()})
		}
		doc.Table(table)
	}

	return doc.String()
}
