package agent

import (
	"context"
	"fmt"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/etnz/rebalance/store"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// newFacilitator creates the chat facing the user.
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and 100% dedicated to you, they keep context of your previous questions.

			The user manages a family portfolio spread over several accounts (SIPP, ISA, GIA...) and
			wants to keep it close to its target allocation. Devise a plan of questions to ask the
			experts and come up with the best response to the user's request.

			Never invent figures, always ask the Advisor for them.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewAdvisor returns the expert reading the book in s to answer questions
// about the allocation and the trades to rebalance it.
func NewAdvisor(s store.Store) *Expert {
	lib := []Function{rebalanceReport(s), holdings(s)}
	return &Expert{
		Name: "Advisor",
		Description: `This is the Advisor. It reads the user's portfolio: holdings, cash per account and target
		weights, and computes the trades to execute in each account to rebalance it, with the cash each account
		needs. It can also simulate deposits before rebalancing.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
				You are a portfolio rebalancing advisor.
				Use the Tools to read the user's holdings and the rebalancing report.
				Adjustments below £100 are not reported, targets are percentages of the total
				portfolio value, cash included.
				Explain trades account by account, sells first since they fund the buys,
				and mention the accounts that need funding.
			`}}},
		},
		Library: NewLibrary(lib),
	}
}

// rebalanceReport declares the rebalance_report tool.
func rebalanceReport(s store.Store) *Func {
	const name = "rebalance_report"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name: name,
			Description: `rebalance_report analyses the portfolio and lists the adjustments per ticker,
			the sells and buys to execute in each account, and the accounts that need more cash.`,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"deposits": {
						Type:        genai.TypeArray,
						Description: "Optional deposits to simulate before rebalancing.",
						Items: &genai.Schema{
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"account": {Type: genai.TypeString, Description: `Full account name, like "Ed Forrester ISA".`},
								"amount":  {Type: genai.TypeNumber, Description: "Amount deposited, in the portfolio currency."},
							},
							Required: []string{"account", "amount"},
						},
					},
				},
			},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted rebalancing report.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			deposits, err := parseDeposits(args)
			if err != nil {
				return errorResponse(id, name, err)
			}
			b, err := s.Load(ctx)
			if err != nil {
				return errorResponse(id, name, fmt.Errorf("could not load the book: %w", err))
			}
			snapshot := b.Snapshot()
			if len(deposits) > 0 {
				if snapshot, err = snapshot.WithDeposits(deposits); err != nil {
					return errorResponse(id, name, err)
				}
			}
			return outputResponse(id, name, renderer.RebalanceMarkdown(snapshot.Analyze()))
		},
	}
}

// holdings declares the holdings tool.
func holdings(s store.Store) *Func {
	const name = "holdings"
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        name,
			Description: `holdings lists every holding by account with its value, current weight and target weight, and the cash of each account.`,
			Parameters:  &genai.Schema{Type: genai.TypeObject},
			Response: &genai.Schema{
				Type:        genai.TypeString,
				Description: "A markdown-formatted table of the holdings per account.",
			},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			b, err := s.Load(ctx)
			if err != nil {
				return errorResponse(id, name, fmt.Errorf("could not load the book: %w", err))
			}
			return outputResponse(id, name, renderer.HoldingsMarkdown(b.Snapshot()))
		},
	}
}

// parseDeposits reads the optional deposits argument.
func parseDeposits(args map[string]any) (map[string]rebalance.Money, error) {
	raw, ok := args["deposits"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("argument 'deposits' is not a list as expected but %T", raw)
	}
	deposits := make(map[string]rebalance.Money, len(list))
	for i, item := range list {
		d, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("deposit #%d is not an object but %T", i, item)
		}
		account, ok := d["account"].(string)
		if !ok || account == "" {
			return nil, fmt.Errorf("deposit #%d has no account", i)
		}
		amount, ok := d["amount"].(float64)
		if !ok {
			return nil, fmt.Errorf("deposit #%d amount is not a number but %T", i, d["amount"])
		}
		deposits[account] = deposits[account].Add(rebalance.M(amount, ""))
	}
	return deposits, nil
}
