// Package rebalance keeps a family portfolio close to its target allocation.
//
// A Book records the holdings of every owner, by account type (SIPP, ISA,
// GIA...), the cash of each full account and the target weight of each
// holding. The core functionalities include:
//   - Book Management: adding, updating and deleting holdings, setting cash
//     balances, owner names, ticker wide values and targets.
//   - Analysis: a stateless engine that turns a Snapshot of the book into
//     adjustments per ticker, sells and buys per account, and the cash each
//     account still needs.
//   - Data Persistence: encoding the book as a JSON document, and importing
//     the holdings of an investment spreadsheet export.
//
// This package serves as the foundational logic for the `rbl` command-line
// tool and its web dashboard.
package rebalance
