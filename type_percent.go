package rebalance

import "fmt"

// Percent is a percentage of the total portfolio value, 12.5 means 12.5%.
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

// Of returns p% of m.
func (p Percent) Of(m Money) Money {
	return m.Mul(Q(float64(p))).Div(Q(100))
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" {
		return "-"
	}
	return res
}

// PercentOf returns part as a percentage of total, or 0 when total is not positive.
func PercentOf(part, total Money) Percent {
	if !total.IsPositive() {
		return 0
	}
	return Percent(part.DivPrice(total).Mul(Q(100)).AsFloat())
}
