// Package budget compares total approved expenses against the prepaid amount
// and decides which settlement branch a report takes after accounting approval.
package budget

import "github.com/shopspring/decimal"

// Outcome is the three-way budget comparison result.
type Outcome string

const (
	Equal Outcome = "EQUAL"
	Over  Outcome = "OVER"
	Under Outcome = "UNDER"
)

// Evaluate compares totalExpenses to prepaidAmount, both rounded to 2 decimal
// places first so currency representations never produce false mismatches.
//
// Equal only applies to prepayment-linked reports. A standalone reimbursement
// carries prepaidAmount 0; an exact match there is not a settled state, so it
// falls through to Under and the report still goes through treasury.
func Evaluate(totalExpenses, prepaidAmount decimal.Decimal, prepaymentLinked bool) Outcome {
	total := totalExpenses.Round(2)
	prepaid := prepaidAmount.Round(2)

	switch total.Cmp(prepaid) {
	case 1:
		return Over
	case 0:
		if prepaymentLinked {
			return Equal
		}
		return Under
	default:
		return Under
	}
}
