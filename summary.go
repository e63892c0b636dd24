package pocket

import (
	"context"
	"slices"

	"github.com/etnz/pocket/date"
)

// Summary totals the visible entries of an owner over a range of days.
type Summary struct {
	Owner    string
	Range    date.Range
	Expenses Amount
	Incomes  Amount
	// Pending counts the entries not yet acknowledged by the remote store.
	Pending int
	// Entries in the range, most recent first.
	Entries []Entry
}

// Balance returns incomes minus expenses. It may be negative.
func (s Summary) Balance() Amount { return s.Incomes.Sub(s.Expenses) }

// Summary computes the totals of owner over r, from the local store only.
func (e *Engine) Summary(ctx context.Context, owner string, r date.Range) (Summary, error) {
	entries, err := e.Entries(ctx, owner)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Owner: owner, Range: r}
	s.Entries = slices.DeleteFunc(entries, func(en Entry) bool {
		return !r.Contains(date.Of(en.Timestamp.In(e.loc)))
	})
	for _, en := range s.Entries {
		switch en.Kind {
		case Expense:
			s.Expenses = s.Expenses.Add(en.Amount)
		case Income:
			s.Incomes = s.Incomes.Add(en.Amount)
		}
		if en.State.Pending() {
			s.Pending++
		}
	}
	return s, nil
}
