package date

import "fmt"

// Range is an inclusive span of days.
type Range struct{ From, To Date }

// NewRange returns the range of the given period that contains d.
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Contains reports whether day is within the range, boundaries included.
func (r Range) Contains(day Date) bool { return !day.Before(r.From) && !day.After(r.To) }

// Period returns the calendar period spanned exactly by r, if any. A single
// day is Daily.
func (r Range) Period() (p Period, ok bool) {
	for _, p := range []Period{Daily, Weekly, Monthly, Quarterly, Yearly} {
		if p.Range(r.From) == r {
			return p, true
		}
	}
	return Daily, false
}

// Identifier returns a short label for r: "2024-03" for a month, "2024-Q1" for a
// quarter, "2024-W05" for a week, and "from_to" for arbitrary ranges.
func (r Range) Identifier() string {
	p, ok := r.Period()
	if !ok {
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}

	switch p {
	case Weekly:
		year, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	case Yearly:
		return r.From.Format("2006")
	default:
		return r.From.String()
	}
}
