package date

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Period is a calendar period, and the step of a recurring schedule.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

var periodNames = [...]string{
	Daily:     "daily",
	Weekly:    "weekly",
	Monthly:   "monthly",
	Quarterly: "quarterly",
	Yearly:    "yearly",
}

// short names, as in "-p month".
var periodAliases = map[string]Period{
	"day":     Daily,
	"week":    Weekly,
	"month":   Monthly,
	"quarter": Quarterly,
	"year":    Yearly,
	"annual":  Yearly,
}

func (p Period) String() string {
	if p < 0 || int(p) >= len(periodNames) {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodNames[p]
}

// ParsePeriod parses a period name, long ("monthly") or short ("month").
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range periodNames {
		if s == name {
			return Period(p), nil
		}
	}
	if p, ok := periodAliases[s]; ok {
		return p, nil
	}
	return Daily, fmt.Errorf("unknown period %q", s)
}

// Range returns a Range for the given period containing the date d.
func (p Period) Range(d Date) Range {
	return Range{From: d.StartOf(p), To: d.EndOf(p)}
}

// Step returns the occurrence one period after d in a schedule anchored on
// anchor.
//
// Monthly and quarterly steps keep the anchor's day of month, yearly steps keep
// the anchor's month and day, all clamped to the end of shorter months. Being
// relative to the anchor, a clamped occurrence does not drift: an anchor on
// January 31 yields 02-29, 03-31, 04-30 in 2024.
func (p Period) Step(d, anchor Date) Date {
	switch p {
	case Daily:
		return d.Add(1)
	case Weekly:
		return d.Add(7)
	case Monthly:
		return Clamped(d.y, d.m+1, anchor.d)
	case Quarterly:
		return Clamped(d.y, d.m+3, anchor.d)
	case Yearly:
		return Clamped(d.y+1, anchor.m, anchor.d)
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

func (p Period) MarshalJSON() ([]byte, error) { return json.Marshal(p.String()) }

func (p *Period) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	v, err := ParsePeriod(str)
	if err != nil {
		return err
	}
	*p = v
	return nil
}
