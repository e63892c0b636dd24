package localdb

import (
	"fmt"
	"time"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	"github.com/shopspring/decimal"
)

// entry is the row of a pocket.Entry. Amounts are stored as decimal text.
type entry struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Ref       string    `gorm:"size:64;index"`
	OwnerID   string    `gorm:"size:64;index;not null"`
	Name      string    `gorm:"size:255;not null"`
	Amount    string    `gorm:"size:32;not null"`
	Kind      string    `gorm:"size:16;not null"`
	Category  string    `gorm:"size:64"`
	Icon      string    `gorm:"size:64"`
	Timestamp time.Time `gorm:"index;not null"`
	State     string    `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "entries" }

func toEntry(e pocket.Entry) entry {
	return entry{
		ID:        e.ID,
		Ref:       e.Ref,
		OwnerID:   e.OwnerID,
		Name:      e.Name,
		Amount:    e.Amount.String(),
		Kind:      e.Kind.String(),
		Category:  e.Category,
		Icon:      e.Icon,
		Timestamp: e.Timestamp,
		State:     e.State.String(),
	}
}

func (m entry) decode() (pocket.Entry, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return pocket.Entry{}, fmt.Errorf("entry %q: invalid amount %q: %w", m.ID, m.Amount, err)
	}
	kind, err := pocket.ParseKind(m.Kind)
	if err != nil {
		return pocket.Entry{}, fmt.Errorf("entry %q: %w", m.ID, err)
	}
	state, err := pocket.ParseState(m.State)
	if err != nil {
		return pocket.Entry{}, fmt.Errorf("entry %q: %w", m.ID, err)
	}
	return pocket.Entry{
		ID:        m.ID,
		Ref:       m.Ref,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		Amount:    pocket.A(amount),
		Kind:      kind,
		Category:  m.Category,
		Icon:      m.Icon,
		Timestamp: m.Timestamp,
		State:     state,
	}, nil
}

// charge is the row of a pocket.ScheduledCharge. Dates are stored as
// YYYY-MM-DD text, empty when zero.
type charge struct {
	ID               string `gorm:"primaryKey;size:64"`
	OwnerID          string `gorm:"size:64;index"`
	Name             string `gorm:"size:255;not null"`
	Amount           string `gorm:"size:32;not null"`
	Category         string `gorm:"size:64"`
	Icon             string `gorm:"size:64"`
	Period           string `gorm:"size:16;not null"`
	Anchor           string `gorm:"size:10;not null"`
	LastMaterialized string `gorm:"size:10"`
	UpdatedAt        time.Time
}

func (charge) TableName() string { return "charges" }

func formatDate(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func parseDate(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

func toCharge(c pocket.ScheduledCharge) charge {
	return charge{
		ID:               c.ID,
		OwnerID:          c.OwnerID,
		Name:             c.Name,
		Amount:           c.Amount.String(),
		Category:         c.Category,
		Icon:             c.Icon,
		Period:           c.Period.String(),
		Anchor:           formatDate(c.Anchor),
		LastMaterialized: formatDate(c.LastMaterialized),
	}
}

func (m charge) decode() (pocket.ScheduledCharge, error) {
	amount, err := decimal.NewFromString(m.Amount)
	if err != nil {
		return pocket.ScheduledCharge{}, fmt.Errorf("charge %q: invalid amount %q: %w", m.ID, m.Amount, err)
	}
	period, err := date.ParsePeriod(m.Period)
	if err != nil {
		return pocket.ScheduledCharge{}, fmt.Errorf("charge %q: %w", m.ID, err)
	}
	anchor, err := parseDate(m.Anchor)
	if err != nil {
		return pocket.ScheduledCharge{}, fmt.Errorf("charge %q: invalid anchor: %w", m.ID, err)
	}
	last, err := parseDate(m.LastMaterialized)
	if err != nil {
		return pocket.ScheduledCharge{}, fmt.Errorf("charge %q: invalid last materialized day: %w", m.ID, err)
	}
	return pocket.ScheduledCharge{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		Name:             m.Name,
		Amount:           pocket.A(amount),
		Category:         m.Category,
		Icon:             m.Icon,
		Period:           period,
		Anchor:           anchor,
		LastMaterialized: last,
	}, nil
}
