package pocket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/pocket/date"
)

// Occurrences returns the days on which c is due up to today included, and
// that have not been materialized yet.
//
// Without LastMaterialized the first occurrence is the anchor itself, otherwise
// it is one period after LastMaterialized. A LastMaterialized before the anchor
// is ignored.
func Occurrences(c ScheduledCharge, today date.Date) []date.Date {
	if c.Anchor.IsZero() {
		return nil
	}
	cursor := c.Anchor
	if !c.LastMaterialized.IsZero() && !c.LastMaterialized.Before(c.Anchor) {
		cursor = c.Period.Step(c.LastMaterialized, c.Anchor)
	}

	var due []date.Date
	for !cursor.After(today) {
		due = append(due, cursor)
		cursor = c.Period.Step(cursor, c.Anchor)
	}
	return due
}

// Projector turns due occurrences of scheduled charges into pending entries of
// the local store.
type Projector struct {
	local   LocalStore
	charges ChargeRegistry
	settings
}

// NewProjector returns a Projector writing into local and advancing charges.
func NewProjector(local LocalStore, charges ChargeRegistry, opts ...Option) *Projector {
	return &Projector{local: local, charges: charges, settings: newSettings(opts)}
}

// Project materializes the occurrences of c due at now for owner, and returns
// the number of entries created.
//
// An occurrence already matched by an expense of the same name on the same
// calendar day is skipped. LastMaterialized is then set to the last
// occurrence, whether it produced an entry or not.
func (p *Projector) Project(ctx context.Context, owner string, c ScheduledCharge, now time.Time) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	due := Occurrences(c, date.Of(now.In(p.loc)))
	if len(due) == 0 {
		return 0, nil
	}

	existing, err := p.local.ListByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("cannot list entries of %q: %w", owner, err)
	}

	category := c.Category
	if category == "" {
		category = DefaultChargeCategory
	}

	created := 0
	for _, on := range due {
		if p.materialized(existing, c.Name, on) {
			p.logger.Printf("charge %q already has an entry on %s, skipped", c.Name, on)
			continue
		}
		id := p.newID()
		e := Entry{
			ID:        id,
			Ref:       id,
			OwnerID:   owner,
			Name:      c.Name,
			Amount:    c.Amount,
			Kind:      Expense,
			Category:  category,
			Icon:      c.Icon,
			Timestamp: on.In(p.loc),
			State:     PendingCreate,
		}
		if err := p.local.Put(ctx, e); err != nil {
			return created, fmt.Errorf("cannot materialize charge %q on %s: %w", c.Name, on, err)
		}
		existing = append(existing, e)
		created++
	}

	last := due[len(due)-1]
	if err := p.charges.UpdateLastMaterialized(ctx, c.ID, last); err != nil {
		return created, fmt.Errorf("cannot advance charge %q to %s: %w", c.Name, last, err)
	}
	if created > 0 {
		p.logger.Printf("charge %q: %d entries materialized up to %s", c.Name, created, last)
	}
	return created, nil
}

// materialized reports whether entries holds an expense called name on day on.
func (p *Projector) materialized(entries []Entry, name string, on date.Date) bool {
	for _, e := range entries {
		if e.Name == name && e.Kind == Expense && date.Of(e.Timestamp.In(p.loc)) == on {
			return true
		}
	}
	return false
}

// ProjectAll projects every charge of the registry that belongs to owner.
//
// A malformed charge is logged and skipped. A storage failure stops the
// projection and is returned.
func (p *Projector) ProjectAll(ctx context.Context, owner string, now time.Time) (int, error) {
	charges, err := p.charges.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("cannot list scheduled charges: %w", err)
	}
	total := 0
	for _, c := range charges {
		if !c.BelongsTo(owner) {
			continue
		}
		n, err := p.Project(ctx, owner, c, now)
		total += n
		if errors.Is(err, ErrStorageFailure) {
			return total, err
		}
		if err != nil {
			p.logger.Printf("charge %q skipped: %v", c.Name, err)
		}
	}
	return total, nil
}
