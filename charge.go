package pocket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/pocket/date"
)

// DefaultChargeCategory is the category of entries materialized from a charge
// that has none.
const DefaultChargeCategory = "Fixed charges"

// ScheduledCharge is the template of a recurring obligation.
type ScheduledCharge struct {
	ID string `json:"id"`
	// OwnerID restricts the charge to one owner. Empty means the charge
	// belongs to whoever is signed in on this device.
	OwnerID  string      `json:"owner,omitempty"`
	Name     string      `json:"name"`
	Amount   Amount      `json:"amount"`
	Category string      `json:"category,omitempty"`
	Icon     string      `json:"icon,omitempty"`
	Period   date.Period `json:"period"`
	// Anchor is the first occurrence.
	Anchor date.Date `json:"anchor"`
	// LastMaterialized is the most recent occurrence turned into an Entry, zero
	// if none. Only the Projector advances it.
	LastMaterialized date.Date `json:"lastMaterialized"`
}

// BelongsTo reports whether the charge applies to owner.
func (c ScheduledCharge) BelongsTo(owner string) bool {
	return c.OwnerID == "" || c.OwnerID == owner
}

// Validate checks the charge definition.
func (c ScheduledCharge) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("missing name"))
	}
	if c.Amount.IsNegative() {
		errs = append(errs, fmt.Errorf("negative amount %s", c.Amount))
	}
	if c.Period != date.Monthly && c.Period != date.Yearly {
		errs = append(errs, fmt.Errorf("unsupported period %d, want monthly or yearly", c.Period))
	}
	if c.Anchor.IsZero() {
		errs = append(errs, errors.New("missing anchor date"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: charge %q: %w", ErrMalformedRecord, c.ID, errors.Join(errs...))
	}
	return nil
}
