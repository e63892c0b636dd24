package pocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tells whether an Entry takes money out of or brings money into the ledger.
type Kind int

const (
	Expense Kind = iota
	Income
)

func (k Kind) String() string {
	switch k {
	case Expense:
		return "expense"
	case Income:
		return "income"
	default:
		return "unknown"
	}
}

// ParseKind parses "expense" or "income".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense":
		return Expense, nil
	case "income":
		return Income, nil
	default:
		return 0, fmt.Errorf("unknown entry kind %q", s)
	}
}

func (k Kind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

func (k *Kind) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	v, err := ParseKind(str)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// State is the synchronization state of a local Entry.
//
// A record is either settled (its id is canonical and the remote store has it),
// waiting to be created remotely, or waiting to be deleted remotely. Being a
// single value, a record cannot be pending creation and deletion at once.
type State int

const (
	Settled State = iota
	PendingCreate
	PendingDelete
)

func (s State) String() string {
	switch s {
	case Settled:
		return "settled"
	case PendingCreate:
		return "pending-create"
	case PendingDelete:
		return "pending-delete"
	default:
		return "unknown"
	}
}

// ParseState parses the String form of a State.
func ParseState(s string) (State, error) {
	switch s {
	case "settled", "":
		return Settled, nil
	case "pending-create":
		return PendingCreate, nil
	case "pending-delete":
		return PendingDelete, nil
	default:
		return 0, fmt.Errorf("unknown entry state %q", s)
	}
}

// Pending reports whether the state carries local intent not yet seen remotely.
func (s State) Pending() bool { return s != Settled }

func (s State) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *State) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	v, err := ParseState(str)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Entry is a single monetary movement.
type Entry struct {
	// ID is canonical once assigned by the remote store, and a temporary
	// locally generated id before that.
	ID string `json:"id"`
	// Ref is the temporary id the entry was created with. It never changes and
	// lets the remote store recognize a creation that is retried.
	Ref       string    `json:"ref,omitempty"`
	OwnerID   string    `json:"owner"`
	Name      string    `json:"name"`
	Amount    Amount    `json:"amount"`
	Kind      Kind      `json:"kind"`
	Category  string    `json:"category,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	State     State     `json:"state"`
}

// Validate checks that the entry carries every field required to be pushed.
// The returned error wraps ErrMalformedRecord.
func (e Entry) Validate() error {
	var errs []error
	if e.OwnerID == "" {
		errs = append(errs, errors.New("missing owner"))
	}
	if strings.TrimSpace(e.Name) == "" {
		errs = append(errs, errors.New("missing name"))
	}
	if e.Amount.IsNegative() {
		errs = append(errs, fmt.Errorf("negative amount %s", e.Amount))
	}
	if e.Kind != Expense && e.Kind != Income {
		errs = append(errs, fmt.Errorf("invalid kind %d", e.Kind))
	}
	if e.Timestamp.IsZero() {
		errs = append(errs, errors.New("missing timestamp"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: entry %q: %w", ErrMalformedRecord, e.ID, errors.Join(errs...))
	}
	return nil
}
