package pocket

import (
	"context"

	"github.com/etnz/pocket/date"
)

// LocalStore is the durable on-device storage of entries, keyed by id and
// indexed by owner. It is the only store read to render the ledger.
//
// Implementations wrap their failures with ErrStorageFailure. Put and Delete
// are idempotent: Delete of an absent id is not an error.
type LocalStore interface {
	ListByOwner(ctx context.Context, owner string) ([]Entry, error)
	ListAll(ctx context.Context) ([]Entry, error)
	// Get returns ErrNotFound when there is no entry with this id.
	Get(ctx context.Context, id string) (Entry, error)
	Put(ctx context.Context, e Entry) error
	Delete(ctx context.Context, id string) error
	ClearByOwner(ctx context.Context, owner string) error
}

// RemoteStore is the authoritative storage of entries, reachable only when
// online.
//
// Connectivity failures wrap ErrUnreachable.
type RemoteStore interface {
	// Create stores e, ignoring its ID, and returns the canonical id. Creating
	// twice an entry with the same non empty Ref returns the first id.
	Create(ctx context.Context, e Entry) (string, error)
	ListByOwner(ctx context.Context, owner string) ([]Entry, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Delete returns ErrNotFound when the id is already absent.
	Delete(ctx context.Context, id string) error
}

// Pinger is implemented by remote stores that can cheaply check connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChargeRegistry is the durable on-device storage of scheduled charges.
type ChargeRegistry interface {
	ListAll(ctx context.Context) ([]ScheduledCharge, error)
	// Get returns ErrNotFound when there is no charge with this id.
	Get(ctx context.Context, id string) (ScheduledCharge, error)
	Put(ctx context.Context, c ScheduledCharge) error
	Delete(ctx context.Context, id string) error
	// UpdateLastMaterialized sets the last occurrence turned into an entry.
	UpdateLastMaterialized(ctx context.Context, id string, on date.Date) error
}
