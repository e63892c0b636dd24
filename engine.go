package pocket

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
)

// ErrPendingChanges is returned by Forget when the owner still has local
// changes that never reached the remote store.
var ErrPendingChanges = errors.New("pending local changes")

// Engine keeps the local ledger in agreement with the remote one, and
// materializes recurring charges.
//
// At most one reconciliation runs at a time: a call made while another is in
// flight returns immediately without doing anything, the caller is expected to
// trigger again later rather than queue.
type Engine struct {
	local     LocalStore
	remote    RemoteStore
	charges   ChargeRegistry
	projector *Projector
	settings

	running atomic.Bool
}

// NewEngine returns an Engine over the three stores.
func NewEngine(local LocalStore, remote RemoteStore, charges ChargeRegistry, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		remote:   remote,
		charges:  charges,
		settings: newSettings(opts),
	}
	e.projector = &Projector{local: local, charges: charges, settings: e.settings}
	return e
}

// acquire marks the engine as busy, it returns false if it already was.
func (e *Engine) acquire(op, owner string) bool {
	if e.running.CompareAndSwap(false, true) {
		return true
	}
	e.logger.Printf("%s for %q dropped: a reconciliation is already running", op, owner)
	return false
}

func (e *Engine) release() { e.running.Store(false) }

// Reconcile brings the local entries of owner into agreement with the remote
// store. It does nothing when offline or when owner is unknown.
//
// Steps run in order: push pending deletions, push pending creations, pull
// the remote snapshot and replace the settled local records with it, and
// finally project the recurring charges of owner. Failures on individual
// records are logged and left pending for the next call. A failed pull skips
// the last two steps and is returned, and so is any local storage failure.
func (e *Engine) Reconcile(ctx context.Context, owner string, online bool) error {
	if !online || owner == "" {
		return nil
	}
	if !e.acquire("reconciliation", owner) {
		return nil
	}
	defer e.release()

	if err := e.pushDeletions(ctx, owner); err != nil {
		return fmt.Errorf("cannot push deletions: %w", err)
	}
	if _, err := e.pushCreations(ctx, owner); err != nil {
		return fmt.Errorf("cannot push creations: %w", err)
	}
	if err := e.pull(ctx, owner); err != nil {
		return fmt.Errorf("cannot pull remote entries: %w", err)
	}

	created, err := e.projector.ProjectAll(ctx, owner, e.now())
	if err != nil {
		return fmt.Errorf("cannot project recurring charges: %w", err)
	}
	if created > 0 {
		// we are online: do not leave the new entries for the next trigger.
		if _, err := e.pushCreations(ctx, owner); err != nil {
			return fmt.Errorf("cannot push projected entries: %w", err)
		}
	}
	return nil
}

// SynchronizeCreatesOnly pushes the pending creations of owner, and nothing
// else. Settled local records are left untouched.
func (e *Engine) SynchronizeCreatesOnly(ctx context.Context, owner string, online bool) error {
	if !online || owner == "" {
		return nil
	}
	if !e.acquire("synchronization", owner) {
		return nil
	}
	defer e.release()

	if _, err := e.pushCreations(ctx, owner); err != nil {
		return fmt.Errorf("cannot push creations: %w", err)
	}
	return nil
}

// Project materializes the due recurring charges of owner into pending
// entries, without contacting the remote store. It lets an offline ledger show
// its charges; Reconcile does it too.
func (e *Engine) Project(ctx context.Context, owner string) (int, error) {
	if owner == "" {
		return 0, nil
	}
	if !e.acquire("projection", owner) {
		return 0, nil
	}
	defer e.release()
	return e.projector.ProjectAll(ctx, owner, e.now())
}

// pushDeletions deletes remotely every entry of owner pending deletion, then
// removes it locally.
func (e *Engine) pushDeletions(ctx context.Context, owner string) error {
	entries, err := e.local.ListByOwner(ctx, owner)
	if err != nil {
		return err
	}
	for _, en := range entries {
		if en.State != PendingDelete {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.deleteRemote(ctx, en.ID); err != nil {
			e.logger.Printf("entry %q not deleted remotely, kept for a later attempt: %v", en.ID, err)
			continue
		}
		if err := e.local.Delete(ctx, en.ID); err != nil {
			return err
		}
	}
	return nil
}

// deleteRemote deletes the entry id from the remote store. An entry already
// absent is a success.
func (e *Engine) deleteRemote(ctx context.Context, id string) error {
	exists, err := e.remote.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := e.remote.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// pushCreations creates remotely every entry of owner pending creation, and
// replaces the temporary local record by a settled one under the canonical id.
func (e *Engine) pushCreations(ctx context.Context, owner string) (int, error) {
	entries, err := e.local.ListByOwner(ctx, owner)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, en := range entries {
		if en.State != PendingCreate {
			continue
		}
		if err := ctx.Err(); err != nil {
			return pushed, err
		}
		if err := en.Validate(); err != nil {
			e.logger.Printf("entry %q not pushed: %v", en.ID, err)
			continue
		}

		tmp := en.ID
		if en.Ref == "" {
			en.Ref = tmp
		}
		submitted := en
		submitted.ID = ""
		id, err := e.remote.Create(ctx, submitted)
		if err != nil {
			e.logger.Printf("entry %q not pushed, kept for a later attempt: %v", tmp, err)
			continue
		}

		en.ID = id
		en.State = Settled
		if err := e.local.Put(ctx, en); err != nil {
			return pushed, err
		}
		if tmp != id {
			if err := e.local.Delete(ctx, tmp); err != nil {
				return pushed, err
			}
		}
		pushed++
	}
	return pushed, nil
}

// pull replaces the settled local entries of owner by the remote snapshot.
// Pending local records are left as they are: a pending deletion hides the
// remote record of the same id, a pending creation is not known remotely yet.
func (e *Engine) pull(ctx context.Context, owner string) error {
	snapshot, err := e.remote.ListByOwner(ctx, owner)
	if err != nil {
		return err
	}
	entries, err := e.local.ListByOwner(ctx, owner)
	if err != nil {
		return err
	}

	pending := make(map[string]bool)
	for _, en := range entries {
		if en.State.Pending() {
			pending[en.ID] = true
		}
	}

	remote := make(map[string]bool, len(snapshot))
	for _, r := range snapshot {
		if r.ID == "" {
			e.logger.Printf("remote entry %q of %q has no id, ignored", r.Name, owner)
			continue
		}
		remote[r.ID] = true
		if pending[r.ID] {
			continue
		}
		r.OwnerID = owner
		r.State = Settled
		if err := e.local.Put(ctx, r); err != nil {
			return err
		}
	}

	for _, en := range entries {
		if !en.State.Pending() && !remote[en.ID] {
			if err := e.local.Delete(ctx, en.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// Record stores a new entry locally, pending creation, and returns it with its
// temporary id. A zero Timestamp is set to now.
func (e *Engine) Record(ctx context.Context, en Entry) (Entry, error) {
	id := e.newID()
	en.ID = id
	en.Ref = id
	en.State = PendingCreate
	if en.Timestamp.IsZero() {
		en.Timestamp = e.now()
	}
	if err := en.Validate(); err != nil {
		return Entry{}, err
	}
	if err := e.local.Put(ctx, en); err != nil {
		return Entry{}, fmt.Errorf("cannot record entry %q: %w", en.Name, err)
	}
	return en, nil
}

// Remove deletes the entry id of owner.
//
// An entry that never reached the remote store is removed locally right away.
// A settled entry is marked pending deletion until the next reconciliation.
func (e *Engine) Remove(ctx context.Context, owner, id string) error {
	en, err := e.local.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("cannot remove entry %q: %w", id, err)
	}
	if en.OwnerID != owner {
		return fmt.Errorf("cannot remove entry %q: %w", id, ErrNotFound)
	}
	switch en.State {
	case PendingCreate:
		err = e.local.Delete(ctx, id)
	case Settled:
		en.State = PendingDelete
		err = e.local.Put(ctx, en)
	}
	if err != nil {
		return fmt.Errorf("cannot remove entry %q: %w", id, err)
	}
	return nil
}

// Entries returns the visible entries of owner from the local store, most
// recent first. Entries pending deletion are hidden.
func (e *Engine) Entries(ctx context.Context, owner string) ([]Entry, error) {
	entries, err := e.local.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	entries = slices.DeleteFunc(entries, func(en Entry) bool { return en.State == PendingDelete })
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return entries, nil
}

// Forget drops the local copy of the ledger of owner, as when signing out.
// It refuses with ErrPendingChanges if some changes were never pushed, unless
// force is set.
func (e *Engine) Forget(ctx context.Context, owner string, force bool) error {
	if !force {
		entries, err := e.local.ListByOwner(ctx, owner)
		if err != nil {
			return err
		}
		n := 0
		for _, en := range entries {
			if en.State.Pending() {
				n++
			}
		}
		if n > 0 {
			return fmt.Errorf("cannot forget %q: %w (%d entries)", owner, ErrPendingChanges, n)
		}
	}
	return e.local.ClearByOwner(ctx, owner)
}
