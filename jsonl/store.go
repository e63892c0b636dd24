package jsonl

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/etnz/pocket"
	"github.com/etnz/pocket/date"
	"github.com/gofrs/flock"
)

const (
	// EntriesFile is the name of the entries file in a ledger folder.
	EntriesFile = "entries.jsonl"
	// ChargesFile is the name of the scheduled charges file in a ledger folder.
	ChargesFile = "charges.jsonl"
)

// lockRetry is the delay between two attempts to take the lock of a file.
const lockRetry = 10 * time.Millisecond

// table is a jsonl file of records indexed by id, shared with other processes.
type table[T any] struct {
	filename string
	id       func(T) string
	mu       sync.Mutex // serializes the changes of this process
	lock     *flock.Flock
}

func newTable[T any](filename string, id func(T) string) *table[T] {
	return &table[T]{filename: filename, id: id, lock: flock.New(filename + ".lock")}
}

// load reads the records of the file as it is now on disk.
func (t *table[T]) load() (map[string]T, error) {
	list, err := decode[T](t.filename)
	if err != nil {
		return nil, err
	}
	records := make(map[string]T, len(list))
	for i, v := range list {
		id := t.id(v)
		if id == "" {
			return nil, fmt.Errorf("%w: record %d of %q has no id", pocket.ErrStorageFailure, i+1, t.filename)
		}
		records[id] = v
	}
	return records, nil
}

// update applies change to the records on disk and writes them back. The file
// is locked from the read to the write so that concurrent changes from other
// processes are never overwritten.
func (t *table[T]) update(ctx context.Context, change func(map[string]T) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.filename), 0o755); err != nil {
		return fmt.Errorf("%w: cannot create folder for %q: %w", pocket.ErrStorageFailure, t.filename, err)
	}
	locked, err := t.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("%w: cannot lock %q: %w", pocket.ErrStorageFailure, t.filename, err)
	}
	if !locked {
		return fmt.Errorf("%w: cannot lock %q", pocket.ErrStorageFailure, t.filename)
	}
	defer t.lock.Unlock()

	records, err := t.load()
	if err != nil {
		return err
	}
	if err := change(records); err != nil {
		return err
	}
	return encode(t.filename, records)
}

// Store is a pocket.LocalStore backed by a jsonl file.
type Store struct {
	t *table[pocket.Entry]
}

// OpenStore checks the entries of filename. A missing file is an empty store,
// created on the first change.
func OpenStore(filename string) (*Store, error) {
	s := &Store{t: newTable(filename, func(e pocket.Entry) string { return e.ID })}
	if _, err := s.t.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// sorted returns the entries accepted by keep, ordered by timestamp then id.
func (s *Store) sorted(keep func(pocket.Entry) bool) ([]pocket.Entry, error) {
	entries, err := s.t.load()
	if err != nil {
		return nil, err
	}
	var list []pocket.Entry
	for _, e := range entries {
		if keep(e) {
			list = append(list, e)
		}
	}
	slices.SortFunc(list, func(a, b pocket.Entry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return list, nil
}

func (s *Store) ListByOwner(_ context.Context, owner string) ([]pocket.Entry, error) {
	return s.sorted(func(e pocket.Entry) bool { return e.OwnerID == owner })
}

func (s *Store) ListAll(_ context.Context) ([]pocket.Entry, error) {
	return s.sorted(func(pocket.Entry) bool { return true })
}

func (s *Store) Get(_ context.Context, id string) (pocket.Entry, error) {
	entries, err := s.t.load()
	if err != nil {
		return pocket.Entry{}, err
	}
	e, ok := entries[id]
	if !ok {
		return pocket.Entry{}, fmt.Errorf("entry %q: %w", id, pocket.ErrNotFound)
	}
	return e, nil
}

func (s *Store) Put(ctx context.Context, e pocket.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("cannot store entry %q: %w: missing id", e.Name, pocket.ErrMalformedRecord)
	}
	return s.t.update(ctx, func(entries map[string]pocket.Entry) error {
		entries[e.ID] = e
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.t.update(ctx, func(entries map[string]pocket.Entry) error {
		delete(entries, id)
		return nil
	})
}

func (s *Store) ClearByOwner(ctx context.Context, owner string) error {
	return s.t.update(ctx, func(entries map[string]pocket.Entry) error {
		maps.DeleteFunc(entries, func(_ string, e pocket.Entry) bool { return e.OwnerID == owner })
		return nil
	})
}

// Registry is a pocket.ChargeRegistry backed by a jsonl file.
type Registry struct {
	t *table[pocket.ScheduledCharge]
}

// OpenRegistry checks the scheduled charges of filename. A missing file is an
// empty registry.
func OpenRegistry(filename string) (*Registry, error) {
	r := &Registry{t: newTable(filename, func(c pocket.ScheduledCharge) string { return c.ID })}
	if _, err := r.t.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) ListAll(_ context.Context) ([]pocket.ScheduledCharge, error) {
	charges, err := r.t.load()
	if err != nil {
		return nil, err
	}
	list := slices.Collect(maps.Values(charges))
	slices.SortFunc(list, func(a, b pocket.ScheduledCharge) int { return cmp.Compare(a.ID, b.ID) })
	return list, nil
}

func (r *Registry) Get(_ context.Context, id string) (pocket.ScheduledCharge, error) {
	charges, err := r.t.load()
	if err != nil {
		return pocket.ScheduledCharge{}, err
	}
	c, ok := charges[id]
	if !ok {
		return pocket.ScheduledCharge{}, fmt.Errorf("charge %q: %w", id, pocket.ErrNotFound)
	}
	return c, nil
}

func (r *Registry) Put(ctx context.Context, c pocket.ScheduledCharge) error {
	if c.ID == "" {
		return fmt.Errorf("cannot store charge %q: %w: missing id", c.Name, pocket.ErrMalformedRecord)
	}
	return r.t.update(ctx, func(charges map[string]pocket.ScheduledCharge) error {
		charges[c.ID] = c
		return nil
	})
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	return r.t.update(ctx, func(charges map[string]pocket.ScheduledCharge) error {
		delete(charges, id)
		return nil
	})
}

func (r *Registry) UpdateLastMaterialized(ctx context.Context, id string, on date.Date) error {
	return r.t.update(ctx, func(charges map[string]pocket.ScheduledCharge) error {
		c, ok := charges[id]
		if !ok {
			return fmt.Errorf("charge %q: %w", id, pocket.ErrNotFound)
		}
		c.LastMaterialized = on
		charges[id] = c
		return nil
	})
}

// Open opens the entries and charges files of a ledger folder.
func Open(folder string) (*Store, *Registry, error) {
	s, err := OpenStore(filepath.Join(folder, EntriesFile))
	if err != nil {
		return nil, nil, err
	}
	r, err := OpenRegistry(filepath.Join(folder, ChargesFile))
	if err != nil {
		return nil, nil, err
	}
	return s, r, nil
}
