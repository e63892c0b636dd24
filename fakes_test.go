package pocket

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/etnz/pocket/date"
)

// memLocal is an in-memory LocalStore.
type memLocal struct {
	mu      sync.Mutex
	entries map[string]Entry
	fail    error // returned by every call when set
}

func newMemLocal(entries ...Entry) *memLocal {
	m := &memLocal{entries: make(map[string]Entry)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func sortByID(entries []Entry) []Entry {
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
	return entries
}

func (m *memLocal) ListByOwner(_ context.Context, owner string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var list []Entry
	for _, e := range m.entries {
		if e.OwnerID == owner {
			list = append(list, e)
		}
	}
	return sortByID(list), nil
}

func (m *memLocal) ListAll(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	var list []Entry
	for _, e := range m.entries {
		list = append(list, e)
	}
	return sortByID(list), nil
}

func (m *memLocal) Get(_ context.Context, id string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return Entry{}, m.fail
	}
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *memLocal) Put(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.entries[e.ID] = e
	return nil
}

func (m *memLocal) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	delete(m.entries, id)
	return nil
}

func (m *memLocal) ClearByOwner(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for id, e := range m.entries {
		if e.OwnerID == owner {
			delete(m.entries, id)
		}
	}
	return nil
}

// memRemote is an in-memory RemoteStore with failure injection.
type memRemote struct {
	mu      sync.Mutex
	entries map[string]Entry
	seq     int

	offline    bool            // every call fails with ErrUnreachable
	failCreate map[string]bool // Create fails for these names
	failList   bool

	creates, deletes int

	// when block is set, ListByOwner signals listing then waits on block.
	listing chan struct{}
	block   chan struct{}
}

func newMemRemote(entries ...Entry) *memRemote {
	m := &memRemote{entries: make(map[string]Entry), failCreate: make(map[string]bool)}
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return m
}

func (m *memRemote) Create(_ context.Context, e Entry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline || m.failCreate[e.Name] {
		return "", fmt.Errorf("create %q: %w", e.Name, ErrUnreachable)
	}
	if e.ID != "" {
		return "", fmt.Errorf("create with an id %q", e.ID)
	}
	for id, x := range m.entries {
		if e.Ref != "" && x.Ref == e.Ref {
			return id, nil
		}
	}
	m.seq++
	m.creates++
	e.ID = fmt.Sprintf("r%03d", m.seq)
	e.State = Settled
	m.entries[e.ID] = e
	return e.ID, nil
}

func (m *memRemote) ListByOwner(_ context.Context, owner string) ([]Entry, error) {
	if m.block != nil {
		m.listing <- struct{}{}
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline || m.failList {
		return nil, fmt.Errorf("list: %w", ErrUnreachable)
	}
	var list []Entry
	for _, e := range m.entries {
		if e.OwnerID == owner {
			list = append(list, e)
		}
	}
	return sortByID(list), nil
}

func (m *memRemote) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return false, fmt.Errorf("exists: %w", ErrUnreachable)
	}
	_, ok := m.entries[id]
	return ok, nil
}

func (m *memRemote) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return fmt.Errorf("delete: %w", ErrUnreachable)
	}
	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	m.deletes++
	delete(m.entries, id)
	return nil
}

func (m *memRemote) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return ErrUnreachable
	}
	return nil
}

func (m *memRemote) setOffline(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = v
}

// memRegistry is an in-memory ChargeRegistry.
type memRegistry struct {
	mu      sync.Mutex
	charges map[string]ScheduledCharge
}

func newMemRegistry(charges ...ScheduledCharge) *memRegistry {
	m := &memRegistry{charges: make(map[string]ScheduledCharge)}
	for _, c := range charges {
		m.charges[c.ID] = c
	}
	return m
}

func (m *memRegistry) ListAll(_ context.Context) ([]ScheduledCharge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []ScheduledCharge
	for _, c := range m.charges {
		list = append(list, c)
	}
	slices.SortFunc(list, func(a, b ScheduledCharge) int { return cmp.Compare(a.ID, b.ID) })
	return list, nil
}

func (m *memRegistry) Get(_ context.Context, id string) (ScheduledCharge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[id]
	if !ok {
		return ScheduledCharge{}, ErrNotFound
	}
	return c, nil
}

func (m *memRegistry) Put(_ context.Context, c ScheduledCharge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges[c.ID] = c
	return nil
}

func (m *memRegistry) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.charges, id)
	return nil
}

func (m *memRegistry) UpdateLastMaterialized(_ context.Context, id string, on date.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.charges[id]
	if !ok {
		return ErrNotFound
	}
	c.LastMaterialized = on
	m.charges[id] = c
	return nil
}

// sequence returns an id generator "t001", "t002", ...
func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%03d", n)
	}
}

// at returns a clock stopped at the given day and time, in UTC.
func at(day string, hour int) func() time.Time {
	t := date.MustParse(day).In(time.UTC).Add(time.Duration(hour) * time.Hour)
	return func() time.Time { return t }
}

// quiet is a logger that discards everything.
var quiet = log.New(io.Discard, "", 0)

// testOptions are the options common to most tests.
func testOptions(now func() time.Time) []Option {
	return []Option{WithLogger(quiet), WithLocation(time.UTC), WithClock(now), WithIDGenerator(sequence())}
}

// entry is a helper to create a test entry.
func entry(id, owner, name string, amount float64, kind Kind, day string, state State) Entry {
	return Entry{
		ID:        id,
		Ref:       id,
		OwnerID:   owner,
		Name:      name,
		Amount:    A(amount),
		Kind:      kind,
		Timestamp: date.MustParse(day).In(time.UTC).Add(12 * time.Hour),
		State:     state,
	}
}
