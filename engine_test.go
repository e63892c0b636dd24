package pocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/etnz/pocket/date"
	"github.com/google/go-cmp/cmp"
)

// states returns the state of every local entry by id.
func states(m *memLocal) map[string]string {
	out := make(map[string]string)
	for id, e := range m.entries {
		out[id] = e.State.String()
	}
	return out
}

func TestReconcile_PreconditionsAreNoops(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-01", PendingCreate))
	remote := newMemRemote()
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", false); err != nil {
		t.Errorf("Reconcile(offline) unexpected error: %v", err)
	}
	if err := e.Reconcile(ctx, "", true); err != nil {
		t.Errorf("Reconcile(no owner) unexpected error: %v", err)
	}
	if remote.creates != 0 {
		t.Errorf("remote creates = %d, want 0", remote.creates)
	}
	if got := local.entries["t1"].State; got != PendingCreate {
		t.Errorf("state = %v, want %v", got, PendingCreate)
	}
}

func TestReconcile_PushesCreations(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-01", PendingCreate))
	remote := newMemRemote()
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"r001": "settled"}, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
	got := remote.entries["r001"]
	if got.Name != "Coffee" || got.Ref != "t1" || got.OwnerID != "u1" {
		t.Errorf("remote entry = %+v, want Coffee of u1 with ref t1", got)
	}
}

func TestReconcile_PushesDeletions(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", PendingDelete),
		entry("r2", "u1", "Gone", 5, Expense, "2024-04-02", PendingDelete), // already absent remotely
		entry("r3", "u1", "Salary", 2000, Income, "2024-04-01", Settled),
	)
	remote := newMemRemote(
		entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", Settled),
		entry("r3", "u1", "Salary", 2000, Income, "2024-04-01", Settled),
	)
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"r3": "settled"}, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
	if _, ok := remote.entries["r1"]; ok {
		t.Errorf("r1 still exists remotely")
	}
	if remote.deletes != 1 {
		t.Errorf("remote deletes = %d, want 1", remote.deletes)
	}
}

func TestReconcile_UnreachableKeepsEverythingPending(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", PendingDelete),
		entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate),
	)
	remote := newMemRemote(entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", Settled))
	remote.offline = true
	charges := newMemRegistry(rent())
	e := NewEngine(local, remote, charges, testOptions(at("2024-04-20", 0))...)

	err := e.Reconcile(ctx, "u1", true)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Reconcile() = %v, want ErrUnreachable", err)
	}
	want := map[string]string{"r1": "pending-delete", "t1": "pending-create"}
	if diff := cmp.Diff(want, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
	// a failed pull skips the projection.
	if c, _ := charges.Get(ctx, "rent"); !c.LastMaterialized.IsZero() {
		t.Errorf("charge projected despite a failed pull: %v", c.LastMaterialized)
	}
}

// TestReconcile_FailedPullKeepsPushes checks that a failed pull skips the
// projection but keeps what the pushes already did.
func TestReconcile_FailedPullKeepsPushes(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", PendingDelete),
		entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate),
	)
	remote := newMemRemote(entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", Settled))
	remote.failList = true
	charges := newMemRegistry(rent())
	e := NewEngine(local, remote, charges, testOptions(at("2024-04-20", 0))...)

	err := e.Reconcile(ctx, "u1", true)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Reconcile() = %v, want ErrUnreachable", err)
	}
	if diff := cmp.Diff(map[string]string{"r001": "settled"}, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
	if _, ok := remote.entries["r1"]; ok {
		t.Error("r1 still exists remotely")
	}
	if got := remote.entries["r001"]; got.Ref != "t1" {
		t.Errorf("remote r001 = %+v, want the pushed Coffee", got)
	}
	if c, _ := charges.Get(ctx, "rent"); !c.LastMaterialized.IsZero() {
		t.Errorf("charge projected despite a failed pull: %v", c.LastMaterialized)
	}
}

// TestReconcile_PullPreservesPending checks that an entry whose push failed
// survives the replacement of the local state by the remote snapshot.
func TestReconcile_PullPreservesPending(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate),
		entry("stale", "u1", "Removed elsewhere", 9, Expense, "2024-03-02", Settled),
		entry("other", "u2", "Not mine", 1, Expense, "2024-03-02", Settled),
	)
	remote := newMemRemote(
		entry("r7", "u1", "Salary", 2000, Income, "2024-04-01", Settled),
		entry("r8", "u2", "Their salary", 1000, Income, "2024-04-01", Settled),
	)
	remote.failCreate["Coffee"] = true
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	want := map[string]string{
		"t1":    "pending-create",
		"r7":    "settled",
		"other": "settled", // another owner is left alone
	}
	if diff := cmp.Diff(want, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_PendingDeleteHidesRemoteRecord(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", PendingDelete))
	remote := newMemRemote(entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", Settled))
	e := NewEngine(local, &deleteFails{remote}, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	if got := local.entries["r1"].State; got != PendingDelete {
		t.Errorf("state = %v, want %v", got, PendingDelete)
	}
}

// deleteFails is a remote store where deletions are unreachable.
type deleteFails struct{ *memRemote }

func (d *deleteFails) Delete(_ context.Context, id string) error {
	return fmt.Errorf("delete %q: %w", id, ErrUnreachable)
}

func TestReconcile_MalformedRecordIsSkipped(t *testing.T) {
	ctx := context.Background()
	broken := entry("t1", "u1", "", 2.5, Expense, "2024-04-02", PendingCreate)
	local := newMemLocal(broken, entry("t2", "u1", "Tea", 1.5, Expense, "2024-04-02", PendingCreate))
	remote := newMemRemote()
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	want := map[string]string{"t1": "pending-create", "r001": "settled"}
	if diff := cmp.Diff(want, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
}

// TestReconcile_RetriedCreationIsNotDuplicated simulates a process killed
// after the remote creation and before the local bookkeeping.
func TestReconcile_RetriedCreationIsNotDuplicated(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate))
	already := entry("r9", "u1", "Coffee", 2.5, Expense, "2024-04-02", Settled)
	already.Ref = "t1"
	remote := newMemRemote(already)
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	if remote.creates != 0 || len(remote.entries) != 1 {
		t.Errorf("remote has %d entries after %d creates, want 1 after 0", len(remote.entries), remote.creates)
	}
	if diff := cmp.Diff(map[string]string{"r9": "settled"}, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcile_StorageFailure(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	local.fail = fmt.Errorf("%w: disk full", ErrStorageFailure)
	e := NewEngine(local, newMemRemote(), newMemRegistry(), testOptions(at("2024-04-20", 0))...)

	if err := e.Reconcile(ctx, "u1", true); !errors.Is(err, ErrStorageFailure) {
		t.Errorf("Reconcile() = %v, want ErrStorageFailure", err)
	}
}

func TestReconcile_ProjectsAndPushesCharges(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	remote := newMemRemote()
	charges := newMemRegistry(rent())
	e := NewEngine(local, remote, charges, testOptions(at("2024-04-20", 9))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	if remote.creates != 4 {
		t.Errorf("remote creates = %d, want 4", remote.creates)
	}
	entries, _ := e.Entries(ctx, "u1")
	want := []string{"2024-04-15", "2024-03-15", "2024-02-15", "2024-01-15"}
	if diff := cmp.Diff(want, entryDays(entries)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	for _, en := range entries {
		if en.State != Settled {
			t.Errorf("entry %q state = %v, want settled", en.ID, en.State)
		}
	}
	if c, _ := charges.Get(ctx, "rent"); c.LastMaterialized != date.MustParse("2024-04-15") {
		t.Errorf("LastMaterialized = %v, want 2024-04-15", c.LastMaterialized)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate),
		entry("t2", "u1", "Cake", 4, Expense, "2024-04-03", PendingCreate),
	)
	remote := newMemRemote(entry("r100", "u1", "Salary", 2000, Income, "2024-04-01", Settled))
	remote.failCreate["Cake"] = true
	charges := newMemRegistry(rent())
	e := NewEngine(local, remote, charges, testOptions(at("2024-04-20", 9))...)

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("first Reconcile() unexpected error: %v", err)
	}
	first, creates := states(local), remote.creates

	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("second Reconcile() unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, states(local)); diff != "" {
		t.Errorf("second Reconcile() changed local states (-first +second):\n%s", diff)
	}
	if remote.creates != creates {
		t.Errorf("second Reconcile() created %d remote entries", remote.creates-creates)
	}
}

// TestRemove_PendingCreateNeverReachesRemote checks that an entry recorded
// then deleted while offline is never pushed.
func TestRemove_PendingCreateNeverReachesRemote(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	remote := newMemRemote()
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 9))...)

	en, err := e.Record(ctx, Entry{OwnerID: "u1", Name: "Coffee", Amount: A(2.5), Kind: Expense})
	if err != nil {
		t.Fatalf("Record() unexpected error: %v", err)
	}
	if en.State != PendingCreate || en.ID != "t001" || en.Ref != "t001" {
		t.Errorf("Record() = %+v, want pending t001", en)
	}
	if err := e.Remove(ctx, "u1", en.ID); err != nil {
		t.Fatalf("Remove() unexpected error: %v", err)
	}
	if len(local.entries) != 0 {
		t.Errorf("local store has %d entries, want 0", len(local.entries))
	}
	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("Reconcile() unexpected error: %v", err)
	}
	if remote.creates != 0 {
		t.Errorf("remote creates = %d, want 0", remote.creates)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", Settled),
		entry("r2", "u1", "Dinner", 30, Expense, "2024-04-01", PendingDelete),
		entry("r3", "u2", "Theirs", 3, Expense, "2024-04-01", Settled),
	)
	e := NewEngine(local, newMemRemote(), newMemRegistry(), testOptions(at("2024-04-20", 9))...)

	for _, id := range []string{"r1", "r2"} {
		if err := e.Remove(ctx, "u1", id); err != nil {
			t.Errorf("Remove(%q) unexpected error: %v", id, err)
		}
	}
	for _, id := range []string{"r3", "nope"} {
		if err := e.Remove(ctx, "u1", id); !errors.Is(err, ErrNotFound) {
			t.Errorf("Remove(%q) = %v, want ErrNotFound", id, err)
		}
	}
	want := map[string]string{"r1": "pending-delete", "r2": "pending-delete", "r3": "settled"}
	if diff := cmp.Diff(want, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
}

func TestRecord_Validates(t *testing.T) {
	e := NewEngine(newMemLocal(), newMemRemote(), newMemRegistry(), testOptions(at("2024-04-20", 9))...)
	_, err := e.Record(context.Background(), Entry{Name: "Coffee", Amount: A(2.5)})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("Record() = %v, want ErrMalformedRecord", err)
	}
}

func TestSynchronizeCreatesOnly(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("t1", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate),
		entry("stale", "u1", "Removed elsewhere", 9, Expense, "2024-03-02", Settled),
		entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", PendingDelete),
	)
	remote := newMemRemote(entry("r1", "u1", "Lunch", 12, Expense, "2024-04-01", Settled))
	e := NewEngine(local, remote, newMemRegistry(rent()), testOptions(at("2024-04-20", 9))...)

	if err := e.SynchronizeCreatesOnly(ctx, "u1", true); err != nil {
		t.Fatalf("SynchronizeCreatesOnly() unexpected error: %v", err)
	}
	want := map[string]string{"r001": "settled", "stale": "settled", "r1": "pending-delete"}
	if diff := cmp.Diff(want, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
	if remote.deletes != 0 {
		t.Errorf("remote deletes = %d, want 0", remote.deletes)
	}
}

func TestReconcile_OverlappingCallIsDropped(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	remote := newMemRemote()
	remote.listing = make(chan struct{})
	remote.block = make(chan struct{})
	e := NewEngine(local, remote, newMemRegistry(), testOptions(at("2024-04-20", 9))...)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = e.Reconcile(ctx, "u1", true)
	}()
	<-remote.listing // the first call is now pulling.

	local.Put(ctx, entry("t9", "u1", "Coffee", 2.5, Expense, "2024-04-02", PendingCreate))
	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Errorf("overlapping Reconcile() unexpected error: %v", err)
	}
	if err := e.SynchronizeCreatesOnly(ctx, "u1", true); err != nil {
		t.Errorf("overlapping SynchronizeCreatesOnly() unexpected error: %v", err)
	}
	if remote.creates != 0 {
		t.Errorf("overlapping call pushed %d entries", remote.creates)
	}

	close(remote.block)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Reconcile() unexpected error: %v", firstErr)
	}
	if got := local.entries["t9"].State; got != PendingCreate {
		t.Errorf("t9 state = %v, want %v", got, PendingCreate)
	}

	// the engine is free again.
	remote.block = nil
	if err := e.Reconcile(ctx, "u1", true); err != nil {
		t.Fatalf("last Reconcile() unexpected error: %v", err)
	}
	if remote.creates != 1 {
		t.Errorf("remote creates = %d, want 1", remote.creates)
	}
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("a", "u1", "Lunch", 12, Expense, "2024-04-01", Settled),
		entry("b", "u1", "Dinner", 30, Expense, "2024-04-03", PendingCreate),
		entry("c", "u1", "Gone", 5, Expense, "2024-04-04", PendingDelete),
		entry("d", "u2", "Theirs", 3, Expense, "2024-04-05", Settled),
	)
	e := NewEngine(local, newMemRemote(), newMemRegistry(), testOptions(at("2024-04-20", 9))...)

	entries, err := e.Entries(ctx, "u1")
	if err != nil {
		t.Fatalf("Entries() unexpected error: %v", err)
	}
	var got []string
	for _, en := range entries {
		got = append(got, en.ID)
	}
	if diff := cmp.Diff([]string{"b", "a"}, got); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal(
		entry("a", "u1", "Lunch", 12, Expense, "2024-04-01", Settled),
		entry("b", "u1", "Dinner", 30, Expense, "2024-04-03", PendingCreate),
		entry("d", "u2", "Theirs", 3, Expense, "2024-04-05", Settled),
	)
	e := NewEngine(local, newMemRemote(), newMemRegistry(), testOptions(at("2024-04-20", 9))...)

	if err := e.Forget(ctx, "u1", false); !errors.Is(err, ErrPendingChanges) {
		t.Errorf("Forget() = %v, want ErrPendingChanges", err)
	}
	if err := e.Forget(ctx, "u1", true); err != nil {
		t.Errorf("Forget(force) unexpected error: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"d": "settled"}, states(local)); diff != "" {
		t.Errorf("local states mismatch (-want +got):\n%s", diff)
	}
}

func TestProject_RecordsPendingCreations(t *testing.T) {
	ctx := context.Background()
	local := newMemLocal()
	remote := newMemRemote()
	e := NewEngine(local, remote, newMemRegistry(rent()), testOptions(at("2024-04-20", 9))...)

	n, err := e.Project(ctx, "u1")
	if err != nil {
		t.Fatalf("Project() unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("Project() = %d, want 4", n)
	}
	if remote.creates != 0 {
		t.Errorf("remote creates = %d, want 0", remote.creates)
	}
	for id, st := range states(local) {
		if st != "pending-create" {
			t.Errorf("entry %q state = %s, want pending-create", id, st)
		}
	}
	if n, _ := e.Project(ctx, ""); n != 0 {
		t.Errorf("Project(no owner) = %d, want 0", n)
	}
}
