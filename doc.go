// Package pocket implements an offline-first personal ledger: monetary
// movements (entries) and recurring obligations (scheduled charges) recorded
// on the device, and reconciled against an authoritative remote store once
// connectivity returns.
//
// The core functionalities include:
//   - Data model: Entry, with its synchronization State, and ScheduledCharge.
//   - Charge projection: the Projector turns due occurrences of scheduled
//     charges into entries, exactly once per occurrence.
//   - Reconciliation: the Engine pushes local deletions and creations, pulls
//     the remote snapshot, and projects charges, never losing a local change
//     that the remote store has not acknowledged yet.
//   - Scheduling: the Scheduler runs reconciliations on connectivity, identity,
//     focus, timer and manual events; the Probe produces connectivity events.
//
// Storage is abstracted by the LocalStore, RemoteStore and ChargeRegistry
// interfaces, implemented in the jsonl, localdb, postgres and remote packages.
package pocket
