// Package workstore holds the canonical in-memory registry of work items
// and the persisted mapping from work item ids to externally-issued job ids.
//
// The Store is the single source of truth for work item state: all mutation
// flows through Update, which enforces the legal-transition invariant and
// notifies the change emitter. The Registry tracks at most one live job
// handle per item so a restarted process can re-attach to jobs still
// running on the backend.
package workstore
