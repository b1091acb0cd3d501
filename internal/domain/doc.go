// Package domain defines the core entities of the orchestration subsystem:
// work items, their status state machine, job handles binding items to
// externally-issued job ids, and the snapshot projection used for
// persistence.
package domain
