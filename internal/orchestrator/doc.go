// Package orchestrator schedules work items onto job pollers under two
// execution modes — bounded-concurrent and cancelable-sequential — and wires
// persistence around them. It owns the execution batch for each active run,
// finalizes work items when their pollers reach a terminal state, and
// re-attaches pollers to jobs still running on the backend after a process
// restart.
package orchestrator
