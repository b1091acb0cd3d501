// Package api contains the HTTP handlers consumed by the presentation
// layer: work item management, batch submission and cancellation, snapshot
// retrieval, and the server-sent-events change feed.
package api
