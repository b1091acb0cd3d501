// Package pipeline is the boundary to the external multi-stage content
// generation backend. It defines the start-job and status collaborators the
// orchestration core depends on, an HTTP implementation of both, and the
// fault classification used to decide whether a failed call is worth
// retrying.
//
// The backend's result shape is deliberately treated as opaque beyond the
// candidate-field probing in ExtractResult.
package pipeline
