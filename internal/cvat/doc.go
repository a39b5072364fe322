// Package cvat provides a client for downloading annotated datasets from a
// CVAT annotation server.
//
// The client fetches a task's dataset export as a zip archive, extracts it
// into a per-task directory under the raw dataset root, and removes the
// archive afterwards. Requests are rate limited and transient failures are
// retried with exponential backoff.
package cvat
