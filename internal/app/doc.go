// Package app assembles the QCPulse server: configuration, logging, the
// workbook store and its watcher, the sync coordinator, the websocket hub,
// and the HTTP API. Construction is plain dependency injection in
// NewApplication; Run owns the process lifecycle and shuts everything down
// on context cancellation.
package app
