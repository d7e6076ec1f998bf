// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink]: interface for event consumers.
//   - [Dispatcher]: buffered relay that either drops or blocks when full.
//   - [Event]: one structured audit record.
//
// This package owns buffering and delivery. Which events are emitted is the
// engine's decision.
package audit
