// Package audit implements async event dispatching for authentication endpoint activity.
//
// # Components
//
//   - [Sink]: event consumer. Implementations: [ChannelSink], [WriterSink] (JSON lines),
//     [LoggerSink] (slog), [NoOpSink]; [Multi] combines them.
//   - [Dispatcher]: one delivery goroutine behind a bounded queue that either drops or
//     waits when full. Close drains the queue.
//   - [Event]: one record of the trail.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the provider endpoints and the gateway do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import authgate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
