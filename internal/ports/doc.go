// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Sender]: Delivers a batch of events to the remote sink
//   - [PrepFunc]: Transforms a batch immediately before sending
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Concrete senders live in pkg/sender; loggers in pkg/log.
package ports
