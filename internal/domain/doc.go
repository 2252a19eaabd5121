// Package domain contains the core domain entities and value objects for logjam.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, Redis, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Event]: A normalized event record with engine-assigned time metadata
//   - [Key]: The identifier partitioning independent event streams
//   - [SenderState]: Whether a send is in flight for a key
//   - [Capability]: What a jam suppresses for a key (logging, sending)
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
