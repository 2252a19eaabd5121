// Package log provides the structured logging abstraction used by logjam.
//
// The engine never logs through a concrete library. Components accept a
// [Logger] and the embedding application decides where lines go. A zerolog
// adapter and a no-op logger are provided.
//
//	logger := log.NewZerologAdapter(os.Stderr, "info")
//	logger.Info("dispatch sent", log.String("key", "orders"), log.Int("count", 5))
//
// Use [With] to derive a logger that stamps every line with fixed fields,
// for example a component name.
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
