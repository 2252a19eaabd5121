// Package logjam provides an embeddable per-key event batching engine.
//
// Events logged under a key accumulate in that key's buffer and are shipped
// to a sink as one batch when the buffer reaches PendingSendMax events, when
// the key's timer fires, or when a caller triggers a send. At most one send
// per key is in flight; events logged meanwhile are staged and become the next
// batch once the send succeeds. A failed send keeps every event buffered.
//
// # Basic Usage
//
//	cfg := logjam.DefaultConfig()
//	cfg.ServiceURL = "https://ingest.example.com"
//	cfg.AuthKey = "your-api-key"
//
//	lj, err := logjam.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := lj.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	lj.Log("checkout", map[string]any{"code": "cart.paid", "data": order})
//
//	// ... run until shutdown signal ...
//
//	if err := lj.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Jamming
//
// Keys can be paused ("jammed") and resumed ("driven") through an
// [Orchestrator]. Jamming logging drops new events for the key; jamming
// sending keeps them buffered without shipping:
//
//	orch := lj.Orchestrator()
//	orch.Jam([]logjam.Key{"checkout"}, logjam.CapSending)
//	orch.Drive()
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe lifecycle changes, send results and
// configuration errors. Handlers run on send goroutines and must not block.
//
// # Sinks
//
// The default sink POSTs JSON to Config.ServiceURL. Set Config.Sink to "redis"
// to push to Redis instead, or inject any [sender.Sender] with [WithSender].
// [WithReliability] adds retries, a circuit breaker and rate limiting.
//
// # Plugins
//
//	import "github.com/bft-labs/logjam/plugins/pausewatcher"
//	import "github.com/bft-labs/logjam/plugins/admin"
//
//	lj, err := logjam.New(cfg,
//	    pausewatcher.WithPauseWatcher(pausewatcher.Config{Path: "/etc/logjam/pause.toml"}),
//	    admin.WithAdmin(admin.Config{Addr: ":9090"}),
//	)
//
// # Version
//
// Current version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules.
package logjam
