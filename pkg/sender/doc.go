// Package sender provides the sinks a logjam controller ships batches to.
//
// A sender receives one key's batch at a time: the events snapshotted from the
// active buffer and the payload produced by the controller's prep function.
// It reports whether the sink accepted the batch; the engine never retries,
// so wrap a sender with [NewReliable] to add retries, a circuit breaker and
// rate limiting.
//
// # Usage
//
// Ship JSON to an HTTP ingestion service:
//
//	s := sender.NewHTTPSender(http.DefaultClient, sender.Metadata{
//	    AuthKey:    "api-key",
//	    ServiceURL: "https://ingest.example.com",
//	}, logger)
//
// Push to Redis instead:
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := sender.NewRedisSender(rdb, "logjam", logger)
//
// Any function can be a sender:
//
//	s := sender.Func(func(ctx context.Context, b sender.Batch) (sender.Response, error) {
//	    return sender.Response{Success: true}, nil
//	})
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package sender
