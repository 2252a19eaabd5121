package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/bft-labs/logjam/internal/cliconfig"
	"github.com/bft-labs/logjam/pkg/log"
	"github.com/bft-labs/logjam/pkg/logjam"
	"github.com/bft-labs/logjam/pkg/sender"
	"github.com/bft-labs/logjam/plugins/admin"
	"github.com/bft-labs/logjam/plugins/bufferprune"
	"github.com/bft-labs/logjam/plugins/pausewatcher"
	"github.com/bft-labs/logjam/plugins/resourcegating"
)

// maxLineBytes bounds a single input record.
const maxLineBytes = 1 << 20

// ingestStats counts what happened to input lines.
type ingestStats struct {
	Lines    int
	Logged   int
	Skipped  int
	Rejected int
}

// buildOptions maps the CLI configuration onto library options and plugins.
func buildOptions(cfg cliconfig.Config, logger zerolog.Logger, reg *prometheus.Registry) []logjam.Option {
	opts := []logjam.Option{
		logjam.WithLogger(log.NewZerologAdapterWithLogger(logger)),
		logjam.WithMetrics(reg),
	}

	if cfg.Retries > 0 || cfg.RateLimit > 0 {
		rc := sender.DefaultReliableConfig()
		rc.Attempts = uint(cfg.Retries) + 1
		rc.RatePerSecond = cfg.RateLimit
		if cfg.HTTPTimeout > 0 {
			rc.AttemptTimeout = cfg.HTTPTimeout
		}
		opts = append(opts, logjam.WithReliability(rc))
	}

	if cfg.AdminAddr != "" {
		opts = append(opts, admin.WithAdmin(admin.Config{
			Addr:     cfg.AdminAddr,
			Gatherer: reg,
		}))
	}

	if cfg.PauseFile != "" {
		pc := pausewatcher.DefaultConfig()
		pc.Path = cfg.PauseFile
		opts = append(opts, pausewatcher.WithPauseWatcher(pc))
	}

	if cfg.LoadThreshold > 0 {
		gc := resourcegating.DefaultConfig()
		gc.Threshold = cfg.LoadThreshold
		opts = append(opts, resourcegating.WithResourceGating(gc))
	}

	if cfg.MaxBuffered > 0 {
		bc := bufferprune.DefaultConfig()
		bc.HighWatermark = cfg.MaxBuffered
		bc.LowWatermark = 0
		opts = append(opts, bufferprune.WithBufferPrune(bc))
	}

	return opts
}

// openInput returns the reader for cfg.Input and a function closing it.
func openInput(path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, f.Close, nil
}

// run starts an instance, feeds it every record from in and stops it once
// in is exhausted or ctx is cancelled.
func run(ctx context.Context, cfg cliconfig.Config, in io.Reader, logger zerolog.Logger, opts ...logjam.Option) (ingestStats, error) {
	reg := prometheus.NewRegistry()
	all := append(buildOptions(cfg, logger, reg), opts...)

	lj, err := logjam.New(cfg.Logjam(), all...)
	if err != nil {
		return ingestStats{}, fmt.Errorf("create logjam: %w", err)
	}
	if err := lj.Start(ctx); err != nil {
		return ingestStats{}, fmt.Errorf("start logjam: %w", err)
	}

	type result struct {
		stats ingestStats
		err   error
	}
	doneCh := make(chan result, 1)
	go func() {
		stats, err := ingest(ctx, lj, in, cfg.KeyField, logger)
		doneCh <- result{stats, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		logger.Info().Msg("interrupted, stopping")
	case res = <-doneCh:
		logger.Info().
			Int("lines", res.stats.Lines).
			Int("logged", res.stats.Logged).
			Int("skipped", res.stats.Skipped).
			Int("rejected", res.stats.Rejected).
			Msg("input exhausted, stopping")
	}

	if err := lj.Stop(); err != nil {
		return res.stats, fmt.Errorf("stop logjam: %w", err)
	}
	return res.stats, res.err
}

// ingest reads newline-delimited JSON records. Each record is logged under
// the key found in keyField; a record without a usable key goes to
// logjam.DefaultKey. Lines that are not JSON objects are skipped and records
// refused while logging is jammed are counted as rejected.
func ingest(ctx context.Context, lj *logjam.Logjam, in io.Reader, keyField string, logger zerolog.Logger) (ingestStats, error) {
	var stats ingestStats

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	for sc.Scan() {
		if ctx.Err() != nil {
			return stats, nil
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Skipped++
			logger.Warn().Err(err).Int("line", stats.Lines).Msg("skipping malformed record")
			continue
		}

		if _, ok := lj.Log(record[keyField], record); !ok {
			stats.Rejected++
			logger.Debug().Int("line", stats.Lines).Msg("record rejected")
			continue
		}
		stats.Logged++
	}

	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, nil
}
