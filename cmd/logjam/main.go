package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logjam/internal/cliconfig"
)

const helpBanner = `
 ██▓     ▒█████    ▄████  ▄▄▄██▀▀▀▄▄▄       ███▄ ▄███▓
▓██▒    ▒██▒  ██▒ ██▒ ▀█▒   ▒██  ▒████▄    ▓██▒▀█▀ ██▒
▒██░    ▒██░  ██▒▒██░▄▄▄░   ░██  ▒██  ▀█▄  ▓██    ▓██░
▒██░    ▒██   ██░░▓█  ██▓▓██▄██▓ ░██▄▄▄▄██ ▒██    ▒██ 
░██████▒░ ████▓▒░░▒▓███▀▒ ▓███▒   ▓█   ▓██▒▒██▒   ░██▒
`

const helpDescription = `
Batch structured events per key and ship them without blocking the producer.

Highlights:
  - Reads newline-delimited JSON from stdin or a file; each record's key field picks its stream.
  - Sends a key's batch when it reaches --pending-send-max events or on every --time-interval tick.
  - Jam and drive keys at runtime through a pause file or the admin API.
  - Ships over HTTP or pushes to Redis lists; configure via file, env, or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  tail -F app.ndjson | logjam --service-url https://ingest.example.com --auth-key <api-key>
  logjam --input events.ndjson --sink redis --redis-addr localhost:6379
  logjam --config $HOME/.logjam/config.toml --admin-addr :9090 --pause-file /etc/logjam/pause.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:     "logjam",
		Short:   "Batch structured events per key and ship them without blocking the producer",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.logjam/config.toml), then env, then flags
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (LOGJAM_*)
			// These override file config but are overridden by flags (checked via changed map)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return fmt.Errorf("load env: %w", err)
			}

			// Validate and set derived defaults
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := cliconfig.Logger(cfg.LogLevel)

			// Log configuration (masking API key)
			logCfg := cfg
			if len(logCfg.AuthKey) > 0 {
				logCfg.AuthKey = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			in, closeInput, err := openInput(cfg.Input)
			if err != nil {
				return err
			}
			defer closeInput()

			// Setup signal handling for graceful shutdown
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			_, err = run(ctx, cfg, in, log)
			return err
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.logjam/config.toml)")
	root.Flags().StringVarP(&cfg.Input, "input", "i", cfg.Input, "NDJSON input file (- for stdin)")
	root.Flags().StringVar(&cfg.KeyField, "key-field", cfg.KeyField, "record field holding the event key")

	root.Flags().StringVar(&cfg.Sink, "sink", cfg.Sink, "sink to ship batches to (http or redis)")
	root.Flags().StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, fmt.Sprintf("base ingestion service URL (defaults to %s)", cliconfig.DefaultServiceURL))
	root.Flags().StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "API key for authentication")
	root.Flags().StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address for the redis sink")
	root.Flags().StringVar(&cfg.RedisPrefix, "redis-prefix", cfg.RedisPrefix, "redis list name prefix")

	root.Flags().IntVar(&cfg.PendingSendMax, "pending-send-max", cfg.PendingSendMax, "buffered events per key that trigger a send")
	root.Flags().DurationVar(&cfg.TimeInterval, "time-interval", cfg.TimeInterval, "per-key timer interval")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "maximum time to wait for in-flight sends on exit")
	root.Flags().BoolVar(&cfg.ManualSending, "manual-sending", cfg.ManualSending, "disable threshold and timer sends")
	root.Flags().BoolVar(&cfg.FlushOnExit, "flush-on-exit", cfg.FlushOnExit, "send pending events before exiting")
	root.Flags().StringVar(&cfg.UserID, "user-id", cfg.UserID, "user id stamped on every event")

	root.Flags().IntVar(&cfg.Retries, "retries", cfg.Retries, "retries per failed send")
	root.Flags().Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "maximum sends per second (0 disables)")

	root.Flags().StringVar(&cfg.AdminAddr, "admin-addr", cfg.AdminAddr, "admin API listen address (empty disables)")
	root.Flags().StringVar(&cfg.PauseFile, "pause-file", cfg.PauseFile, "TOML file listing jammed keys (empty disables)")
	root.Flags().Float64Var(&cfg.LoadThreshold, "load-threshold", cfg.LoadThreshold, "load fraction that jams sending (0 disables)")
	root.Flags().IntVar(&cfg.MaxBuffered, "max-buffered", cfg.MaxBuffered, "buffered events per key before pruning (0 disables)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		log := cliconfig.Logger(cfg.LogLevel)
		log.Error().Err(err).Msg("logjam")
		os.Exit(1)
	}
}
