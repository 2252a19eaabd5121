package logjam

import (
	"context"
	"fmt"

	"github.com/bft-labs/logjam/pkg/log"
)

// Plugin extends a Logjam instance with optional behavior.
// Plugins are initialized on Start in registration order and shut down on
// Stop in reverse order.
type Plugin interface {
	// Name returns a unique identifier used in logs.
	Name() string

	// Initialize starts the plugin. Returning an error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and releases its resources.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	ServiceURL string
	AuthKey    string
	Logger     log.Logger

	// Instance is the Logjam being started. Plugins use it to reach the
	// orchestrator and controllers.
	Instance *Logjam
}

// BasePlugin implements Plugin with no-ops. Embed it and override what you need.
type BasePlugin struct{}

func (BasePlugin) Name() string                                          { return "base" }
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }
func (BasePlugin) Shutdown(ctx context.Context) error                     { return nil }

// initPlugin runs p.Initialize, turning a panic into an error.
func initPlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during initialization: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

// shutdownPlugin runs p.Shutdown, turning a panic into an error.
func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during shutdown: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}
