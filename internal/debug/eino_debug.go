package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/config"
)

// EinoDebugger starts the eino visual debug plugin so the recommendation
// chains can be inspected while the server runs.
type EinoDebugger struct {
	enabled bool
	log     zerolog.Logger
}

func NewEinoDebugger(cfg *config.Config, log zerolog.Logger) *EinoDebugger {
	return &EinoDebugger{
		enabled: cfg.EinoDebugEnabled,
		log:     log.With().Str("component", "eino_debug").Logger(),
	}
}

// Initialize must run before any chain is compiled.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.enabled {
		return nil
	}
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.log.Info().Msg("eino debug plugin initialized")
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.enabled
}
