package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/debug"
	"github.com/dyike/StockPilot/internal/server"
	"github.com/dyike/StockPilot/pkg/app"
)

func newServeCmd(e *env) *cobra.Command {
	var port int
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		Long: `Serve the JSON dashboard API. The configuration file is watched and the
pipeline is rebuilt whenever it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				e.cfg.ServerPort = port
			}
			return runServe(cmd.Context(), e, configPath)
		},
	}

	cmd.Flags().IntVar(&port, "port", e.cfg.ServerPort, "HTTP port")
	cmd.Flags().StringVar(&configPath, "config", "", "Config file to watch (created from the environment when missing)")
	return cmd
}

func runServe(ctx context.Context, e *env, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// chains compile while the engine builds, so the debugger goes first
	if err := debug.NewEinoDebugger(e.cfg, e.log).Initialize(ctx); err != nil {
		return err
	}

	mgr, err := config.NewManager(
		config.WithConfigPath(configPath),
		config.WithInitialConfig(e.cfg),
		config.WithLogger(e.log),
	)
	if err != nil {
		return err
	}

	rt, err := app.NewRuntime(mgr,
		app.WithLogger(e.log),
		app.WithBaseBuilder(e.builder()),
		app.WithNotifier(func(topic, payload string) {
			e.log.Info().Str("topic", topic).RawJSON("payload", []byte(payload)).Msg("runtime event")
		}),
	)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := server.New(server.Config{
		Port:    mgr.Get().ServerPort,
		Log:     e.log,
		Backend: rt,
		Metrics: e.metrics,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
