package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/taskbridge/internal/adapters/driving/web"
	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/services"
	"github.com/custodia-labs/taskbridge/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge service",
	Long: `Starts the bridge: connects to the broker, schedules the periodic task
sync and the hourly credential check, and serves the control API and
dashboard until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	app.logStartup()

	// The client keeps retrying in the background after a failed first
	// dial, so a broker outage at boot is not fatal.
	if err := app.publisher.Connect(ctx); err != nil {
		logger.Warn("Broker not reachable yet: %v", err)
	}

	scheduler := services.NewScheduler(
		domain.NewSchedulerConfig(app.settings.Sync.Interval),
		app.store.SchedulerStore(),
		app.pipeline,
		app.tokens,
	)

	server := web.NewServer(
		app.pipeline,
		app.tokens,
		app.health,
		app.publisher,
		app.store.SchedulerStore(),
		app.settings.Broker.BaseTopic,
	)

	errCh := make(chan error, 2)
	go func() {
		errCh <- scheduler.Start(ctx)
	}()
	go func() {
		errCh <- server.Start(app.settings.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logger.Warn("Component failed: %v", err)
		}
	}

	if err := scheduler.Stop(); err != nil {
		logger.Warn("Scheduler stop: %v", err)
	}
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Warn("Server shutdown: %v", err)
	}
	return nil
}
