package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle and exit",
	Long: `Fetches the current task list, publishes the retained snapshot, and
exits. Useful for cron-style setups and for verifying configuration.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.publisher.Connect(ctx); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	result, err := app.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Published %d outstanding tasks to %s/tasks\n",
		result.Count, app.settings.Broker.BaseTopic)
	return nil
}
