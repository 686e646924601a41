// Package cli wires the bridge together and exposes it as a cobra command
// tree: serve runs the long-lived bridge, sync runs one cycle and exits.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/taskbridge/internal/logger"
)

var version = "0.1.0"

var (
	configDir   string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "taskbridge",
	Short: "Bridge Lark tasks to an MQTT broker",
	Long: `taskbridge periodically fetches your Lark tasks, keeps the outstanding
ones ordered by due date, and publishes the full list as a single retained
MQTT message. Smart-home dashboards subscribe once and always see the
current snapshot.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "",
		"configuration directory (default ~/.taskbridge)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
