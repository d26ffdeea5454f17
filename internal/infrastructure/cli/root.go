package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/logging"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	projectPath string
	slotFlag    string
	logLevel    logging.Level
)

var _ pflag.Value = (*logging.Level)(nil)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "questctl",
	Version: Version,
	Short:   "Track quest objectives, tasks and hints",
	Long: `questctl drives a quest log from the command line.
It answers three questions about a playthrough:
1. Which objectives are active?
2. Which tasks and hints do they show?
3. What should the player focus on next?`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&projectPath, "path", "C", "", "Workspace directory (default: current directory)")
	RootCmd.PersistentFlags().StringVar(&slotFlag, "slot", "", "Save slot to use instead of the configured one")
	RootCmd.PersistentFlags().Var(&logLevel, "log-level", "Log level (debug|info|warn|error)")
}
