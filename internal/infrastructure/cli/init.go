package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a quest log workspace",
	Long: `Create .questlog/ with a default config and the sample objective catalog.
Existing files are kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		if err := wiring.Init(root, initForce); err != nil {
			return fmt.Errorf("failed to initialize workspace: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized quest log in %s\n", root)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite the config and catalog")
	RootCmd.AddCommand(initCmd)
}
