package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/config"
	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
)

func getProjectRoot() (string, error) {
	if projectPath != "" {
		abs, err := filepath.Abs(projectPath)
		if err != nil {
			return "", fmt.Errorf("invalid project path %q: %w", projectPath, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", fmt.Errorf("project path %q: %w", abs, err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("project path %q is not a directory", abs)
		}
		return abs, nil
	}
	return os.Getwd()
}

// openWorkspace opens the workspace for cmd with global flag overrides.
// Logs go to the command's stderr. Callers must Close the result.
func openWorkspace(cmd *cobra.Command) (*wiring.Workspace, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}
	ws, err := wiring.Open(cmd.Context(), root, cmd.ErrOrStderr(), flagOverrides)
	if err != nil {
		return nil, MapError(err)
	}
	return ws, nil
}

func flagOverrides(cfg *config.Config) {
	if slotFlag != "" {
		cfg.Slot = slotFlag
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

// withWorkspace runs fn against an open workspace and closes it afterwards.
func withWorkspace(cmd *cobra.Command, fn func(*wiring.Workspace) error) (err error) {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return MapError(fn(ws))
}
