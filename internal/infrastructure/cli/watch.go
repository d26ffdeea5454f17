package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/watch"
	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
)

var (
	watchDebounce time.Duration
	watchFor      time.Duration
	watchMetrics  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload and print the quest log whenever the save slot changes",
	Long: `Watch the save slot and print the quest log after every change,
for example while another process is playing.

Examples:
  questctl watch
  questctl watch --slot autosave --debounce 1s
  questctl watch --for 30s --metrics`,
	Args: cobra.NoArgs,
	RunE: runWatchCmd,
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	return withWorkspace(cmd, func(ws *wiring.Workspace) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if watchFor > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchFor)
			defer cancel()
		}

		out := cmd.OutOrStdout()
		reload := func(e watch.ChangeEvent) error {
			if err := ws.Service.Load(ctx); err != nil {
				return err
			}
			st, err := ws.Service.Status(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "\nSave %s at %s\n", e.ChangeType, time.Now().Format("15:04:05"))
			renderStatus(out, st, ws.Title)
			return nil
		}

		w, err := watch.NewSaveWatcher(ws.Repo.Dir(), ws.WatchPatterns(), watchDebounce, reload, ws.Logger)
		if err != nil {
			return err
		}

		st, err := ws.Service.Status(ctx)
		if err != nil {
			return err
		}
		renderStatus(out, st, ws.Title)
		_, _ = fmt.Fprintf(out, "Watching slot %s for changes... (Ctrl+C to stop)\n", ws.Service.Slot())

		err = w.Run(ctx)
		if watchMetrics {
			_, _ = fmt.Fprintln(out)
			if merr := ws.Metrics.WriteText(out); merr != nil {
				return merr
			}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 300*time.Millisecond, "Quiet period before reloading")
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "Stop after this long (default: until interrupted)")
	watchCmd.Flags().BoolVar(&watchMetrics, "metrics", false, "Print reload metrics on exit")
	RootCmd.AddCommand(watchCmd)
}
