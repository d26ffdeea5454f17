package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/questlog/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/questlog/pkg/domain/events"
)

var (
	journalObjective string
	journalType      string
	journalVerify    bool
	journalJSON      bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show or verify the quest journal",
	Long: `Show the hash-chained journal of objective, task and hint changes.

Examples:
  questctl journal
  questctl journal --objective rescue
  questctl journal --type objective.completed --json
  questctl journal --verify`,
	Args: cobra.NoArgs,
	RunE: runJournalCmd,
}

func runJournalCmd(cmd *cobra.Command, args []string) error {
	return withWorkspace(cmd, func(ws *wiring.Workspace) error {
		out := cmd.OutOrStdout()
		if journalVerify {
			violations, err := ws.Journal.VerifyIntegrity()
			if err != nil {
				return err
			}
			if len(violations) == 0 {
				_, _ = fmt.Fprintln(out, statusDone.Render("Journal integrity verified."))
				return nil
			}
			for _, v := range violations {
				_, _ = fmt.Fprintln(out, statusErr.Render(v))
			}
			return NewCLIError(fmt.Sprintf("journal has %d integrity violations", len(violations)), "Restore events.jsonl from a backup", nil)
		}

		var (
			records []*events.Record
			err     error
		)
		switch {
		case journalObjective != "":
			records, err = ws.Journal.LoadByObjective(journalObjective)
		case journalType != "":
			records, err = ws.Journal.LoadByType(journalType)
		default:
			records, err = ws.Journal.LoadAll()
		}
		if err != nil {
			return err
		}
		if journalObjective != "" && journalType != "" {
			records = filterType(records, journalType)
		}

		if journalJSON {
			if records == nil {
				records = []*events.Record{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		if len(records) == 0 {
			_, _ = fmt.Fprintln(out, "Journal is empty.")
			return nil
		}
		for _, r := range records {
			line := fmt.Sprintf("%s  %-22s %s", r.Timestamp.Local().Format(time.DateTime), r.Type, r.ObjectiveID)
			if r.Subject != "" {
				line += "/" + r.Subject
			}
			_, _ = fmt.Fprintln(out, line)
		}
		return nil
	})
}

func filterType(records []*events.Record, recordType string) []*events.Record {
	var kept []*events.Record
	for _, r := range records {
		if r.Type == recordType {
			kept = append(kept, r)
		}
	}
	return kept
}

func init() {
	journalCmd.Flags().StringVar(&journalObjective, "objective", "", "Only show records for this objective")
	journalCmd.Flags().StringVar(&journalType, "type", "", "Only show records of this type")
	journalCmd.Flags().BoolVar(&journalVerify, "verify", false, "Verify the hash chain instead of listing records")
	journalCmd.Flags().BoolVar(&journalJSON, "json", false, "Output as JSON")
	RootCmd.AddCommand(journalCmd)
}
