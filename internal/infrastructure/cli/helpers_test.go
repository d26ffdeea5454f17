package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runCLI executes RootCmd against root and returns stdout and stderr.
// Flag values are reset first because RootCmd is shared across tests.
func runCLI(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(RootCmd)
	logLevel = ""

	var out, errOut bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&errOut)
	RootCmd.SetArgs(append([]string{"--path", root}, args...))
	err := RootCmd.Execute()
	return out.String(), errOut.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func mustRun(t *testing.T, root string, args ...string) string {
	t.Helper()
	out, errOut, err := runCLI(t, root, args...)
	if err != nil {
		t.Fatalf("questctl %v: %v\nstderr: %s", args, err, errOut)
	}
	return out
}
