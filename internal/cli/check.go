package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand runs the consistency checker (C9) on demand and
// reports the scan counters. Exits with ExitFailure if any integrity
// problem was found, even when --fix repaired it, so CI can alert on
// drift instead of silently normalizing it away.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "run the consistency checker over every bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			if err := m.Open(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "open persistence engine", err)
			}
			defer m.Close()

			report, err := m.Check(cmd.Context(), fix)
			if err != nil {
				return WrapExitError(ExitFailure, "run consistency check", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned=%d decode_errors=%d missing_child=%d wrong_parent=%d missing_parent=%d repaired=%d\n",
				report.Scanned, report.DecodeErrors, report.MissingChild, report.WrongParent, report.MissingParent, report.Repaired)

			if report.Problems > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d consistency problem(s) found", report.Problems))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "repair dangling child entries found during the scan")

	return cmd
}
