package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMigrateCommand reruns the schema bootstrapper (C8) against an
// existing database. Bootstrap executes the schema resource only when
// the bundle table is missing, so once that table exists no other
// table the resource defines is created by this command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "rerun schema bootstrap against an existing database",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			if err := m.Open(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "open persistence engine", err)
			}
			defer m.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}
