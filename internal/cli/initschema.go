package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewInitSchemaCommand bootstraps the relational schema (C8) for a
// fresh database, then exits. Safe to rerun: Bootstrap no-ops when the
// bundle table already exists.
func NewInitSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "create the relational schema if it doesn't exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			if err := m.Open(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "open persistence engine", err)
			}
			defer m.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}
