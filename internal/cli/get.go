package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rogerblanton/jackrabbit/internal/nodeid"
)

// NewGetCommand is the read half of the debug bundle I/O pair: it
// loads a bundle by id and dumps it as JSON.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var idFlag string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "load a bundle by id and print it as JSON (debug tool)",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := nodeid.Parse(idFlag)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse --id", err)
			}

			m, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			if err := m.Open(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "open persistence engine", err)
			}
			defer m.Close()

			b, err := m.LoadBundle(cmd.Context(), id)
			if err != nil {
				return WrapExitError(ExitFailure, "load bundle", err)
			}
			if b == nil {
				return NewExitError(ExitFailure, fmt.Sprintf("no bundle for id %s", id))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		},
	}

	cmd.Flags().StringVar(&idFlag, "id", "", "node id to load")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
