// Package cli implements the bundlestore command-line surface: a
// cobra root command plus one subcommand per file, modeled on the
// teacher's NewRootCommand layout.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand builds the bundlestore root command and wires every
// subcommand onto it.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bundlestore",
		Short: "bundlestore - a bundle-oriented persistence engine",
		Long:  "Inspect and administer a bundle-oriented persistence engine: schema init, debug bundle I/O, consistency checks.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "bundlestore.yaml", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose logging")

	cmd.AddCommand(NewInitSchemaCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}
