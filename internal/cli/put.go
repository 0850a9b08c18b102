package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rogerblanton/jackrabbit/internal/bundle"
	"github.com/rogerblanton/jackrabbit/internal/nodeid"
	"github.com/rogerblanton/jackrabbit/internal/txn"
)

// NewPutCommand is debug bundle I/O: it builds a minimal bundle from
// flags and stores it, printing the assigned id. Not a general
// content-authoring tool — just enough to exercise the store by hand.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		idFlag     string
		typeNS     uint32
		typeName   uint32
		properties []string
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "store a bundle built from flags (debug tool)",
		RunE: func(cmd *cobra.Command, args []string) error {
			id := nodeid.New()
			if idFlag != "" {
				parsed, err := nodeid.Parse(idFlag)
				if err != nil {
					return WrapExitError(ExitCommandError, "parse --id", err)
				}
				id = parsed
			}

			b := &bundle.NodePropBundle{
				ID:           id,
				NodeTypeName: bundle.QName{NamespaceIndex: typeNS, NameIndex: typeName},
				IsNew:        true,
			}

			for _, prop := range properties {
				ns, name, value, err := parseProp(prop)
				if err != nil {
					return WrapExitError(ExitCommandError, "parse --prop", err)
				}
				b.Properties = append(b.Properties, bundle.PropertyEntry{
					Name:   bundle.QName{NamespaceIndex: ns, NameIndex: name},
					Type:   bundle.TypeString,
					Values: []bundle.Value{bundle.NewString(value)},
				})
			}

			m, err := openManager(rootOpts)
			if err != nil {
				return err
			}
			if err := m.Open(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "open persistence engine", err)
			}
			defer m.Close()

			cl := &txn.ChangeLog{AddedBundles: []*bundle.NodePropBundle{b}}
			if err := m.Store(cmd.Context(), cl); err != nil {
				return WrapExitError(ExitFailure, "store bundle", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&idFlag, "id", "", "node id to assign (random UUID if omitted)")
	cmd.Flags().Uint32Var(&typeNS, "type-ns", 1, "node type name's namespace index")
	cmd.Flags().Uint32Var(&typeName, "type-name", 1, "node type name's name index")
	cmd.Flags().StringArrayVar(&properties, "prop", nil, "string property as ns:name=value, repeatable")

	return cmd
}

// parseProp parses "ns:name=value" into its three parts.
func parseProp(spec string) (ns, name uint32, value string, err error) {
	eq := strings.IndexByte(spec, '=')
	if eq < 0 {
		return 0, 0, "", fmt.Errorf("expected ns:name=value, got %q", spec)
	}
	key, value := spec[:eq], spec[eq+1:]
	colon := strings.IndexByte(key, ':')
	if colon < 0 {
		return 0, 0, "", fmt.Errorf("expected ns:name=value, got %q", spec)
	}
	if _, err := fmt.Sscanf(key[:colon], "%d", &ns); err != nil {
		return 0, 0, "", fmt.Errorf("parse namespace index in %q: %w", spec, err)
	}
	if _, err := fmt.Sscanf(key[colon+1:], "%d", &name); err != nil {
		return 0, 0, "", fmt.Errorf("parse name index in %q: %w", spec, err)
	}
	return ns, name, value, nil
}
