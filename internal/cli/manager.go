package cli

import (
	"github.com/rogerblanton/jackrabbit/internal/persistmgr"
)

// openManager loads the config at opts.ConfigPath and opens a
// persistmgr.Manager against it. Callers must Close it.
func openManager(opts *RootOptions) (*persistmgr.Manager, error) {
	cfg, err := persistmgr.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	m := persistmgr.New(cfg)
	return m, nil
}
