package persistmgr

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rogerblanton/jackrabbit/internal/perrors"
)

// Config is the full set of recognized options (§6). Fields map
// one-to-one to the YAML keys a deployment supplies.
type Config struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	Schema             string `yaml:"schema"`
	SchemaObjectPrefix string `yaml:"schemaObjectPrefix"`

	MinBlobSize   int64 `yaml:"minBlobSize"`
	ExternalBLOBs bool  `yaml:"externalBLOBs"`
	BlobRoot      string `yaml:"blobRoot"` // FS root when ExternalBLOBs is true

	ConsistencyCheck bool `yaml:"consistencyCheck"`
	ConsistencyFix   bool `yaml:"consistencyFix"`

	// ErrorHandling is a string of single-character flags parsed by
	// Policy into the soft-diagnostic switches C2 and C9 consult.
	ErrorHandling string `yaml:"errorHandling"`

	// BundleCacheSize is consumed by the cache layer above this core,
	// not by anything in this package; kept here so one config file
	// governs the whole stack.
	BundleCacheSize int `yaml:"bundleCacheSize"`
}

// defaults mirror §6: minBlobSize 4096, schema "default".
func (c *Config) applyDefaults() {
	if c.MinBlobSize == 0 {
		c.MinBlobSize = 4096
	}
	if c.Schema == "" {
		c.Schema = "default"
	}
}

// LoadConfig reads and parses a YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persistmgr: read config %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("persistmgr: parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Policy parses ErrorHandling into the soft-diagnostic switches C2
// and C9 consult (§7's last paragraph).
func (c *Config) Policy() perrors.Policy {
	return perrors.ParsePolicy(c.ErrorHandling)
}
