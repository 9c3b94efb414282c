package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/keshon/psnap/internal/fsio"
)

const (
	// MetaDir is kept inside the destination root and holds catalog state.
	MetaDir    = ".psnap"
	RecordsDir = "records"
	LockFile   = "lock"

	// ConfigFile is an optional per-destination settings file.
	ConfigFile = ".psnap.yml"

	// TimestampLayout is the 14-digit snapshot identifier timestamp.
	TimestampLayout = "20060102150405"

	DefaultQueue = "snap"
)

// QueueSpec describes one retention queue: snapshots enter it when the
// newest member is at least Age days old, and at most Length are kept.
type QueueSpec struct {
	Name   string `yaml:"name"`
	Age    int    `yaml:"age"`
	Length int    `yaml:"length"`
}

// Config holds per-destination settings loaded from ConfigFile.
type Config struct {
	Queues    []QueueSpec `yaml:"queues"`
	Workers   int         `yaml:"workers"`
	HashCheck bool        `yaml:"hash_check"`
}

// Load reads the destination's config file. A missing file yields defaults.
func Load(destRoot string) (*Config, error) {
	path := filepath.Join(destRoot, ConfigFile)
	data, err := fsio.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &cfg, nil
}
