package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keshon/psnap/internal/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, cfg.Queues)
	require.Zero(t, cfg.Workers)
	require.False(t, cfg.HashCheck)
}

func TestLoadParsesYAML(t *testing.T) {
	root := t.TempDir()
	content := `
queues:
  - {name: daily, age: 1, length: 7}
  - {name: weekly, age: 7, length: 4}
workers: 4
hash_check: true
`
	require.NoError(t, os.WriteFile(filepath.Join(root, config.ConfigFile), []byte(content), 0o644))

	cfg, err := config.Load(root)
	require.NoError(t, err)
	require.Len(t, cfg.Queues, 2)
	require.Equal(t, config.QueueSpec{Name: "daily", Age: 1, Length: 7}, cfg.Queues[0])
	require.Equal(t, 4, cfg.Workers)
	require.True(t, cfg.HashCheck)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.ConfigFile), []byte("queues: ["), 0o644))

	_, err := config.Load(root)
	require.Error(t, err)
}
