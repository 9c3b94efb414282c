package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/keshon/psnap/internal/cli"
	cmdsnapshot "github.com/keshon/psnap/internal/commands/snapshot"
	"github.com/keshon/psnap/internal/errdefs"
)

func TestRunRejectsBadArguments(t *testing.T) {
	cmd := &cmdsnapshot.Command{}

	err := cmd.Run(&cli.Context{Args: nil})
	require.True(t, errors.Is(err, errdefs.ErrInput))

	err = cmd.Run(&cli.Context{Args: []string{"only-one-arg"}})
	require.True(t, errors.Is(err, errdefs.ErrInput))

	err = cmd.Run(&cli.Context{Args: []string{"--no-such-flag", "a", "b"}})
	require.True(t, errors.Is(err, errdefs.ErrInput))

	err = cmd.Run(&cli.Context{Args: []string{"--log-level", "loud", "a", "b"}})
	require.True(t, errors.Is(err, errdefs.ErrInput))
}

func TestRunEndToEnd(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "f.txt"), []byte("content"), 0o644))

	cmd := &cmdsnapshot.Command{}
	require.NoError(t, cmd.Run(&cli.Context{Args: []string{"--log-level", "error", src, dst}}))

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)

	var snapDirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			snapDirs = append(snapDirs, e.Name())
		}
	}
	require.Len(t, snapDirs, 1)

	data, err := os.ReadFile(filepath.Join(dst, snapDirs[0], "f.txt"))
	require.NoError(t, err)
	require.Equal(t, "content", string(data))
}
