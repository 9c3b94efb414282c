package errdefs_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/keshon/psnap/internal/errdefs"
)

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, errdefs.ExitCode(nil))
	require.Equal(t, 2, errdefs.ExitCode(errdefs.ErrInput))
	require.Equal(t, 2, errdefs.ExitCode(errors.Wrap(errdefs.ErrInput, "missing source")))
	require.Equal(t, 1, errdefs.ExitCode(errdefs.ErrStorage))
	require.Equal(t, 1, errdefs.ExitCode(errdefs.ErrConcurrency))
	require.Equal(t, 1, errdefs.ExitCode(errors.New("anything else")))
}

func TestWrappedClassification(t *testing.T) {
	err := errors.Wrapf(errdefs.ErrConcurrency, "destination %q busy", "/mnt/backups")
	require.True(t, errors.Is(err, errdefs.ErrConcurrency))
	require.Contains(t, err.Error(), "/mnt/backups")
}
