package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/config"
	"github.com/keshon/psnap/internal/errdefs"
)

func openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Open(t.TempDir())
	require.NoError(t, err)
	return cat
}

func TestOpenCreatesDestination(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups")
	_, err := catalog.Open(root)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(root, config.MetaDir, config.RecordsDir))
}

func TestBeginFinalizeLifecycle(t *testing.T) {
	cat := openCatalog(t)

	rec, err := cat.Begin("snap")
	require.NoError(t, err)
	require.Equal(t, catalog.StatusInProgress, rec.Status)
	require.FileExists(t, filepath.Join(cat.Root, config.MetaDir, config.LockFile))

	locked, holder := cat.Locked()
	require.True(t, locked)
	require.Contains(t, holder, rec.ID)

	require.NoError(t, cat.Finalize(rec, catalog.StatusComplete))
	locked, _ = cat.Locked()
	require.False(t, locked, "finalize must release the lock")

	latest, ok, err := cat.LatestComplete()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.ID, latest.ID)
}

func TestBeginConflict(t *testing.T) {
	cat := openCatalog(t)

	rec, err := cat.Begin("snap")
	require.NoError(t, err)

	_, err = cat.Begin("snap")
	require.True(t, errors.Is(err, errdefs.ErrConcurrency))

	require.NoError(t, cat.Finalize(rec, catalog.StatusComplete))
	rec2, err := cat.Begin("snap")
	require.NoError(t, err)
	require.NoError(t, cat.Finalize(rec2, catalog.StatusComplete))
}

func TestIdentifiersStrictlyIncreasing(t *testing.T) {
	cat := openCatalog(t)

	var prev string
	for i := 0; i < 3; i++ {
		rec, err := cat.Begin("snap")
		require.NoError(t, err)
		require.NoError(t, cat.Finalize(rec, catalog.StatusComplete))
		if prev != "" {
			require.Greater(t, rec.ID, prev)
		}
		prev = rec.ID
	}
}

func TestLatestCompleteSkipsFailedAndInProgress(t *testing.T) {
	cat := openCatalog(t)

	good, err := cat.Begin("snap")
	require.NoError(t, err)
	require.NoError(t, cat.Finalize(good, catalog.StatusComplete))

	bad, err := cat.Begin("snap")
	require.NoError(t, err)
	require.NoError(t, cat.Finalize(bad, catalog.StatusFailed))

	latest, ok, err := cat.LatestComplete()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, good.ID, latest.ID)
}

func TestLatestCompleteEmpty(t *testing.T) {
	cat := openCatalog(t)
	_, ok, err := cat.LatestComplete()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListRecoversFromDirectoryNames(t *testing.T) {
	cat := openCatalog(t)

	// a snapshot directory without a record file, named by the convention
	require.NoError(t, os.Mkdir(filepath.Join(cat.Root, "legacy-20240101120000"), 0o755))
	// and one stray directory that is not a snapshot
	require.NoError(t, os.Mkdir(filepath.Join(cat.Root, "not a snapshot"), 0o755))

	records, err := cat.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "legacy-20240101120000", records[0].ID)
	require.Equal(t, "legacy", records[0].Queue)
	require.Equal(t, catalog.StatusComplete, records[0].Status)
}

func TestUnlock(t *testing.T) {
	cat := openCatalog(t)

	err := cat.Unlock()
	require.True(t, errors.Is(err, errdefs.ErrInput), "unlock without a lock is an input error")

	_, err = cat.Begin("snap")
	require.NoError(t, err)
	require.NoError(t, cat.Unlock())

	rec, err := cat.Begin("snap")
	require.NoError(t, err)
	require.NoError(t, cat.Finalize(rec, catalog.StatusComplete))
}
