package snapshot_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keshon/psnap/internal/snapshot"
)

func newBuilder(t *testing.T, prevRoot string) (*snapshot.Builder, string) {
	t.Helper()
	src := t.TempDir()
	b := &snapshot.Builder{
		SourceRoot: src,
		SnapRoot:   filepath.Join(t.TempDir(), "snap-20260301120000"),
		PrevRoot:   prevRoot,
	}
	require.NoError(t, b.MakeRoot())
	return b, src
}

func scanOne(t *testing.T, src string) snapshot.SourceEntry {
	t.Helper()
	entries, _, err := snapshot.Scan(src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	return entries[0]
}

func TestCopyPreservesContentModeMtime(t *testing.T) {
	b, src := newBuilder(t, "")
	path := filepath.Join(src, "a.txt")
	writeFile(t, path, "payload")
	require.NoError(t, os.Chmod(path, 0o640))
	mtime := time.Date(2026, 2, 1, 8, 30, 0, 0, time.Local)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	d, n := b.Place(snapshot.LinkDecision{Entry: scanOne(t, src), Action: snapshot.DecisionCopy})
	require.Equal(t, snapshot.DecisionCopy, d.Action)
	require.Equal(t, int64(len("payload")), n)

	dst := filepath.Join(b.SnapRoot, "a.txt")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	fi, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), fi.Mode().Perm())
	require.True(t, fi.ModTime().Equal(mtime))
}

func TestReuseCreatesHardLink(t *testing.T) {
	prev := t.TempDir()
	writeFile(t, filepath.Join(prev, "a.txt"), "shared")

	b, src := newBuilder(t, prev)
	writeFile(t, filepath.Join(src, "a.txt"), "shared")

	d, n := b.Place(snapshot.LinkDecision{Entry: scanOne(t, src), Action: snapshot.DecisionReuse})
	require.Equal(t, snapshot.DecisionReuse, d.Action)
	require.Zero(t, n)

	prevInfo, err := os.Stat(filepath.Join(prev, "a.txt"))
	require.NoError(t, err)
	dstInfo, err := os.Stat(filepath.Join(b.SnapRoot, "a.txt"))
	require.NoError(t, err)
	require.True(t, os.SameFile(prevInfo, dstInfo), "reuse must not duplicate storage")
}

func TestReuseDegradesToCopyWhenLinkFails(t *testing.T) {
	// prior snapshot lacks the file, so link(2) cannot succeed
	b, src := newBuilder(t, t.TempDir())
	writeFile(t, filepath.Join(src, "a.txt"), "fresh")

	d, n := b.Place(snapshot.LinkDecision{Entry: scanOne(t, src), Action: snapshot.DecisionReuse})
	require.Equal(t, snapshot.DecisionCopy, d.Action)
	require.NotEmpty(t, d.Reason)
	require.Equal(t, int64(len("fresh")), n)

	data, err := os.ReadFile(filepath.Join(b.SnapRoot, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "fresh", string(data))
}

func TestPlaceSymlink(t *testing.T) {
	b, src := newBuilder(t, "")
	require.NoError(t, os.Symlink("somewhere", filepath.Join(src, "l")))

	d, _ := b.Place(snapshot.LinkDecision{Entry: scanOne(t, src), Action: snapshot.DecisionCopy})
	require.Equal(t, snapshot.DecisionCopy, d.Action)

	target, err := os.Readlink(filepath.Join(b.SnapRoot, "l"))
	require.NoError(t, err)
	require.Equal(t, "somewhere", target)
}

func TestDirStaysWritableUntilMetadataRestore(t *testing.T) {
	b, src := newBuilder(t, "")
	require.NoError(t, os.Mkdir(filepath.Join(src, "ro"), 0o555))
	t.Cleanup(func() { os.Chmod(filepath.Join(src, "ro"), 0o755) })

	entries, _, err := snapshot.Scan(src)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, b.MakeDir(entries[0]))

	fi, err := os.Stat(filepath.Join(b.SnapRoot, "ro"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), fi.Mode().Perm(), "mirrored dir must accept copies during the run")

	b.RestoreDirMetadata(entries)
	t.Cleanup(func() { os.Chmod(filepath.Join(b.SnapRoot, "ro"), 0o755) })

	fi, err = os.Stat(filepath.Join(b.SnapRoot, "ro"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o555), fi.Mode().Perm())
	require.True(t, fi.ModTime().Equal(entries[0].ModTime))
}

func TestCopyReflectsFileChangedAfterScan(t *testing.T) {
	b, src := newBuilder(t, "")
	path := filepath.Join(src, "a.txt")
	writeFile(t, path, "short")
	entry := scanOne(t, src)

	// grow the file after the scan, before placement
	writeFile(t, path, "grown after the scan")
	later := entry.ModTime.Add(3 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	d, n := b.Place(snapshot.LinkDecision{Entry: entry, Action: snapshot.DecisionCopy})
	require.Equal(t, snapshot.DecisionCopy, d.Action)
	require.Equal(t, int64(len("grown after the scan")), n)
	require.Equal(t, n, d.Entry.Size)
	require.True(t, d.Entry.ModTime.Equal(later))

	// the recorded manifest and a tree walk must agree on the stored bytes
	got, err := snapshot.ManifestFromTree(b.SnapRoot)
	require.NoError(t, err)
	require.Equal(t, snapshot.ManifestFromDecisions([]snapshot.LinkDecision{d}), got)
}

func TestMakeRootFailsWithoutParent(t *testing.T) {
	b := &snapshot.Builder{SnapRoot: filepath.Join(t.TempDir(), "missing", "snap")}
	require.Error(t, b.MakeRoot())
}
