package snapshot

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/slices"
)

// The tree manifest is an xxh3-128 digest over the sorted
// "path|size|mtime" lines of a snapshot's regular files. It is recorded at
// finalize time and recomputed by `verify` from the snapshot tree alone.
// Hard links share the source inode and copies preserve timestamps, so
// both derivations agree for an intact snapshot.

func manifestDigest(lines []string) string {
	slices.Sort(lines)
	h := xxh3.New()
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%x", h.Sum128().Bytes())
}

// ManifestFromDecisions derives the manifest from a run's executed
// decisions.
func ManifestFromDecisions(decisions []LinkDecision) string {
	var lines []string
	for _, d := range decisions {
		if d.Entry.Kind != KindFile || d.Action == DecisionSkip {
			continue
		}
		lines = append(lines, manifestLine(d.Entry.Path, d.Entry.Size, d.Entry.ModTime.UnixNano()))
	}
	return manifestDigest(lines)
}

// ManifestFromTree derives the manifest by walking an existing snapshot
// directory.
func ManifestFromTree(root string) (string, error) {
	var lines []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		lines = append(lines, manifestLine(rel, info.Size(), info.ModTime().UnixNano()))
		return nil
	})
	if err != nil {
		return "", err
	}
	return manifestDigest(lines), nil
}

func manifestLine(path string, size, mtime int64) string {
	return fmt.Sprintf("%s|%d|%d", filepath.ToSlash(path), size, mtime)
}
