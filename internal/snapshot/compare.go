package snapshot

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/fsio"
)

// Comparator decides whether a source entry can reuse the stored copy in
// the previous complete snapshot. It has no side effects: decisions come
// from the entry plus the prior snapshot's on-disk metadata.
type Comparator struct {
	// PrevRoot is the previous complete snapshot directory; empty when
	// this is the first run against the destination.
	PrevRoot string

	// HashCheck additionally requires matching content digests for REUSE.
	HashCheck bool
}

// Decide returns the LinkDecision for one entry.
//
// Directories and symlinks are always materialized fresh: directories so the
// tree stays navigable on its own, symlinks because linking the link itself
// is not portably expressible. Both are cheap.
func (c *Comparator) Decide(e SourceEntry, srcRoot string) LinkDecision {
	if e.Kind != KindFile {
		return LinkDecision{Entry: e, Action: DecisionCopy}
	}
	if c.PrevRoot == "" {
		return LinkDecision{Entry: e, Action: DecisionCopy}
	}

	prevPath := filepath.Join(c.PrevRoot, e.Path)
	prev, err := fsio.LstatFile(prevPath)
	if err != nil {
		return LinkDecision{Entry: e, Action: DecisionCopy}
	}
	if !prev.Mode().IsRegular() {
		return LinkDecision{Entry: e, Action: DecisionCopy}
	}
	if prev.Size() != e.Size || !prev.ModTime().Equal(e.ModTime) {
		return LinkDecision{Entry: e, Action: DecisionCopy}
	}

	if c.HashCheck {
		srcDigest, err := FileDigest(filepath.Join(srcRoot, e.Path))
		if err != nil {
			return LinkDecision{Entry: e, Action: DecisionSkip, Reason: "unreadable during hash check: " + err.Error()}
		}
		prevDigest, err := FileDigest(prevPath)
		if err != nil {
			// prior copy unreadable; fall back to copying fresh content
			return LinkDecision{Entry: e, Action: DecisionCopy}
		}
		if srcDigest != prevDigest {
			log.WithField("path", e.Path).Debug("metadata match but digest mismatch, copying")
			return LinkDecision{Entry: e, Action: DecisionCopy}
		}
	}

	return LinkDecision{Entry: e, Action: DecisionReuse}
}
