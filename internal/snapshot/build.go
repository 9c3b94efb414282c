package snapshot

import (
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
)

// Builder materializes link decisions into the new snapshot tree.
type Builder struct {
	SourceRoot string
	SnapRoot   string
	PrevRoot   string
}

// MakeRoot creates the snapshot root directory. Failure here is structural
// and therefore fatal.
func (b *Builder) MakeRoot() error {
	if err := fsio.Mkdir(b.SnapRoot, 0o755); err != nil {
		return errors.Wrapf(errdefs.ErrStorage, "create snapshot root %q: %v", b.SnapRoot, err)
	}
	return nil
}

// MakeDir creates one directory of the mirrored tree. It stays writable
// while the run populates it; the source's permission bits are applied
// afterwards by RestoreDirMetadata, so files inside a read-only source
// directory can still be copied. Directory failures break the tree's
// structure and are fatal, unlike per-file failures.
func (b *Builder) MakeDir(e SourceEntry) error {
	dst := filepath.Join(b.SnapRoot, e.Path)
	if err := fsio.Mkdir(dst, 0o755); err != nil {
		return errors.Wrapf(errdefs.ErrStorage, "create directory %q: %v", dst, err)
	}
	// umask may have stripped write bits from Mkdir's mode
	if err := fsio.Chmod(dst, 0o755); err != nil {
		return errors.Wrapf(errdefs.ErrStorage, "chmod directory %q: %v", dst, err)
	}
	return nil
}

// Place applies a file or symlink decision and returns the decision as
// actually executed: REUSE degrades to COPY when linking fails, COPY
// degrades to SKIP on I/O errors.
func (b *Builder) Place(d LinkDecision) (LinkDecision, int64) {
	switch d.Entry.Kind {
	case KindSymlink:
		return b.placeSymlink(d), 0
	case KindFile:
		return b.placeFile(d)
	default:
		return d, 0
	}
}

func (b *Builder) placeSymlink(d LinkDecision) LinkDecision {
	dst := filepath.Join(b.SnapRoot, d.Entry.Path)
	if err := fsio.Symlink(d.Entry.LinkTarget, dst); err != nil {
		d.Action = DecisionSkip
		d.Reason = "symlink: " + err.Error()
	}
	return d
}

func (b *Builder) placeFile(d LinkDecision) (LinkDecision, int64) {
	dst := filepath.Join(b.SnapRoot, d.Entry.Path)

	if d.Action == DecisionReuse {
		prev := filepath.Join(b.PrevRoot, d.Entry.Path)
		err := fsio.Link(prev, dst)
		if err == nil {
			return d, 0
		}
		// cross-device layouts or link caps; content is still at hand
		log.WithField("path", d.Entry.Path).Debugf("hard link failed (%v), copying instead", err)
		d.Action = DecisionCopy
		d.Reason = "link failed, copied instead"
	}

	src := filepath.Join(b.SourceRoot, d.Entry.Path)
	n, mtime, err := b.copyFile(src, dst)
	if err != nil {
		d.Action = DecisionSkip
		d.Reason = err.Error()
		return d, 0
	}
	// the file may have changed since the scan; the decision must describe
	// the bytes actually stored, or verify would reject an intact snapshot
	d.Entry.Size = n
	d.Entry.ModTime = mtime
	return d, n
}

// copyFile duplicates content byte-for-byte via a temp file and rename,
// preserving permission bits and the modification timestamp. Metadata comes
// from the open handle, not the scan, so the returned size and mtime match
// the content written.
func (b *Builder) copyFile(src, dst string) (int64, time.Time, error) {
	in, err := fsio.Open(src)
	if err != nil {
		return 0, time.Time{}, err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, time.Time{}, err
	}
	mtime := fi.ModTime()

	tmp, err := fsio.CreateTempFile(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return 0, time.Time{}, err
	}
	tmpPath := tmp.Name()
	defer fsio.Remove(tmpPath)

	n, err := io.Copy(tmp, in)
	if err != nil {
		tmp.Close()
		return 0, time.Time{}, err
	}
	if err := tmp.Close(); err != nil {
		return 0, time.Time{}, err
	}

	if err := fsio.Chmod(tmpPath, fi.Mode().Perm()); err != nil {
		return 0, time.Time{}, err
	}
	if err := fsio.Chtimes(tmpPath, mtime, mtime); err != nil {
		return 0, time.Time{}, err
	}
	if err := fsio.Rename(tmpPath, dst); err != nil {
		return 0, time.Time{}, err
	}
	return n, mtime, nil
}

// RestoreDirMetadata applies directory permission bits and modification
// times after the tree is populated. Entries must be in scan order; walking
// them in reverse touches children before their parents, with no parent
// made read-only before its children are done.
func (b *Builder) RestoreDirMetadata(entries []SourceEntry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind != KindDir {
			continue
		}
		dst := filepath.Join(b.SnapRoot, e.Path)
		if err := fsio.Chmod(dst, e.Mode.Perm()); err != nil {
			log.WithField("path", e.Path).Debugf("set directory mode: %v", err)
		}
		if err := fsio.Chtimes(dst, e.ModTime, e.ModTime); err != nil {
			log.WithField("path", e.Path).Debugf("set directory mtime: %v", err)
		}
	}
}
