package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
)

// Scan walks the source tree depth-first and returns entries in lexical
// order, parents before children. Unreadable entries become warnings, not
// failures; only a failure on the source root itself is fatal.
func Scan(srcRoot string) ([]SourceEntry, []Warning, error) {
	fi, err := fsio.StatFile(srcRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.Wrapf(errdefs.ErrInput, "source directory %q does not exist", srcRoot)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.Wrapf(errdefs.ErrPermission, "source directory %q is not readable", srcRoot)
		}
		return nil, nil, errors.Wrapf(errdefs.ErrInput, "stat source %q: %v", srcRoot, err)
	}
	if !fi.IsDir() {
		return nil, nil, errors.Wrapf(errdefs.ErrInput, "source %q is not a directory", srcRoot)
	}

	var entries []SourceEntry
	var warnings []Warning

	walkErr := filepath.WalkDir(srcRoot, func(path string, d fs.DirEntry, err error) error {
		rel, relErr := filepath.Rel(srcRoot, path)
		if relErr != nil {
			rel = path
		}

		if err != nil {
			if rel == "." {
				if os.IsPermission(err) {
					return errors.Wrapf(errdefs.ErrPermission, "source root %q: %v", srcRoot, err)
				}
				return errors.Wrapf(errdefs.ErrInput, "source root %q: %v", srcRoot, err)
			}
			warnings = append(warnings, Warning{Path: rel, Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if rel == "." {
			return nil
		}

		entry, werr := makeEntry(path, rel, d)
		if werr != nil {
			warnings = append(warnings, Warning{Path: rel, Message: werr.Error()})
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if walkErr != nil {
		return nil, warnings, walkErr
	}

	log.WithFields(log.Fields{
		"source":   srcRoot,
		"entries":  len(entries),
		"warnings": len(warnings),
	}).Debug("source scan complete")

	return entries, warnings, nil
}

func makeEntry(path, rel string, d fs.DirEntry) (SourceEntry, error) {
	info, err := fsio.LstatFile(path)
	if err != nil {
		return SourceEntry{}, err
	}

	e := SourceEntry{
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		e.Kind = KindSymlink
		target, err := fsio.Readlink(path)
		if err != nil {
			return SourceEntry{}, err
		}
		e.LinkTarget = target
		e.Size = 0
	case info.IsDir():
		e.Kind = KindDir
		e.Size = 0
	case info.Mode().IsRegular():
		e.Kind = KindFile
	default:
		// sockets, devices, fifos: not representable in a snapshot
		return SourceEntry{}, errors.Errorf("unsupported entry type %s", info.Mode())
	}
	return e, nil
}
