package snapshot

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/config"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
	"github.com/keshon/psnap/internal/logging"
	"github.com/keshon/psnap/internal/progress"
	"github.com/keshon/psnap/internal/util"
)

// Options configure one snapshot run.
type Options struct {
	Source    string
	DestRoot  string
	Queue     string
	HashCheck bool
	Workers   int
}

// Result summarizes a finished run.
type Result struct {
	Record      *catalog.Record
	Decisions   []LinkDecision
	Warnings    []Warning
	Files       int
	Dirs        int
	Symlinks    int
	Reused      int
	Copied      int
	Skipped     int
	BytesCopied int64
	BytesReused int64
}

// Run drives one snapshot: INIT -> SCANNING -> LINKING -> FINALIZING.
// Per-entry failures degrade to SKIP warnings; structural failures mark the
// record FAILED and abort. Partially written data is left in place.
func Run(opts Options) (*Result, error) {
	if opts.Queue == "" {
		opts.Queue = config.DefaultQueue
	}
	if opts.Workers <= 0 {
		opts.Workers = util.WorkerCount()
	}

	// INIT
	if err := checkSource(opts.Source, opts.DestRoot); err != nil {
		return nil, err
	}

	cat, err := catalog.Open(opts.DestRoot)
	if err != nil {
		return nil, err
	}

	var prevRoot string
	prev, havePrev, err := cat.LatestComplete()
	if err != nil {
		return nil, err
	}
	if havePrev {
		prevRoot = cat.SnapshotDir(prev.ID)
		log.WithField("previous", prev.ID).Debug("comparing against previous snapshot")
	} else {
		log.Debug("no previous complete snapshot, full copy")
	}

	rec, err := cat.Begin(opts.Queue)
	if err != nil {
		return nil, err
	}

	res, runErr := execute(opts, cat, rec, prevRoot)
	if runErr != nil {
		if ferr := cat.Finalize(rec, catalog.StatusFailed); ferr != nil {
			log.WithField("id", rec.ID).Errorf("could not mark run failed: %v", ferr)
		}
		return res, runErr
	}

	rec.Files = res.Files
	rec.Dirs = res.Dirs
	rec.Reused = res.Reused
	rec.Copied = res.Copied
	rec.Skipped = res.Skipped
	rec.BytesCopied = res.BytesCopied
	rec.Manifest = ManifestFromDecisions(res.Decisions)
	if err := cat.Finalize(rec, catalog.StatusComplete); err != nil {
		return res, err
	}
	res.Record = rec
	return res, nil
}

func execute(opts Options, cat *catalog.Catalog, rec *catalog.Record, prevRoot string) (*Result, error) {
	res := &Result{Record: rec}

	// SCANNING
	entries, scanWarnings, err := Scan(opts.Source)
	if err != nil {
		return res, err
	}
	res.Warnings = append(res.Warnings, scanWarnings...)

	// LINKING
	builder := &Builder{
		SourceRoot: opts.Source,
		SnapRoot:   cat.SnapshotDir(rec.ID),
		PrevRoot:   prevRoot,
	}
	if err := builder.MakeRoot(); err != nil {
		return res, err
	}

	cmp := &Comparator{PrevRoot: prevRoot, HashCheck: opts.HashCheck}

	bar := progress.New(len(entries), "Linking "+rec.ID, logging.Interactive())
	defer bar.Finish()

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(opts.Workers)

	for _, e := range entries {
		if e.Kind == KindDir {
			// created synchronously in scan order: a directory exists
			// before any of its children are dispatched below
			if err := builder.MakeDir(e); err != nil {
				_ = g.Wait() // drain in-flight file operations before aborting
				return res, err
			}
			mu.Lock()
			res.Dirs++
			res.Decisions = append(res.Decisions, LinkDecision{Entry: e, Action: DecisionCopy})
			mu.Unlock()
			bar.Increment()
			continue
		}

		entry := e
		g.Go(func() error {
			d := cmp.Decide(entry, opts.Source)
			var written int64
			if d.Action != DecisionSkip {
				d, written = builder.Place(d)
			}

			mu.Lock()
			res.Decisions = append(res.Decisions, d)
			switch entry.Kind {
			case KindFile:
				res.Files++
			case KindSymlink:
				res.Symlinks++
			}
			switch d.Action {
			case DecisionReuse:
				res.Reused++
				res.BytesReused += entry.Size
			case DecisionCopy:
				res.Copied++
				res.BytesCopied += written
			case DecisionSkip:
				res.Skipped++
				res.Warnings = append(res.Warnings, Warning{Path: d.Entry.Path, Message: d.Reason})
			}
			mu.Unlock()
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	builder.RestoreDirMetadata(entries)

	// FINALIZING: deterministic report regardless of completion order
	sort.Slice(res.Decisions, func(i, j int) bool {
		return res.Decisions[i].Entry.Path < res.Decisions[j].Entry.Path
	})
	sort.Slice(res.Warnings, func(i, j int) bool {
		return res.Warnings[i].Path < res.Warnings[j].Path
	})
	for _, w := range res.Warnings {
		log.WithField("path", w.Path).Warning(w.Message)
	}

	return res, nil
}

func checkSource(source, destRoot string) error {
	fi, err := fsio.StatFile(source)
	if err != nil {
		return errors.Wrapf(errdefs.ErrInput, "source directory %q: %v", source, err)
	}
	if !fi.IsDir() {
		return errors.Wrapf(errdefs.ErrInput, "source %q is not a directory", source)
	}

	absSrc, err1 := filepath.Abs(source)
	absDst, err2 := filepath.Abs(destRoot)
	if err1 == nil && err2 == nil {
		if absDst == absSrc || strings.HasPrefix(absDst+string(filepath.Separator), absSrc+string(filepath.Separator)) {
			return errors.Wrapf(errdefs.ErrInput, "destination %q is inside source %q", destRoot, source)
		}
	}
	return nil
}
