// Package catalog tracks the ordered snapshot history of one destination
// root. State lives entirely inside the destination: record files under
// .psnap/records, a lock file for run mutual exclusion, and the snapshot
// directories themselves, whose names alone are enough to rebuild history.
package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/config"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
	"github.com/keshon/psnap/internal/util"
)

// Status of a snapshot record. A record is never mutated after Finalize.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// namePattern matches snapshot directory names: <queue>-<14-digit timestamp>.
var namePattern = regexp.MustCompile(`^(\w+)-(\d{14})$`)

// Record describes one snapshot run for a destination.
type Record struct {
	ID          string    `json:"id"`
	Queue       string    `json:"queue"`
	CreatedAt   time.Time `json:"created_at"`
	Status      Status    `json:"status"`
	RunToken    string    `json:"run_token,omitempty"`
	Files       int       `json:"files"`
	Dirs        int       `json:"dirs"`
	Reused      int       `json:"reused"`
	Copied      int       `json:"copied"`
	Skipped     int       `json:"skipped"`
	BytesCopied int64     `json:"bytes_copied"`
	Manifest    string    `json:"manifest,omitempty"`
}

type lockInfo struct {
	Token     string    `json:"token"`
	ID        string    `json:"id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// Catalog is the record store rooted at one destination directory.
type Catalog struct {
	Root string
}

// Open prepares the catalog under destRoot, creating the destination root
// and metadata directories when absent.
func Open(destRoot string) (*Catalog, error) {
	if !fsio.Exists(destRoot) {
		log.WithField("destination", destRoot).Info("creating destination root")
	}
	if err := fsio.MkdirAll(filepath.Join(destRoot, config.MetaDir, config.RecordsDir), 0o755); err != nil {
		return nil, errors.Wrapf(errdefs.ErrStorage, "create catalog dirs under %q: %v", destRoot, err)
	}
	return &Catalog{Root: destRoot}, nil
}

func (c *Catalog) metaPath(parts ...string) string {
	return filepath.Join(append([]string{c.Root, config.MetaDir}, parts...)...)
}

func (c *Catalog) recordPath(id string) string {
	return c.metaPath(config.RecordsDir, id+".json")
}

// SnapshotDir returns the on-disk directory of a snapshot id.
func (c *Catalog) SnapshotDir(id string) string {
	return filepath.Join(c.Root, id)
}

// Begin acquires the destination lock and persists a new in-progress
// record. It fails with ErrConcurrency while another run holds the lock.
// Identifiers are strictly increasing: a run starting within the same
// second as the newest record gets an id bumped one second forward.
func (c *Catalog) Begin(queue string) (*Record, error) {
	now := time.Now().Truncate(time.Second)
	if latest, ok, err := c.latestAny(); err != nil {
		return nil, err
	} else if ok && !latest.CreatedAt.Before(now) {
		now = latest.CreatedAt.Add(time.Second)
	}

	hostname, _ := os.Hostname()
	rec := &Record{
		ID:        queue + "-" + now.Format(config.TimestampLayout),
		Queue:     queue,
		CreatedAt: now,
		Status:    StatusInProgress,
		RunToken:  uuid.NewString(),
	}

	lock := lockInfo{
		Token:     rec.RunToken,
		ID:        rec.ID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: now,
	}
	data, err := util.MarshalJSON(lock)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrStorage, "encode lock: %v", err)
	}
	if err := fsio.CreateExclusive(c.metaPath(config.LockFile), data, 0o644); err != nil {
		if os.IsExist(err) {
			holder, _ := c.lockHolder()
			return nil, errors.Wrapf(errdefs.ErrConcurrency,
				"destination %q already has an in-progress run (%s)", c.Root, holder)
		}
		return nil, errors.Wrapf(errdefs.ErrStorage, "create lock in %q: %v", c.Root, err)
	}

	if err := util.WriteJSON(c.recordPath(rec.ID), rec); err != nil {
		fsio.Remove(c.metaPath(config.LockFile))
		return nil, errors.Wrapf(errdefs.ErrStorage, "persist record %q: %v", rec.ID, err)
	}

	log.WithFields(log.Fields{"id": rec.ID, "destination": c.Root}).Debug("run started")
	return rec, nil
}

// Finalize fixes the record's status and releases the lock. The record is
// immutable afterwards.
func (c *Catalog) Finalize(rec *Record, status Status) error {
	rec.Status = status
	if err := util.WriteJSON(c.recordPath(rec.ID), rec); err != nil {
		return errors.Wrapf(errdefs.ErrStorage, "finalize record %q: %v", rec.ID, err)
	}

	var lock lockInfo
	if err := util.ReadJSON(c.metaPath(config.LockFile), &lock); err == nil && lock.Token == rec.RunToken {
		if err := fsio.Remove(c.metaPath(config.LockFile)); err != nil {
			return errors.Wrapf(errdefs.ErrStorage, "release lock for %q: %v", rec.ID, err)
		}
	}

	log.WithFields(log.Fields{"id": rec.ID, "status": status}).Debug("run finalized")
	return nil
}

// LatestComplete returns the most recent complete record, if any.
func (c *Catalog) LatestComplete() (*Record, bool, error) {
	records, err := c.List()
	if err != nil {
		return nil, false, err
	}
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Status == StatusComplete {
			r := records[i]
			return &r, true, nil
		}
	}
	return nil, false, nil
}

// List returns all records ordered by creation time. Snapshot directories
// without a record file (taken by another tool, or predating the record
// store) are recovered from their names and reported as complete.
func (c *Catalog) List() ([]Record, error) {
	byID := map[string]Record{}

	recDir := c.metaPath(config.RecordsDir)
	files, err := fsio.ReadDir(recDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(errdefs.ErrStorage, "read records dir %q: %v", recDir, err)
	}
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		var rec Record
		if err := util.ReadJSON(filepath.Join(recDir, f.Name()), &rec); err != nil {
			log.WithField("record", f.Name()).Warning("unreadable record file, skipping")
			continue
		}
		byID[rec.ID] = rec
	}

	dirs, err := fsio.ReadDir(c.Root)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrStorage, "read destination %q: %v", c.Root, err)
	}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		m := namePattern.FindStringSubmatch(d.Name())
		if m == nil {
			continue
		}
		if _, known := byID[d.Name()]; known {
			continue
		}
		created, err := time.ParseInLocation(config.TimestampLayout, m[2], time.Local)
		if err != nil {
			continue
		}
		byID[d.Name()] = Record{
			ID:        d.Name(),
			Queue:     m[1],
			CreatedAt: created,
			Status:    StatusComplete,
		}
	}

	var records []Record
	for _, id := range util.SortedKeys(byID) {
		records = append(records, byID[id])
	}
	// timestamp-sortable ids make lexical order chronological per queue,
	// but queues interleave, so order explicitly by creation time
	sortRecords(records)
	return records, nil
}

func (c *Catalog) latestAny() (*Record, bool, error) {
	records, err := c.List()
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	r := records[len(records)-1]
	return &r, true, nil
}

// Locked reports whether a run lock is present, with holder details.
func (c *Catalog) Locked() (bool, string) {
	if !fsio.Exists(c.metaPath(config.LockFile)) {
		return false, ""
	}
	holder, _ := c.lockHolder()
	return true, holder
}

// Unlock removes a leftover lock after a crashed run. Never called
// automatically.
func (c *Catalog) Unlock() error {
	path := c.metaPath(config.LockFile)
	if !fsio.Exists(path) {
		return errors.Wrapf(errdefs.ErrInput, "no lock present in %q", c.Root)
	}
	if err := fsio.Remove(path); err != nil {
		return errors.Wrapf(errdefs.ErrStorage, "remove lock %q: %v", path, err)
	}
	return nil
}

func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})
}

func (c *Catalog) lockHolder() (string, error) {
	var lock lockInfo
	if err := util.ReadJSON(c.metaPath(config.LockFile), &lock); err != nil {
		return "unknown holder", err
	}
	return lock.ID + " started " + lock.StartedAt.Format(time.RFC3339), nil
}
