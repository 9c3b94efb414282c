package snapshot

import (
	"os"
	"time"
)

// Kind classifies a source tree entry.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	}
	return "unknown"
}

// SourceEntry is the immutable state of one source tree entry at scan time.
// Path is relative to the source root.
type SourceEntry struct {
	Path       string
	Kind       Kind
	Size       int64
	ModTime    time.Time
	Mode       os.FileMode
	LinkTarget string // symlinks only
}

// Decision is the action taken for one entry when building the snapshot.
type Decision int

const (
	// DecisionReuse references the prior snapshot's stored copy (hard link).
	DecisionReuse Decision = iota
	// DecisionCopy duplicates content into the new snapshot.
	DecisionCopy
	// DecisionSkip excludes the entry and records a warning.
	DecisionSkip
)

func (d Decision) String() string {
	switch d {
	case DecisionReuse:
		return "reuse"
	case DecisionCopy:
		return "copy"
	case DecisionSkip:
		return "skip"
	}
	return "unknown"
}

// LinkDecision pairs an entry with the action chosen for it.
type LinkDecision struct {
	Entry  SourceEntry
	Action Decision
	Reason string // set for skips and degradations
}

// Warning is a recoverable per-entry issue, reported in the run summary.
type Warning struct {
	Path    string
	Message string
}
