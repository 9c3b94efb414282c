// Package errdefs holds the error taxonomy shared by the snapshot engine
// and the catalog. Callers classify failures with errors.Is against these
// sentinels; wrapping preserves the failing path and reason.
package errdefs

import (
	"github.com/pkg/errors"
)

var (
	// ErrInput marks bad arguments or a missing/invalid source directory.
	ErrInput = errors.New("invalid input")

	// ErrPermission marks an unreadable entry. Entry-level occurrences
	// degrade to SKIP; a permission failure on the source root is fatal.
	ErrPermission = errors.New("permission denied")

	// ErrStorage marks an unwritable destination. Always fatal.
	ErrStorage = errors.New("storage failure")

	// ErrConcurrency marks an overlapping run against the same destination.
	ErrConcurrency = errors.New("concurrent run")
)

// ExitCode maps an error to the process exit code:
// 0 done, 1 failed, 2 invalid arguments.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInput):
		return 2
	default:
		return 1
	}
}
