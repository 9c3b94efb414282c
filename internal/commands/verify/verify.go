package verify

import (
	"flag"
	"fmt"
	"io"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/cli"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
	"github.com/keshon/psnap/internal/logging"
	"github.com/keshon/psnap/internal/snapshot"
)

// Command checks a snapshot tree against the manifest recorded when it was
// taken.
type Command struct{}

func (c *Command) Name() string      { return "verify" }
func (c *Command) Usage() string     { return "verify [--log-level L] <destination_root> [snapshot_id]" }
func (c *Command) Brief() string     { return "Verify a snapshot against its recorded manifest" }
func (c *Command) Aliases() []string { return []string{"check"} }
func (c *Command) Help() string {
	return `Recompute the tree manifest of a snapshot and compare it with the
manifest recorded at the end of its run. Without a snapshot_id the newest
complete snapshot is verified.

A mismatch means files inside the snapshot were modified, added or removed
after the run finished.`
}

func (c *Command) Run(ctx *cli.Context) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "info", "")

	if err := fs.Parse(ctx.Args); err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return errors.Wrap(errdefs.ErrInput, "expected <destination_root> [snapshot_id]")
	}
	if err := logging.Setup(*logLevel); err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}

	destRoot := fs.Arg(0)
	if !fsio.IsDir(destRoot) {
		return errors.Wrapf(errdefs.ErrInput, "destination %q is not a directory", destRoot)
	}

	cat, err := catalog.Open(destRoot)
	if err != nil {
		return err
	}

	var rec *catalog.Record
	if fs.NArg() == 2 {
		records, err := cat.List()
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].ID == fs.Arg(1) {
				rec = &records[i]
				break
			}
		}
		if rec == nil {
			return errors.Wrapf(errdefs.ErrInput, "no snapshot %q in %q", fs.Arg(1), destRoot)
		}
	} else {
		latest, ok, err := cat.LatestComplete()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no complete snapshot in %q", destRoot)
		}
		rec = latest
	}

	if rec.Manifest == "" {
		return fmt.Errorf("snapshot %s has no recorded manifest (recovered record?)", rec.ID)
	}

	log.WithField("id", rec.ID).Debug("recomputing tree manifest")
	got, err := snapshot.ManifestFromTree(cat.SnapshotDir(rec.ID))
	if err != nil {
		return errors.Wrapf(errdefs.ErrStorage, "walk snapshot %q: %v", rec.ID, err)
	}

	if got != rec.Manifest {
		return fmt.Errorf("snapshot %s FAILED verification: manifest %s, recorded %s", rec.ID, got, rec.Manifest)
	}
	fmt.Printf("Snapshot %s OK\n", rec.ID)
	return nil
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithArgsDebug()))
}
