package snapshot

import (
	"flag"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/keshon/psnap/internal/cli"
	"github.com/keshon/psnap/internal/config"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/logging"
	"github.com/keshon/psnap/internal/snapshot"
)

// Command takes one incremental snapshot of a source tree.
type Command struct{}

func (c *Command) Name() string { return "snapshot" }
func (c *Command) Usage() string {
	return "snapshot [--log-level L] [--hash-check] [--queue NAME] [--workers N] <source_dir> <destination_root>"
}
func (c *Command) Brief() string     { return "Take an incremental snapshot of a directory" }
func (c *Command) Aliases() []string { return []string{"snap", "s"} }
func (c *Command) Help() string {
	return `Create a new point-in-time snapshot of <source_dir> under <destination_root>.

Files unchanged since the previous complete snapshot (same size and
modification time) are hard-linked to the stored copy instead of being
duplicated. Changed and new files are copied byte-for-byte, preserving
permissions and timestamps.

  --log-level   debug, info, warning or error (default info)
  --hash-check  also require matching content digests for reuse (slower)
  --queue       queue name prefix for the snapshot id (default "snap")
  --workers     number of parallel file workers (default: CPU count)

Flags not given on the command line fall back to the destination's
.psnap.yml, then to defaults.`
}

func (c *Command) Run(ctx *cli.Context) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "info", "")
	hashCheck := fs.Bool("hash-check", false, "")
	queue := fs.String("queue", "", "")
	workers := fs.Int("workers", 0, "")

	if err := fs.Parse(ctx.Args); err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}
	if fs.NArg() != 2 {
		return errors.Wrapf(errdefs.ErrInput, "expected <source_dir> and <destination_root>, got %d arguments", fs.NArg())
	}
	if err := logging.Setup(*logLevel); err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}

	source, destRoot := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load(destRoot)
	if err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}

	opts := snapshot.Options{
		Source:    source,
		DestRoot:  destRoot,
		Queue:     *queue,
		HashCheck: *hashCheck || cfg.HashCheck,
		Workers:   *workers,
	}
	if opts.Workers <= 0 {
		opts.Workers = cfg.Workers
	}

	res, err := snapshot.Run(opts)
	if err != nil {
		return err
	}

	printSummary(res)
	return nil
}

func printSummary(res *snapshot.Result) {
	fmt.Printf("Snapshot %s complete\n", res.Record.ID)
	fmt.Printf("  files:    %d (%d dirs, %d symlinks)\n", res.Files, res.Dirs, res.Symlinks)
	fmt.Printf("  reused:   %d (%s saved)\n", res.Reused, humanize.Bytes(uint64(res.BytesReused)))
	fmt.Printf("  copied:   %d (%s written)\n", res.Copied, humanize.Bytes(uint64(res.BytesCopied)))
	if res.Skipped > 0 || len(res.Warnings) > 0 {
		fmt.Printf("  skipped:  %d\n", res.Skipped)
		for _, w := range res.Warnings {
			fmt.Printf("    ! %s: %s\n", w.Path, w.Message)
		}
	}
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithArgsDebug()))
}
