package list

import (
	"flag"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/cli"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
	"github.com/keshon/psnap/internal/logging"
)

// Command prints the snapshot history of a destination.
type Command struct{}

func (c *Command) Name() string      { return "list" }
func (c *Command) Usage() string     { return "list [--log-level L] <destination_root>" }
func (c *Command) Brief() string     { return "List snapshots of a destination" }
func (c *Command) Aliases() []string { return []string{"ls"} }
func (c *Command) Help() string {
	return `List all snapshots recorded for <destination_root>, oldest first.

History is read from the record files under .psnap/records; snapshot
directories without a record (taken before the record store existed) are
recovered from their names.`
}

func (c *Command) Run(ctx *cli.Context) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "info", "")

	if err := fs.Parse(ctx.Args); err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}
	if fs.NArg() != 1 {
		return errors.Wrap(errdefs.ErrInput, "expected <destination_root>")
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
	records, err := cat.List()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Created", "Status", "Files", "Reused", "Copied", "Skipped", "Written"})
	for _, r := range records {
		table.Append([]string{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			string(r.Status),
			itoa(r.Files),
			itoa(r.Reused),
			itoa(r.Copied),
			itoa(r.Skipped),
			humanize.Bytes(uint64(r.BytesCopied)),
		})
	}
	table.Render()
	return nil
}

func itoa(n int) string {
	return humanize.Comma(int64(n))
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithArgsDebug(), cli.WithLockWarning()))
}
