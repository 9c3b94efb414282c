package prune

import (
	"flag"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/cli"
	"github.com/keshon/psnap/internal/config"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
	"github.com/keshon/psnap/internal/logging"
)

// Command applies the destination's retention queues to its snapshots.
type Command struct{}

func (c *Command) Name() string      { return "prune" }
func (c *Command) Usage() string     { return "prune [--log-level L] [--dry-run] <destination_root>" }
func (c *Command) Brief() string     { return "Apply retention queues to old snapshots" }
func (c *Command) Aliases() []string { return nil }
func (c *Command) Help() string {
	return `Rotate snapshots through the retention queues configured in the
destination's .psnap.yml, for example:

  queues:
    - {name: daily, age: 1, length: 7}
    - {name: weekly, age: 7, length: 4}

Each queue keeps its newest 'length' snapshots. Older ones are promoted to
the next queue when spaced at least that queue's 'age' days apart, and
deleted otherwise. --dry-run prints the plan without touching anything.`
}

func (c *Command) Run(ctx *cli.Context) error {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	logLevel := fs.String("log-level", "info", "")
	dryRun := fs.Bool("dry-run", false, "")

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

	cfg, err := config.Load(destRoot)
	if err != nil {
		return errors.Wrapf(errdefs.ErrInput, "%v", err)
	}
	if len(cfg.Queues) == 0 {
		fmt.Printf("No retention queues configured in %s, nothing to prune\n", config.ConfigFile)
		return nil
	}

	cat, err := catalog.Open(destRoot)
	if err != nil {
		return err
	}
	actions, err := cat.PlanPrune(cfg.Queues)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		fmt.Println("Nothing to prune")
		return nil
	}

	for _, a := range actions {
		switch a.Op {
		case catalog.OpDelete:
			fmt.Printf("  delete  %s\n", a.Record.ID)
		case catalog.OpPromote:
			fmt.Printf("  promote %s -> %s\n", a.Record.ID, a.ToQueue)
		}
	}
	if *dryRun {
		fmt.Println("Dry run, no changes made")
		return nil
	}
	return cat.ApplyPrune(actions)
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithArgsDebug(), cli.WithLockWarning()))
}
