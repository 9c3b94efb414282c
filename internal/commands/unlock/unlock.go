package unlock

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/cli"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
)

// Command removes a leftover run lock after a crashed run.
type Command struct{}

func (c *Command) Name() string      { return "unlock" }
func (c *Command) Usage() string     { return "unlock <destination_root>" }
func (c *Command) Brief() string     { return "Remove a leftover run lock" }
func (c *Command) Aliases() []string { return nil }
func (c *Command) Help() string {
	return `Remove the run lock of <destination_root>.

Only use this after confirming no snapshot run is actually active; removing
a live lock allows two runs to interleave in the same destination.`
}

func (c *Command) Run(ctx *cli.Context) error {
	if len(ctx.Args) != 1 {
		return errors.Wrap(errdefs.ErrInput, "expected <destination_root>")
	}
	destRoot := ctx.Args[0]
	if !fsio.IsDir(destRoot) {
		return errors.Wrapf(errdefs.ErrInput, "destination %q is not a directory", destRoot)
	}

	cat, err := catalog.Open(destRoot)
	if err != nil {
		return err
	}
	if locked, holder := cat.Locked(); locked {
		fmt.Printf("Removing lock held by %s\n", holder)
	}
	return cat.Unlock()
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithArgsDebug()))
}
