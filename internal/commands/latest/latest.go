package latest

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/cli"
	"github.com/keshon/psnap/internal/errdefs"
	"github.com/keshon/psnap/internal/fsio"
)

// Command prints the id of the newest complete snapshot.
type Command struct{}

func (c *Command) Name() string      { return "latest" }
func (c *Command) Usage() string     { return "latest <destination_root>" }
func (c *Command) Brief() string     { return "Print the newest complete snapshot id" }
func (c *Command) Aliases() []string { return nil }
func (c *Command) Help() string {
	return "Print the id of the most recent complete snapshot under <destination_root>.\nExits non-zero when no complete snapshot exists."
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
	rec, ok, err := cat.LatestComplete()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no complete snapshot in %q", destRoot)
	}
	fmt.Println(rec.ID)
	return nil
}

func init() {
	cli.RegisterCommand(cli.ApplyMiddlewares(&Command{}, cli.WithArgsDebug()))
}
