package cli

import (
	log "github.com/sirupsen/logrus"

	"github.com/keshon/psnap/internal/catalog"
	"github.com/keshon/psnap/internal/fsio"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx *Context) error
}

func (w *wrappedCommand) Run(ctx *Context) error {
	if w.wrap != nil {
		return w.wrap(ctx)
	}
	return w.Command.Run(ctx)
}

// ApplyMiddlewares wraps a command with any number of middlewares
func ApplyMiddlewares(cmd Command, mws ...Middleware) Command {
	for _, mw := range mws {
		cmd = mw(cmd)
	}
	return cmd
}

// WithArgsDebug logs the raw arguments before running the command.
func WithArgsDebug() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *Context) error {
				log.WithField("args", ctx.Args).Debugf("running %s", cmd.Name())
				return cmd.Run(ctx)
			},
		}
	}
}

// WithLockWarning warns when the destination (the command's last positional
// argument) still carries a run lock, before running a read-only command.
func WithLockWarning() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *Context) error {
				if dest := lastPositional(ctx.Args); dest != "" && fsio.IsDir(dest) {
					if cat, err := catalog.Open(dest); err == nil {
						if locked, holder := cat.Locked(); locked {
							log.Warningf("destination has an active or stale lock: %s", holder)
						}
					}
				}
				return cmd.Run(ctx)
			},
		}
	}
}

func lastPositional(args []string) string {
	for i := len(args) - 1; i >= 0; i-- {
		if len(args[i]) > 0 && args[i][0] != '-' {
			return args[i]
		}
	}
	return ""
}
