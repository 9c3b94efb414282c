package main

import (
	"fmt"
	"os"

	"github.com/keshon/psnap/internal/cli"
	_ "github.com/keshon/psnap/internal/commands"
	"github.com/keshon/psnap/internal/errdefs"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: psnap <command> [args...]")
		fmt.Println("Available commands:")
		for _, cmd := range cli.AllCommands() {
			fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Brief())
		}
		os.Exit(2)
	}

	cmdName := os.Args[1]
	cmd, ok := cli.GetCommand(cmdName)
	if !ok {
		fmt.Printf("Unknown command: %s\n", cmdName)
		os.Exit(2)
	}

	ctx := &cli.Context{
		Args: os.Args[2:],
	}

	if err := cmd.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errdefs.ExitCode(err))
	}
}
