package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/psnap/internal/cli"
)

// Command shows help information for commands
type Command struct{}

func (c *Command) Name() string      { return "help" }
func (c *Command) Usage() string     { return "help [command]" }
func (c *Command) Brief() string     { return "Show help for commands" }
func (c *Command) Aliases() []string { return []string{"h", "?"} }
func (c *Command) Help() string {
	return "Display detailed help information for a specific command, or list all commands if none is provided."
}

func (c *Command) Run(ctx *cli.Context) error {
	if len(ctx.Args) > 0 {
		return commandHelp(strings.ToLower(ctx.Args[0]))
	}
	return listAllCommands()
}

// commandHelp shows detailed help for a single command
func commandHelp(name string) error {
	cmd, ok := cli.GetCommand(name)
	if !ok {
		fmt.Printf("Unknown command: %s\n", name)
		return nil
	}

	if usage := cmd.Usage(); usage != "" {
		fmt.Printf("\033[90mUsage:\033[0m %s\n\n", usage)
	}
	fmt.Printf("%s\n", cmd.Help())

	if aliases := cmd.Aliases(); len(aliases) > 0 {
		fmt.Printf("\nAliases: %s\n", strings.Join(aliases, ", "))
	}
	return nil
}

// listAllCommands lists all registered commands
func listAllCommands() error {
	commands := cli.AllCommands()
	sort.Slice(commands, func(i, j int) bool {
		return commands[i].Name() < commands[j].Name()
	})

	fmt.Println("Available commands")
	fmt.Println(strings.Repeat("\033[90m─\033[0m", 72))

	for _, cmd := range commands {
		fmt.Printf("%-10s \033[90m%s\033[0m\n", cmd.Name(), cmd.Brief())
	}

	fmt.Println("\nUse 'help <command>' to see detailed usage of a specific command.")
	return nil
}

func init() {
	cli.RegisterCommand(&Command{})
}
