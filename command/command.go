// Package command implements the operator commands of the qmux binary.
package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Command is a single operator invocation such as qmux:setup-broker.
type Command interface {
	// Name is the canonical command name.
	Name() string
	// Aliases are short alternative names.
	Aliases() []string
	// Flags returns a fresh flag set describing the command options.
	Flags() *flag.FlagSet
	// Run executes the command. args excludes the command name.
	Run(ctx context.Context, args []string, out io.Writer) error
}

// ErrUnknownCommand is returned by App.Run for names no command answers to.
var ErrUnknownCommand = errors.New("qmux: unknown command")

// App dispatches invocations to commands by name or alias.
type App struct {
	commands []Command
}

// NewApp creates an App serving cmds.
func NewApp(cmds ...Command) *App {
	return &App{commands: cmds}
}

// Find returns the command answering to name.
func (a *App) Find(name string) (Command, bool) {
	for _, c := range a.commands {
		if c.Name() == name {
			return c, true
		}
		for _, alias := range c.Aliases() {
			if alias == name {
				return c, true
			}
		}
	}
	return nil, false
}

// Run executes the command named by args[0] with the remaining arguments.
func (a *App) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: none given; available: %s", ErrUnknownCommand, strings.Join(a.names(), ", "))
	}
	c, ok := a.Find(args[0])
	if !ok {
		return fmt.Errorf("%w %q; available: %s", ErrUnknownCommand, args[0], strings.Join(a.names(), ", "))
	}
	return c.Run(ctx, args[1:], out)
}

func (a *App) names() []string {
	names := make([]string, 0, len(a.commands))
	for _, c := range a.commands {
		names = append(names, c.Name())
	}
	sort.Strings(names)
	return names
}

// parse parses args against fs and rejects more than maxArgs positional arguments.
func parse(fs *flag.FlagSet, args []string, maxArgs int) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%s: %w", fs.Name(), err)
	}
	if fs.NArg() > maxArgs {
		return nil, fmt.Errorf("%s: unexpected arguments %q", fs.Name(), fs.Args()[maxArgs:])
	}
	return fs.Args(), nil
}
