package command

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/miladsoleymani/qmux/driver"
)

// SetupBroker provisions the broker of one client.
//
//	qmux qmux:setup-broker [--client=<id>]
type SetupBroker struct {
	resolver driver.Resolver
}

// NewSetupBroker creates the command on top of resolver.
func NewSetupBroker(resolver driver.Resolver) *SetupBroker {
	return &SetupBroker{resolver: resolver}
}

func (c *SetupBroker) Name() string      { return "qmux:setup-broker" }
func (c *SetupBroker) Aliases() []string { return []string{"qmux:sb"} }

func (c *SetupBroker) Flags() *flag.FlagSet {
	fs, _ := c.flags()
	return fs
}

func (c *SetupBroker) flags() (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	client := fs.String("client", "", "the client whose broker is set up (default client when empty)")
	return fs, client
}

// Run resolves the client's driver and calls its SetupBroker. Errors are
// returned unchanged.
func (c *SetupBroker) Run(ctx context.Context, args []string, out io.Writer) error {
	fs, client := c.flags()
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	if err := driver.SetupBroker(ctx, c.resolver, *client); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "Broker set up")
	return err
}
