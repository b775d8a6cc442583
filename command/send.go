package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sync"

	"github.com/miladsoleymani/qmux/client"
	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
)

// Send spools a command message for a processor. Spooled messages are
// delivered by Flush, normally from a client.FlushListener at shutdown.
//
//	qmux qmux:send [--client=<id>] --queue=<queue> --processor=<name> <body>
type Send struct {
	resolver driver.Resolver
	property string

	mu     sync.Mutex
	spools map[core.Driver]*client.SpoolProducer
	order  []core.Driver
}

// NewSend creates the command. routingProperty is stamped with the
// processor name.
func NewSend(resolver driver.Resolver, routingProperty string) *Send {
	return &Send{
		resolver: resolver,
		property: routingProperty,
		spools:   make(map[core.Driver]*client.SpoolProducer),
	}
}

func (c *Send) Name() string      { return "qmux:send" }
func (c *Send) Aliases() []string { return []string{"qmux:s"} }

func (c *Send) Flags() *flag.FlagSet {
	fs, _, _, _ := c.flags()
	return fs
}

func (c *Send) flags() (*flag.FlagSet, *string, *string, *string) {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	clientID := fs.String("client", "", "the client to send through (default client when empty)")
	queue := fs.String("queue", "", "the destination queue")
	proc := fs.String("processor", "", "the processor that handles the message")
	return fs, clientID, queue, proc
}

// Run queues the message; nothing is published until Flush.
func (c *Send) Run(ctx context.Context, args []string, out io.Writer) error {
	fs, clientID, queue, proc := c.flags()
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	if *queue == "" || *proc == "" {
		return fmt.Errorf("%s: --queue and --processor are required", c.Name())
	}
	var body []byte
	if len(rest) == 1 {
		body = []byte(rest[0])
	}

	spool, err := c.spool(*clientID)
	if err != nil {
		return err
	}
	id, err := spool.SendCommand(ctx, *queue, *proc, body)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Message %s queued for %s\n", id, *queue)
	return err
}

// Flush delivers the spooled messages of every client, in the order the
// clients were first used.
func (c *Send) Flush(ctx context.Context) error {
	c.mu.Lock()
	spools := make([]*client.SpoolProducer, len(c.order))
	for i, d := range c.order {
		spools[i] = c.spools[d]
	}
	c.mu.Unlock()

	var errs []error
	for _, s := range spools {
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Send) spool(clientID string) (*client.SpoolProducer, error) {
	d, err := c.resolver.Resolve(clientID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Keyed by driver so "" and the default client's id share one spool.
	s, ok := c.spools[d]
	if !ok {
		s = client.NewSpoolProducer(client.NewProducer(d, c.property))
		c.spools[d] = s
		c.order = append(c.order, d)
	}
	return s, nil
}
