package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
	"github.com/miladsoleymani/qmux/processor"
)

// QueueLister returns the queues configured for a client.
type QueueLister func(clientID string) []string

// Consume runs a Router that hands every message on the client's queues to
// the Delegate.
//
//	qmux qmux:consume [--client=<id>] [--queue=a,orders.*]
type Consume struct {
	resolver    driver.Resolver
	queues      QueueLister
	delegate    *processor.Delegate
	middlewares []core.Middleware
	logger      *slog.Logger
}

// NewConsume creates the command. middlewares are applied in order, the
// first being outermost.
func NewConsume(resolver driver.Resolver, queues QueueLister, delegate *processor.Delegate, logger *slog.Logger, middlewares ...core.Middleware) *Consume {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consume{
		resolver:    resolver,
		queues:      queues,
		delegate:    delegate,
		middlewares: middlewares,
		logger:      logger,
	}
}

func (c *Consume) Name() string      { return "qmux:consume" }
func (c *Consume) Aliases() []string { return []string{"qmux:c"} }

func (c *Consume) Flags() *flag.FlagSet {
	fs, _, _ := c.flags()
	return fs
}

func (c *Consume) flags() (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	client := fs.String("client", "", "the client to consume from (default client when empty)")
	queues := fs.String("queue", "", "comma separated queues or patterns over the configured queues (all configured when empty)")
	return fs, client, queues
}

// Run blocks until ctx is done or a subscription fails.
func (c *Consume) Run(ctx context.Context, args []string, out io.Writer) error {
	fs, client, queueFlag := c.flags()
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	d, err := c.resolver.Resolve(*client)
	if err != nil {
		return err
	}

	var configured []string
	if c.queues != nil {
		configured = c.queues(*client)
	}
	queues := configured
	if *queueFlag != "" {
		var values []string
		for _, q := range strings.Split(*queueFlag, ",") {
			if q = strings.TrimSpace(q); q != "" {
				values = append(values, q)
			}
		}
		queues = selectQueues(values, configured)
	}

	r := core.New(d)
	for _, mw := range c.middlewares {
		r.Use(mw)
	}
	for _, q := range queues {
		r.Bind(q, c.delegate)
	}

	c.logger.InfoContext(ctx, "consuming",
		slog.String("client", *client),
		slog.Any("queues", queues),
		slog.String("routing_property", c.delegate.Property()),
	)
	if _, err := fmt.Fprintf(out, "Consuming %s\n", strings.Join(queues, ", ")); err != nil {
		return err
	}
	return r.Start(ctx)
}
