// Command qmux provisions brokers, consumes queues and sends command
// messages for the configured clients.
//
//	qmux [-config qmux.json] qmux:setup-broker [--client=<id>]
//	qmux [-config qmux.json] qmux:consume [--client=<id>] [--queue=a,b]
//	qmux [-config qmux.json] qmux:send [--client=<id>] --queue=<q> --processor=<name> <body>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miladsoleymani/qmux/client"
	"github.com/miladsoleymani/qmux/command"
	"github.com/miladsoleymani/qmux/config"
	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/core/middleware"
	"github.com/miladsoleymani/qmux/driver"
	"github.com/miladsoleymani/qmux/metrics"
	"github.com/miladsoleymani/qmux/processor"

	// Import plugins to trigger self-registration via init()
	_ "github.com/miladsoleymani/qmux/plugins/kafka"
	_ "github.com/miladsoleymani/qmux/plugins/memory"
	_ "github.com/miladsoleymani/qmux/plugins/nats"
	_ "github.com/miladsoleymani/qmux/plugins/rabbitmq"
	_ "github.com/miladsoleymani/qmux/plugins/sqs"
)

const flushTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("qmux", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", os.Getenv("QMUX_CONFIG"), "path to the JSON configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("qmux: invalid configuration: %w", err)
	}

	log := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	log.Debug("configuration loaded", "config", cfg.String())

	store, err := driver.Build(ctx, cfg.Namespace, cfg.Clients)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("close drivers", "err", err)
		}
	}()
	mux := driver.NewMultiplexer(store, cfg.Namespace, cfg.DefaultClient)

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	if err := collector.Register(); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, log)
		defer srv.Shutdown(context.WithoutCancel(ctx))
	}

	reg := processor.NewRegistry(map[string]core.Processor{
		"log": logProcessor(log),
	})
	delegate := processor.NewDelegate(reg, cfg.RoutingProperty)

	queues := func(clientID string) []string {
		if clientID == "" {
			clientID = cfg.DefaultClient
		}
		return cfg.Clients[clientID].Queues
	}

	send := command.NewSend(mux, cfg.RoutingProperty)
	app := command.NewApp(
		command.NewSetupBroker(mux),
		command.NewConsume(mux, queues, delegate, log,
			middleware.Recovery(log),
			middleware.Tracing(nil),
			middleware.Metrics(collector),
			middleware.Logging(log),
		),
		send,
	)

	runErr := app.Run(ctx, fs.Args(), stdout)

	// Spooled messages go out even when the run was interrupted.
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	flushErr := client.NewFlushListener(send, log).FlushMessages(flushCtx)

	return errors.Join(runErr, flushErr)
}

func serveMetrics(addr string, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "err", err)
		}
	}()
	return srv
}

// logProcessor acknowledges every message after logging it. It is the
// processor named "log" available to every deployment.
func logProcessor(log *slog.Logger) core.Processor {
	return core.ProcessorFunc(func(c core.Context) (core.Result, error) {
		log.InfoContext(c.Context(), "message received",
			"queue", c.Queue(),
			"message_id", c.Property(client.MessageIDProperty),
			"body", string(c.Value()),
		)
		return core.Ack(), nil
	})
}
