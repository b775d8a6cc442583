// Package sqs provides an Amazon SQS driver.
package sqs

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazonsqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/miladsoleymani/qmux/core"
	"github.com/miladsoleymani/qmux/driver"
)

// Transport is the name this plugin registers under.
const Transport = "sqs"

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

func init() {
	driver.Register(Transport, func(ctx context.Context, cfg driver.Config) (core.Driver, error) {
		return New(ctx, optsFromConfig(cfg)...)
	})
}

// API is the part of the SQS client the driver uses.
type API interface {
	CreateQueue(ctx context.Context, in *amazonsqs.CreateQueueInput, optFns ...func(*amazonsqs.Options)) (*amazonsqs.CreateQueueOutput, error)
	GetQueueUrl(ctx context.Context, in *amazonsqs.GetQueueUrlInput, optFns ...func(*amazonsqs.Options)) (*amazonsqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, in *amazonsqs.SendMessageInput, optFns ...func(*amazonsqs.Options)) (*amazonsqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, in *amazonsqs.ReceiveMessageInput, optFns ...func(*amazonsqs.Options)) (*amazonsqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *amazonsqs.DeleteMessageInput, optFns ...func(*amazonsqs.Options)) (*amazonsqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, in *amazonsqs.ChangeMessageVisibilityInput, optFns ...func(*amazonsqs.Options)) (*amazonsqs.ChangeMessageVisibilityOutput, error)
}

// Driver implements core.Driver for Amazon SQS.
//
// Design decisions:
//   - Queue names are resolved to URLs once and cached.
//   - Subscribe long-polls ReceiveMessage until the context is cancelled.
//   - Ack and Reject delete the message; Nack resets its visibility timeout.
//   - A handler error leaves the message invisible until its timeout expires.
type Driver struct {
	api  API
	opts options

	mu     sync.Mutex
	urls   map[string]string
	closed bool
}

// New loads the AWS configuration and creates an SQS Driver.
func New(ctx context.Context, fns ...Option) (*Driver, error) {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.region)}
	if opts.accessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			staticCredentialsProvider(opts.accessKeyID, opts.secretAccessKey),
		))
	}
	awsCfg, err := DefaultConfigLoader(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("qmux/sqs: load aws config: %w", err)
	}

	client := amazonsqs.NewFromConfig(awsCfg, func(o *amazonsqs.Options) {
		if opts.endpoint != "" {
			o.BaseEndpoint = aws.String(opts.endpoint)
		}
	})
	return &Driver{api: client, opts: opts, urls: make(map[string]string)}, nil
}

// NewWithAPI creates a Driver on top of an existing client.
func NewWithAPI(api API, fns ...Option) *Driver {
	opts := defaults()
	for _, fn := range fns {
		fn(&opts)
	}
	return &Driver{api: api, opts: opts, urls: make(map[string]string)}
}

// SetupBroker creates every configured queue. CreateQueue is idempotent
// as long as the attributes match.
func (d *Driver) SetupBroker(ctx context.Context) error {
	if err := d.checkOpen(); err != nil {
		return err
	}

	var attrs map[string]string
	if d.opts.visibilityTimeout > 0 {
		attrs = map[string]string{
			string(types.QueueAttributeNameVisibilityTimeout): strconv.Itoa(int(d.opts.visibilityTimeout.Seconds())),
		}
	}

	for _, queue := range d.opts.queues {
		out, err := d.api.CreateQueue(ctx, &amazonsqs.CreateQueueInput{
			QueueName:  aws.String(queue),
			Attributes: attrs,
		})
		if err != nil {
			return fmt.Errorf("qmux/sqs: create queue %q: %w", queue, err)
		}
		d.mu.Lock()
		d.urls[queue] = aws.ToString(out.QueueUrl)
		d.mu.Unlock()
	}
	return nil
}

// Publish sends a message to the named queue.
func (d *Driver) Publish(ctx context.Context, topic string, msg core.Message) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	queueURL, err := d.queueURL(ctx, topic)
	if err != nil {
		return err
	}

	var attrs map[string]types.MessageAttributeValue
	if props := msg.Properties(); len(props) > 0 {
		attrs = make(map[string]types.MessageAttributeValue, len(props))
		for k, v := range props {
			attrs[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	if _, err := d.api.SendMessage(ctx, &amazonsqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(string(msg.Value())),
		MessageAttributes: attrs,
	}); err != nil {
		return fmt.Errorf("qmux/sqs: publish to %q: %w", topic, err)
	}
	return nil
}

// Subscribe polls the named queue and blocks, delivering messages to the
// handler until the context is cancelled.
func (d *Driver) Subscribe(ctx context.Context, topic string, handler core.Handler) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	queueURL, err := d.queueURL(ctx, topic)
	if err != nil {
		return err
	}

	for {
		out, err := d.api.ReceiveMessage(ctx, &amazonsqs.ReceiveMessageInput{
			QueueUrl:              aws.String(queueURL),
			MaxNumberOfMessages:   d.opts.maxMessages,
			WaitTimeSeconds:       int32(d.opts.waitTime.Seconds()),
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil // graceful shutdown
			}
			return fmt.Errorf("qmux/sqs: receive from %q: %w", topic, err)
		}

		for _, raw := range out.Messages {
			msg := &message{ctx: ctx, api: d.api, queueURL: queueURL, raw: raw}
			_ = handler(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
		if d.checkOpen() != nil {
			return nil
		}
	}
}

// Close marks the driver closed. The SQS client holds no connection of its own.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Driver) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return core.ErrBrokerClosed
	}
	return nil
}

func (d *Driver) queueURL(ctx context.Context, queue string) (string, error) {
	d.mu.Lock()
	u, ok := d.urls[queue]
	d.mu.Unlock()
	if ok {
		return u, nil
	}

	out, err := d.api.GetQueueUrl(ctx, &amazonsqs.GetQueueUrlInput{QueueName: aws.String(queue)})
	if err != nil {
		return "", fmt.Errorf("qmux/sqs: resolve queue %q: %w", queue, err)
	}
	u = aws.ToString(out.QueueUrl)

	d.mu.Lock()
	d.urls[queue] = u
	d.mu.Unlock()
	return u, nil
}

func staticCredentialsProvider(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			Source:          "qmux",
		}, nil
	})
}

// optsFromConfig extracts options from driver.Config.
func optsFromConfig(cfg driver.Config) []Option {
	opts := []Option{WithQueues(cfg.Queues...)}
	if len(cfg.Brokers) > 0 {
		opts = append(opts, WithEndpoint(cfg.Brokers[0]))
	}
	if v, ok := cfg.String("region"); ok {
		opts = append(opts, WithRegion(v))
	}
	id, okID := cfg.String("access_key_id")
	secret, okSecret := cfg.String("secret_access_key")
	if okID && okSecret {
		opts = append(opts, WithCredentials(id, secret))
	}
	if v, ok := cfg.Int("max_messages"); ok {
		opts = append(opts, WithMaxMessages(int32(v)))
	}
	return opts
}
