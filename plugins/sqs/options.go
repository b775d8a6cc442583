package sqs

import "time"

// Option configures the SQS driver.
type Option func(*options)

type options struct {
	region          string
	endpoint        string
	accessKeyID     string
	secretAccessKey string

	queues            []string
	maxMessages       int32
	waitTime          time.Duration
	visibilityTimeout time.Duration
}

func defaults() options {
	return options{
		region:      "us-east-1",
		maxMessages: 10,
		waitTime:    20 * time.Second,
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithEndpoint overrides the service endpoint, e.g. a LocalStack URL.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithCredentials uses static credentials instead of the default chain.
func WithCredentials(accessKeyID, secretAccessKey string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
	}
}

// WithQueues sets the queues created by SetupBroker.
func WithQueues(queues ...string) Option {
	return func(o *options) { o.queues = append(o.queues, queues...) }
}

// WithMaxMessages sets how many messages one receive call may return (1-10).
func WithMaxMessages(n int32) Option {
	return func(o *options) { o.maxMessages = n }
}

// WithWaitTime sets the long-poll duration of a receive call.
func WithWaitTime(d time.Duration) Option {
	return func(o *options) { o.waitTime = d }
}

// WithVisibilityTimeout sets the visibility timeout of created queues.
func WithVisibilityTimeout(d time.Duration) Option {
	return func(o *options) { o.visibilityTimeout = d }
}
