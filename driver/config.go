package driver

// Config holds the transport-agnostic configuration of one client.
// Driver plugins extract the fields they need.
type Config struct {
	// Transport selects the registered Factory (e.g. "kafka", "rabbitmq").
	Transport string `json:"transport"`

	// Brokers is a list of broker addresses or URLs (e.g., "localhost:9092").
	Brokers []string `json:"brokers,omitempty"`

	// Queues are the queue, topic or stream names SetupBroker provisions
	// and the consume command listens on.
	Queues []string `json:"queues,omitempty"`

	// Group is the consumer group ID.
	Group string `json:"group,omitempty"`

	// Extra holds plugin-specific configuration.
	Extra map[string]any `json:"extra,omitempty"`
}

// String returns the Extra value stored under key when it is a string.
func (c Config) String(key string) (string, bool) {
	v, ok := c.Extra[key].(string)
	return v, ok
}

// Int returns the Extra value stored under key as an int. JSON numbers
// decode as float64, so both are accepted.
func (c Config) Int(key string) (int, bool) {
	switch v := c.Extra[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Bool returns the Extra value stored under key when it is a bool.
func (c Config) Bool(key string) (bool, bool) {
	v, ok := c.Extra[key].(bool)
	return v, ok
}
