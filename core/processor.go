package core

// Status tells the transport how to settle a processed message.
type Status string

const (
	// StatusAck removes the message from the queue.
	StatusAck Status = "ack"
	// StatusReject drops the message without redelivery.
	StatusReject Status = "reject"
	// StatusRequeue returns the message to the queue for redelivery.
	StatusRequeue Status = "requeue"
)

// Result is the outcome of processing a message.
type Result struct {
	Status Status
	// Reason is an optional human readable explanation, mostly for reject and requeue.
	Reason string
}

// Ack returns a Result that acknowledges the message.
func Ack() Result { return Result{Status: StatusAck} }

// Reject returns a Result that drops the message.
func Reject(reason string) Result { return Result{Status: StatusReject, Reason: reason} }

// Requeue returns a Result that asks the broker to redeliver the message.
func Requeue(reason string) Result { return Result{Status: StatusRequeue, Reason: reason} }

func (r Result) String() string {
	if r.Reason == "" {
		return string(r.Status)
	}
	return string(r.Status) + ": " + r.Reason
}

// Processor handles a single message and decides how it is settled.
// Errors returned by a Processor belong to the Processor and are passed
// to the transport untouched.
type Processor interface {
	Process(c Context) (Result, error)
}

// ProcessorFunc adapts an ordinary function to the Processor interface so
// inline logic can be registered without declaring a type.
//
//	reg.Add("orders.created", core.ProcessorFunc(func(c core.Context) (core.Result, error) {
//	    var order Order
//	    if err := c.Bind(&order); err != nil {
//	        return core.Reject(err.Error()), nil
//	    }
//	    return core.Ack(), nil
//	}))
type ProcessorFunc func(c Context) (Result, error)

// Process calls f(c).
func (f ProcessorFunc) Process(c Context) (Result, error) {
	return f(c)
}

// Middleware wraps a Processor to add cross-cutting behavior.
//
//	func MyMiddleware() core.Middleware {
//	    return func(next core.Processor) core.Processor {
//	        return core.ProcessorFunc(func(c core.Context) (core.Result, error) {
//	            // before
//	            res, err := next.Process(c)
//	            // after
//	            return res, err
//	        })
//	    }
//	}
type Middleware func(Processor) Processor
