package worker

// Outcome is the acknowledgment decision for a consumed message. Every exit
// path of a pipeline maps to exactly one outcome; the consume loop is the
// only place that talks to the broker about it.
type Outcome int

const (
	// OutcomeAck marks the message as fully processed.
	OutcomeAck Outcome = iota
	// OutcomeRequeue returns the message to the queue for another delivery
	// attempt. Used for plausibly transient failures.
	OutcomeRequeue
	// OutcomeDrop rejects the message permanently. Used for malformed or
	// unprocessable messages so they cannot poison the queue.
	OutcomeDrop
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeRequeue:
		return "nack-requeue"
	case OutcomeDrop:
		return "nack-drop"
	default:
		return "unknown"
	}
}
