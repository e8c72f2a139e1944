package exchange

import "github.com/sirupsen/logrus"

// Event names emitted by the client.
const (
	EventRequestSent    = "request_sent"
	EventResponse       = "response_received"
	EventPayloadWrapped = "payload_unwrapped"
	EventRecordDropped  = "record_dropped"
	EventHistoryFetched = "history_fetched"
	EventFetchFailed    = "fetch_failed"
)

// Event is a structured diagnostic emitted during a fetch.
type Event struct {
	Name   string
	Fields map[string]any
}

// Observer receives client events. Implementations must be safe for
// concurrent use.
type Observer interface {
	Observe(Event)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// LogObserver writes events to a logrus logger.
type LogObserver struct {
	log logrus.FieldLogger
}

func NewLogObserver(log logrus.FieldLogger) *LogObserver {
	return &LogObserver{log: log.WithField("component", "exchange")}
}

func (o *LogObserver) Observe(e Event) {
	entry := o.log.WithFields(logrus.Fields(e.Fields))
	switch e.Name {
	case EventFetchFailed:
		entry.Error(e.Name)
	case EventRecordDropped:
		entry.Warn(e.Name)
	case EventHistoryFetched:
		entry.Info(e.Name)
	default:
		entry.Debug(e.Name)
	}
}

// maskKey keeps only the first four characters of an API key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
