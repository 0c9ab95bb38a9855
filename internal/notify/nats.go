package notify

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes lifecycle messages to a NATS subject, for operators who
// feed supervisor events into their own tooling instead of (or alongside) a
// chat stream. Publishing is fire-and-forget.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

type natsMessage struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// NewNATSSink connects to the NATS server at url. Connection failure is the
// one error surfaced to the caller, at construction time; after that the sink
// honors the non-throwing contract.
func NewNATSSink(url, subject string, logger *slog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("vigil"))
	if err != nil {
		return nil, err
	}

	return &NATSSink{conn: conn, subject: subject, logger: logger}, nil
}

// Send publishes one message. Errors are logged, never propagated.
func (n *NATSSink) Send(topic, content string) {
	data, err := json.Marshal(natsMessage{Topic: topic, Content: content})
	if err != nil {
		n.logger.Warn("nats message marshal failed", "error", err)
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		n.logger.Warn("nats publish failed", "subject", n.subject, "error", err)
	}
}

// Close drains the connection.
func (n *NATSSink) Close() {
	n.conn.Close()
}
