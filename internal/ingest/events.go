package ingest

import "time"

// LineMessage is the payload of the chat-lines topic: one raw chat line from
// a connector, plus where it came from.
type LineMessage struct {
	Line      string    `json:"line"`
	Channel   string    `json:"channel,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ExchangeType distinguishes the kinds of exchange events.
type ExchangeType string

const (
	ExchangeLearn   ExchangeType = "learn"
	ExchangeRespond ExchangeType = "respond"
)

// ExchangeEvent is the payload of the chat-exchanges topic: one learn or
// respond interaction, for downstream archival.
type ExchangeEvent struct {
	Type       ExchangeType `json:"type"`
	Line       string       `json:"line"`
	Response   string       `json:"response,omitempty"`
	Responded  bool         `json:"responded"`
	Learned    bool         `json:"learned"`
	KnownWords int          `json:"known_words"`
	LatencyMs  int64        `json:"latency_ms"`
	Source     string       `json:"source"`
	RequestID  string       `json:"request_id,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
