package model

// LogRecord is an ABI-encoded pool event as written to the journal.
type LogRecord struct {
	ID         string   `json:"id"`
	Address    string   `json:"address"`
	EventName  string   `json:"event_name"`
	Topics     []string `json:"topics"`
	Data       string   `json:"data"`
	Timestamp  uint64   `json:"timestamp"`
	RecordedAt string   `json:"recorded_at"`
}
