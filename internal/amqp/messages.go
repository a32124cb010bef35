package amqp

import (
	"encoding/json"
	"time"
)

// LedgerSyncMessage asks the worker to mirror the ledger. It carries no
// records: the worker reloads the ledger and endpoint from the shared
// database, so a late message still pushes the newest state. Endpoint is
// the value seen at publish time and is informational.
type LedgerSyncMessage struct {
	Revision  int64     `json:"revision"`
	Endpoint  string    `json:"endpoint"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerSyncMessage stamps a message with the current time.
func NewLedgerSyncMessage(revision int64, endpoint string) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		Revision:  revision,
		Endpoint:  endpoint,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerSyncMessageFromJSON creates a message from JSON bytes
func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
