package realtime

import (
	"encoding/json"
	"time"
)

// Event is one message pushed to dashboard subscribers
// ⭐ SSOT: the wire format of the live stream
type Event struct {
	Type      string          `json:"type"`
	AccountID string          `json:"account_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
