package protocol

import (
	"encoding/json"
	"time"
)

// AlertEvent is the message published when a weather index alert is
// created. It carries everything the notification service needs to render
// an email without a database round-trip.
type AlertEvent struct {
	AlertID    string    `json:"alert_id"`
	Region     string    `json:"region"`
	Level      string    `json:"level"`
	LevelName  string    `json:"level_name"`
	IndexValue float64   `json:"index_value"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// EncodeAlertEvent encodes an AlertEvent to JSON
func EncodeAlertEvent(event *AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeAlertEvent decodes JSON to AlertEvent
func DecodeAlertEvent(data []byte) (*AlertEvent, error) {
	var event AlertEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
