package amqp

import (
	"encoding/json"
	"time"

	"costs/internal/core"
)

// CostRecordedMessage announces a newly stored cost. Amounts are in the
// cost's own currency, never converted.
type CostRecordedMessage struct {
	ID        int64     `json:"id"`
	Sum       float64   `json:"sum"`
	Currency  string    `json:"currency"`
	Category  string    `json:"category"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCostRecordedMessage builds the message for item.
func NewCostRecordedMessage(item core.CostItem) *CostRecordedMessage {
	return &CostRecordedMessage{
		ID:        item.ID,
		Sum:       item.Sum,
		Currency:  item.Currency,
		Category:  item.Category,
		Year:      item.Year,
		Month:     item.Month,
		Day:       item.Day,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *CostRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CostRecordedMessageFromJSON decodes a message published by PublishCostRecorded.
func CostRecordedMessageFromJSON(data []byte) (*CostRecordedMessage, error) {
	var msg CostRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
