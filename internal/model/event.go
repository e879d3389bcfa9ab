package model

import "time"

// OrderEvent is the payload published to Kafka when a submission has been
// processed. Best effort: a publish failure never changes the HTTP outcome.
type OrderEvent struct {
	OrderID    string    `json:"order_id"`
	Name       string    `json:"name"`
	City       string    `json:"city,omitempty"`
	FilesCount int       `json:"files_count"`
	ReceivedAt time.Time `json:"received_at"`
}
