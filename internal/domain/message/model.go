package message

import (
	"time"

	"github.com/google/uuid"
)

// Message maps to the messages table: a one-way note from sender to
// receiver, optionally commenting on one of the receiver's measurements.
type Message struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	SenderID      uuid.UUID  `db:"sender_id" json:"sender_id"`
	ReceiverID    uuid.UUID  `db:"receiver_id" json:"receiver_id"`
	Body          string     `db:"body" json:"body"`
	HasRead       bool       `db:"has_read" json:"has_read"`
	MeasurementID *uuid.UUID `db:"measurement_id" json:"measurement_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
