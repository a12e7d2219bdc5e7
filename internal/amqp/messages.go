package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// EventTransactionCreated is the only event currently published.
const EventTransactionCreated = "transaction.created"

// TransactionSyncMessage asks the worker to mirror one transaction. It only
// carries identifiers; the worker reads the row from the database.
type TransactionSyncMessage struct {
	Event     string    `json:"event"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id, userID string, version int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		Event:     EventTransactionCreated,
		ID:        id,
		UserID:    userID,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON decodes and sanity-checks a message body.
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errors.New("sync message without transaction id")
	}
	if msg.Event == "" {
		msg.Event = EventTransactionCreated
	}
	return &msg, nil
}
