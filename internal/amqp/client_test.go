package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionEventMessage(t *testing.T) {
	msg := NewTransactionEventMessage(42, ActionCreated, 2024, time.March)

	if msg.ID != 42 {
		t.Errorf("NewTransactionEventMessage() ID = %v, want %v", msg.ID, 42)
	}
	if msg.Action != ActionCreated {
		t.Errorf("NewTransactionEventMessage() Action = %v, want %v", msg.Action, ActionCreated)
	}
	if msg.Year != 2024 || msg.Month != 3 {
		t.Errorf("NewTransactionEventMessage() period = %d-%d, want 2024-3", msg.Year, msg.Month)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewTransactionEventMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewTransactionEventMessage() Timestamp should be recent")
	}
}

func TestTransactionEventMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionEventMessage{
		ID:        12345,
		Action:    ActionUpdated,
		Year:      2024,
		Month:     1,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := TransactionEventMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TransactionEventMessageFromJSON() error = %v", err)
	}

	if parsedMsg.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsedMsg.ID, msg.ID)
	}
	if parsedMsg.Action != msg.Action {
		t.Errorf("Parsed Action = %v, want %v", parsedMsg.Action, msg.Action)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestTransactionEventMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"id": "not_a_number", "action": "created"}`)

	_, err := TransactionEventMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("TransactionEventMessageFromJSON() should fail with invalid JSON")
	}
}
