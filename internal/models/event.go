package models

import "time"

// EventKind names a transaction mutation
type EventKind string

const (
	EventCreated EventKind = "transaction.created"
	EventDeleted EventKind = "transaction.deleted"
	EventReset   EventKind = "transaction.reset"
)

// TransactionEvent is published after every successful mutation
type TransactionEvent struct {
	Kind          EventKind    `json:"kind"`
	Owner         string       `json:"owner"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Transaction   *Transaction `json:"transaction,omitempty"`
	Count         int64        `json:"count,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}
