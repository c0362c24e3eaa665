package domain

import "time"

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type NotificationKind string

const (
	KindProductAdded   NotificationKind = "product_added"
	KindProductRemoved NotificationKind = "product_removed"
	KindAmountUpdated  NotificationKind = "amount_updated"
	KindStockExceeded  NotificationKind = "stock_exceeded"
	KindAddFailed      NotificationKind = "add_failed"
	KindRemoveFailed   NotificationKind = "remove_failed"
	KindUpdateFailed   NotificationKind = "update_failed"
	KindOrderPlaced    NotificationKind = "order_placed"
	KindFinalizeFailed NotificationKind = "finalize_failed"
)

// Notification is a one-shot, user-facing status message.
type Notification struct {
	Level     Level            `json:"level"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	ProductID int64            `json:"product_id,omitempty"`
	At        time.Time        `json:"at"`
}
