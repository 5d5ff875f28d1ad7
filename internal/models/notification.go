package models

import "time"

const (
	Stage15Min = "15min"
	Stage5Min  = "5min"
	Stage0Min  = "0min"
)

// ReminderLedgerEntry marks a (task, due-instant, stage) reminder as sent.
// The unique index is the idempotency mechanism: a claim is a single
// conditional insert, and the loser of a race sees a no-op.
type ReminderLedgerEntry struct {
	ID     uint      `gorm:"primaryKey"`
	TaskID uint      `gorm:"not null;uniqueIndex:uidx_task_due_stage"`
	DueAt  time.Time `gorm:"not null;uniqueIndex:uidx_task_due_stage"`
	Stage  string    `gorm:"not null;uniqueIndex:uidx_task_due_stage"`
	SentAt time.Time `gorm:"not null;index"`
}

// PushSubscription is one browser push endpoint. Unique per (user, endpoint);
// re-registering refreshes the keys in place.
type PushSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uidx_user_endpoint" json:"userId"`
	Endpoint  string    `gorm:"not null;uniqueIndex:uidx_user_endpoint" json:"endpoint"`
	P256dhKey string    `gorm:"not null" json:"-"`
	AuthKey   string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
