package postgres

import "time"

type eventModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	TimestampMS int64     `gorm:"column:timestamp_ms"`
	UserID      string    `gorm:"column:user_id"`
	SessionID   string    `gorm:"column:session_id"`
	Payload     string    `gorm:"column:payload"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
}

func (eventModel) TableName() string { return "events" }

type deadLetterModel struct {
	DeadLetterID int64     `gorm:"column:dead_letter_id;primaryKey;autoIncrement"`
	Reason       string    `gorm:"column:reason"`
	EventID      string    `gorm:"column:event_id"`
	RawPayload   []byte    `gorm:"column:raw_payload"`
	FailedAt     time.Time `gorm:"column:failed_at"`
}

func (deadLetterModel) TableName() string { return "event_dead_letters" }
