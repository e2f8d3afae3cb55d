package model

// Message keeps created_unix alongside the RFC3339 created_at text so the
// aggregation queries can do whole-second bucket arithmetic in SQL.
type Message struct {
	MessageID   uint64  `gorm:"column:message_id;primaryKey;autoIncrement"`
	Text        string  `gorm:"column:text;type:text;not null"`
	EventID     *uint64 `gorm:"column:event_id;index"`
	CreatedAt   string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt   string  `gorm:"column:updated_at;type:text;not null"`
	CreatedUnix int64   `gorm:"column:created_unix;not null;index"`
}

func (Message) TableName() string {
	return "messages"
}
