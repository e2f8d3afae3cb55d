package model

// Event rows are keyed logically by (ip, name); the composite unique index
// is what the correlation upsert's duplicate-key retry leans on.
type Event struct {
	EventID      uint64  `gorm:"column:event_id;primaryKey;autoIncrement"`
	IP           string  `gorm:"column:ip;type:text;not null;uniqueIndex:idx_events_ip_name"`
	Name         string  `gorm:"column:name;type:text;not null;uniqueIndex:idx_events_ip_name"`
	Hostname     *string `gorm:"column:hostname;type:text"`
	Role         *string `gorm:"column:role;type:text"`
	Model        *string `gorm:"column:model;type:text"`
	Location     *string `gorm:"column:location;type:text"`
	Services     string  `gorm:"column:services;type:text;not null;default:'[]'"`
	Status       bool    `gorm:"column:status;not null"`
	MessageCount int64   `gorm:"column:message_count;not null;default:1"`
	CreatedAt    string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt    string  `gorm:"column:updated_at;type:text;not null"`
	UpdatedUnix  int64   `gorm:"column:updated_unix;not null;index"`
}

func (Event) TableName() string {
	return "events"
}
