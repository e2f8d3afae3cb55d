package model

type InventoryKV struct {
	Key         string `gorm:"column:key;type:text;primaryKey"`
	Value       string `gorm:"column:value;type:text;not null"`
	UpdatedAt   string `gorm:"column:updated_at;type:text;not null"`
	ExpiresUnix int64  `gorm:"column:expires_unix;not null;default:0"`
}

func (InventoryKV) TableName() string {
	return "inventory_cache"
}
