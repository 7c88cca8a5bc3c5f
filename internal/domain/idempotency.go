package domain

import "time"

// Idempotency records the post produced by a create request carrying an
// Idempotency-Key header. A replay of the same key within the TTL returns
// the recorded post instead of inserting a second one.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);not null;primaryKey"`
	Key       string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_idempotency_key"`
	PostID    int64     `gorm:"not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
