package models

import (
	"time"

	"github.com/google/uuid"
)

// Branch is an organizational unit orders are scoped to.
type Branch struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	City string    `gorm:"column:city" json:"city"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
