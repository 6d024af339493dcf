package models

import (
	"time"

	"github.com/google/uuid"
)

// Driver is an external courier reached over WhatsApp; drivers never log in.
type Driver struct {
	ID    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"column:name;not null" json:"name"`
	Phone string    `gorm:"column:phone;not null" json:"phone"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
