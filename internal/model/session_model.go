package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Session struct {
	Id           uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	UserId       uuid.UUID      `gorm:"column:user_id;type:uuid;index"`
	Status       string         `gorm:"column:status;type:varchar(32);default:'active'"`
	Persona      datatypes.JSON `gorm:"column:persona;type:jsonb"`
	Capabilities datatypes.JSON `gorm:"column:capabilities;type:jsonb"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Messages []Message      `gorm:"foreignKey:SessionId;references:Id;constraint:OnDelete:CASCADE"`
	Memories []MemoryRecord `gorm:"foreignKey:SessionId;references:Id;constraint:OnDelete:CASCADE"`
}

func (Session) TableName() string {
	return "sessions"
}
