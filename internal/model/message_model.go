package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	Id        uuid.UUID      `gorm:"column:id;primaryKey;type:uuid"`
	SessionId uuid.UUID      `gorm:"column:session_id;type:uuid;index"`
	Role      string         `gorm:"column:role;type:varchar(16)"`
	Text      string         `gorm:"column:text;type:text"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Message) TableName() string {
	return "messages"
}
