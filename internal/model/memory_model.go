package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type MemoryRecord struct {
	Id        uuid.UUID       `gorm:"column:id;primaryKey;type:uuid"`
	SessionId uuid.UUID       `gorm:"column:session_id;type:uuid;index"`
	Content   string          `gorm:"column:content;type:text"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(1536)"`
	Source    string          `gorm:"column:source;type:varchar(32)"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (MemoryRecord) TableName() string {
	return "memory_records"
}
