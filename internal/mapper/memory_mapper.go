package mapper

import (
	"github.com/pgvector/pgvector-go"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/model"
)

type MemoryMapper struct{}

func NewMemoryMapper() *MemoryMapper {
	return &MemoryMapper{}
}

func (m *MemoryMapper) ToEntity(r *model.MemoryRecord) *entity.MemoryRecord {
	if r == nil {
		return nil
	}
	return &entity.MemoryRecord{
		Id:        r.Id,
		SessionId: r.SessionId,
		Content:   r.Content,
		Embedding: r.Embedding.Slice(),
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
	}
}

func (m *MemoryMapper) ToModel(r *entity.MemoryRecord) *model.MemoryRecord {
	if r == nil {
		return nil
	}
	return &model.MemoryRecord{
		Id:        r.Id,
		SessionId: r.SessionId,
		Content:   r.Content,
		Embedding: pgvector.NewVector(r.Embedding),
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
	}
}

func (m *MemoryMapper) ToEntities(records []*model.MemoryRecord) []*entity.MemoryRecord {
	entities := make([]*entity.MemoryRecord, len(records))
	for i, r := range records {
		entities[i] = m.ToEntity(r)
	}
	return entities
}
