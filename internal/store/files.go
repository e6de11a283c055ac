package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

// FileStore resolves origin metadata for retrieved chunks.
type FileStore struct {
	db *gorm.DB
}

// NewFileStore creates a file-metadata repository.
func NewFileStore(db *gorm.DB) *FileStore {
	return &FileStore{db: db}
}

// ResolveFiles fetches metadata for all ids in one query. Ids with no row
// are simply absent from the result; callers fall back to derived URLs.
func (s *FileStore) ResolveFiles(ctx context.Context, ids []string) (map[string]model.FileMeta, error) {
	out := make(map[string]model.FileMeta, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var files []model.FileMeta
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("%w: resolve files: %v", apperr.ErrPersistence, err)
	}
	for _, f := range files {
		out[f.ID] = f
	}
	return out, nil
}
