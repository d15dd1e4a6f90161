package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/model"
	"github.com/xxxsen/sharebox/internal/pkg/retry"
)

// FileCache keeps recently resolved file records. Records never change after
// upload, so the only staleness is a deleted file, which the ttl bounds and
// Invalidate clears for deletions made by this process.
type FileCache struct {
	files FileRecordStore
	cache *expirable.LRU[string, model.FileRecord]
}

func NewFileCache(files FileRecordStore, size int, ttl time.Duration) *FileCache {
	c := &FileCache{files: files}
	if size > 0 && ttl > 0 {
		c.cache = expirable.NewLRU[string, model.FileRecord](size, nil, ttl)
	}
	return c
}

func (c *FileCache) Get(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(fileID); ok {
			logutil.GetLogger(ctx).Debug("file record cache hit", zap.String("file_id", fileID))
			return &cached, nil
		}
	}
	file, err := retry.DoValue(ctx, retry.Once, func(ctx context.Context) (*model.FileRecord, error) {
		return c.files.GetByID(ctx, fileID)
	})
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Add(fileID, *file)
	}
	return file, nil
}

func (c *FileCache) Invalidate(fileID string) {
	if c.cache != nil {
		c.cache.Remove(fileID)
	}
}
