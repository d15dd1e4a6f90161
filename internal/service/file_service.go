package service

import (
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/filestore"
	"github.com/xxxsen/sharebox/internal/model"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/pkg/retry"
	"github.com/xxxsen/sharebox/internal/pkg/timeutil"
	"github.com/xxxsen/sharebox/internal/repo"
)

const maxFileNameLength = 255

var extRegex = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,16}$`)

type FileService struct {
	files *repo.FileRepo
	blobs filestore.Store
	cache *FileCache
}

func NewFileService(files *repo.FileRepo, blobs filestore.Store, cache *FileCache) *FileService {
	return &FileService{files: files, blobs: blobs, cache: cache}
}

func (s *FileService) Upload(ctx context.Context, ownerID, name string, size int64, r io.ReadSeeker) (*model.FileRecord, error) {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return nil, appErr.NewValidationError("file_name", "required")
	}
	if len(name) > maxFileNameLength {
		return nil, appErr.NewValidationError("file_name", "max_length=255")
	}
	if size < 0 {
		return nil, appErr.NewValidationError("size", "must not be negative")
	}
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := newID()
	if ext := filepath.Ext(name); extRegex.MatchString(ext) {
		key += strings.ToLower(ext)
	}
	if err := retry.Do(ctx, retry.Once, func(ctx context.Context) error {
		return s.blobs.Put(ctx, key, r, size, mtype.String())
	}); err != nil {
		return nil, err
	}

	file := &model.FileRecord{
		ID:           newID(),
		OwnerID:      ownerID,
		StoragePath:  key,
		OriginalName: name,
		Size:         size,
		MimeType:     mtype.String(),
		CreatedAt:    timeutil.NowUnixMilli(),
	}
	if err := s.files.Create(ctx, file); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			logutil.GetLogger(ctx).Error("remove orphan blob failed", zap.String("key", key), zap.Error(delErr))
		}
		if retry.Transient(err) {
			return nil, appErr.Storage(err)
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("file uploaded",
		zap.String("file_id", file.ID),
		zap.String("owner_id", ownerID),
		zap.Int64("size", size),
		zap.String("mime_type", file.MimeType),
	)
	return file, nil
}

func (s *FileService) List(ctx context.Context, ownerID string, limit, offset uint) ([]model.FileRecord, error) {
	return retry.DoValue(ctx, retry.Once, func(ctx context.Context) ([]model.FileRecord, error) {
		return s.files.ListByOwner(ctx, ownerID, limit, offset)
	})
}

func (s *FileService) Get(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error) {
	return retry.DoValue(ctx, retry.Once, func(ctx context.Context) (*model.FileRecord, error) {
		return s.files.GetByOwner(ctx, ownerID, fileID)
	})
}

// Delete removes the record and its share links first so no new capability
// can be issued, then the blob.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) error {
	file, err := s.Get(ctx, ownerID, fileID)
	if err != nil {
		return err
	}
	if err := retry.Do(ctx, retry.Once, func(ctx context.Context) error {
		return s.files.Delete(ctx, ownerID, fileID)
	}); err != nil {
		return err
	}
	s.cache.Invalidate(fileID)
	if err := retry.Do(ctx, retry.Once, func(ctx context.Context) error {
		return s.blobs.Delete(ctx, file.StoragePath)
	}); err != nil {
		logutil.GetLogger(ctx).Error("delete blob failed",
			zap.String("file_id", fileID),
			zap.String("key", file.StoragePath),
			zap.Error(err),
		)
		return err
	}
	return nil
}
