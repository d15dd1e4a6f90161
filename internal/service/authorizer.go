package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/filestore"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/pkg/retry"
)

// DownloadCapability is a short-lived reference to the file bytes plus the
// metadata needed to present it.
type DownloadCapability struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
	FileName  string `json:"file_name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
}

// DownloadAuthorizer trades an unlocked gate for a blob store capability.
// It never touches file content.
type DownloadAuthorizer struct {
	store *ShareLinkStore
	files *FileCache
	blobs filestore.Store
	ttl   time.Duration
	now   func() time.Time
}

func NewDownloadAuthorizer(store *ShareLinkStore, files *FileCache, blobs filestore.Store, ttl time.Duration) *DownloadAuthorizer {
	return &DownloadAuthorizer{store: store, files: files, blobs: blobs, ttl: ttl, now: time.Now}
}

// Authorize looks the link up again so an expiry reached after the gate was
// passed still wins.
func (a *DownloadAuthorizer) Authorize(ctx context.Context, token string, state GateState) (*DownloadCapability, error) {
	capability, err := a.authorize(ctx, token, state)
	if err != nil {
		shareCapabilityTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	shareCapabilityTotal.WithLabelValues("ok").Inc()
	return capability, nil
}

func (a *DownloadAuthorizer) authorize(ctx context.Context, token string, state GateState) (*DownloadCapability, error) {
	link, err := a.store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if state != GateUnlocked {
		return nil, appErr.ErrForbidden
	}
	file, err := a.files.Get(ctx, link.FileID)
	if err != nil {
		return nil, err
	}
	issuedAt := a.now()
	url, err := retry.DoValue(ctx, retry.Once, func(ctx context.Context) (string, error) {
		return a.blobs.SignedDownloadURL(ctx, file.StoragePath, a.ttl, file.OriginalName)
	})
	if err != nil {
		logutil.GetLogger(ctx).Error("sign download url failed",
			zap.String("file_id", file.ID),
			zap.String("store", a.blobs.Type()),
			zap.Error(err),
		)
		return nil, err
	}
	return &DownloadCapability{
		URL:       url,
		ExpiresAt: issuedAt.Add(a.ttl).UnixMilli(),
		FileName:  file.OriginalName,
		Size:      file.Size,
		MimeType:  file.MimeType,
	}, nil
}
