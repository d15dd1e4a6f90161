package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/model"
	"github.com/xxxsen/sharebox/internal/pkg/retry"
)

// ShareMetadata is what an anonymous visitor may learn before unlocking.
type ShareMetadata struct {
	HasPassword bool   `json:"has_password"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   *int64 `json:"expires_at,omitempty"`
}

type AccessResult struct {
	Capability    *DownloadCapability `json:"capability"`
	AccessedCount int64               `json:"accessed_count"`
	HasPassword   bool                `json:"has_password"`
	CreatedAt     int64               `json:"created_at"`
}

// ShareService runs the owner and visitor flows over the share components.
type ShareService struct {
	files      FileRecordStore
	store      *ShareLinkStore
	issuer     *TokenIssuer
	gate       *PasswordGate
	counter    *AccessCounter
	authorizer *DownloadAuthorizer
}

func NewShareService(files FileRecordStore, store *ShareLinkStore, issuer *TokenIssuer, gate *PasswordGate, counter *AccessCounter, authorizer *DownloadAuthorizer) *ShareService {
	return &ShareService{
		files:      files,
		store:      store,
		issuer:     issuer,
		gate:       gate,
		counter:    counter,
		authorizer: authorizer,
	}
}

func (s *ShareService) Issue(ctx context.Context, input IssueInput) (*model.ShareLink, error) {
	return s.issuer.Issue(ctx, input)
}

func (s *ShareService) ListByFile(ctx context.Context, ownerID, fileID string) ([]model.ShareLink, error) {
	if err := s.checkOwner(ctx, ownerID, fileID); err != nil {
		return nil, err
	}
	return s.store.ListByFile(ctx, fileID)
}

// Revoke expires a link of a file owned by ownerID.
func (s *ShareService) Revoke(ctx context.Context, ownerID, linkID string) error {
	link, err := s.store.Get(ctx, linkID)
	if err != nil {
		return err
	}
	if err := s.checkOwner(ctx, ownerID, link.FileID); err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, linkID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("share link revoked", zap.String("share_id", linkID), zap.String("owner_id", ownerID))
	return nil
}

func (s *ShareService) Metadata(ctx context.Context, token string) (*ShareMetadata, error) {
	link, err := s.store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	return &ShareMetadata{
		HasPassword: link.HasPassword,
		CreatedAt:   link.CreatedAt,
		ExpiresAt:   link.ExpiresAt,
	}, nil
}

// Access runs lookup, gate, authorizer and counter for one visitor request.
// A capability is handed out only once the access has been counted, and the
// counter only moves for a request that obtained a capability.
func (s *ShareService) Access(ctx context.Context, token, submitted string) (*AccessResult, error) {
	res, err := s.gate.Verify(ctx, token, submitted)
	if err != nil {
		return nil, err
	}
	capability, err := s.authorizer.Authorize(ctx, token, res.State)
	if err != nil {
		return nil, err
	}
	count, err := s.counter.IncrementOnUnlock(ctx, res)
	if err != nil {
		return nil, err
	}
	return &AccessResult{
		Capability:    capability,
		AccessedCount: count,
		HasPassword:   res.Link.HasPassword,
		CreatedAt:     res.Link.CreatedAt,
	}, nil
}

func (s *ShareService) checkOwner(ctx context.Context, ownerID, fileID string) error {
	_, err := retry.DoValue(ctx, retry.Once, func(ctx context.Context) (*model.FileRecord, error) {
		return s.files.GetByOwner(ctx, ownerID, fileID)
	})
	return err
}
