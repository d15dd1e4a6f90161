package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/sharebox/internal/config"
	"github.com/xxxsen/sharebox/internal/model"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/pkg/password"
	"github.com/xxxsen/sharebox/internal/pkg/retry"
)

// FileRecordStore resolves file records for ownership checks and downloads.
type FileRecordStore interface {
	GetByID(ctx context.Context, fileID string) (*model.FileRecord, error)
	GetByOwner(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error)
}

type IssueInput struct {
	FileID    string
	OwnerID   string
	Password  *string
	ExpiresAt *time.Time
}

// TokenIssuer creates share links for files the caller owns.
type TokenIssuer struct {
	files    FileRecordStore
	store    *ShareLinkStore
	policy   config.ShareConfig
	newToken func(n int) (string, error)
	now      func() time.Time
}

func NewTokenIssuer(files FileRecordStore, store *ShareLinkStore, policy config.ShareConfig) *TokenIssuer {
	return &TokenIssuer{
		files:    files,
		store:    store,
		policy:   policy,
		newToken: newToken,
		now:      time.Now,
	}
}

func (i *TokenIssuer) Issue(ctx context.Context, input IssueInput) (*model.ShareLink, error) {
	if input.OwnerID == "" || input.FileID == "" {
		return nil, appErr.ErrNotFound
	}
	now := i.now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, appErr.NewValidationError("expires_at", "must be in the future")
	}
	if input.Password != nil {
		if err := i.validatePassword(*input.Password); err != nil {
			return nil, err
		}
	}
	if _, err := retry.DoValue(ctx, retry.Once, func(ctx context.Context) (*model.FileRecord, error) {
		return i.files.GetByOwner(ctx, input.OwnerID, input.FileID)
	}); err != nil {
		return nil, err
	}

	link := &model.ShareLink{
		FileID:    input.FileID,
		CreatedAt: now.UnixMilli(),
	}
	if input.ExpiresAt != nil {
		expiresAt := input.ExpiresAt.UnixMilli()
		link.ExpiresAt = &expiresAt
	}
	if input.Password != nil {
		hash, err := password.HashWithCost(*input.Password, i.policy.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		link.HasPassword = true
		link.PasswordHash = &hash
	}

	attempts := i.policy.IssueAttempts
	if attempts < 1 {
		attempts = 1
	}
	logger := logutil.GetLogger(ctx).With(zap.String("file_id", input.FileID), zap.String("owner_id", input.OwnerID))
	for attempt := 1; attempt <= attempts; attempt++ {
		token, err := i.newToken(i.policy.TokenBytes)
		if err != nil {
			return nil, err
		}
		link.ID = newID()
		link.Token = token
		err = i.store.Insert(ctx, link)
		if err == nil {
			shareIssuedTotal.WithLabelValues(protectedLabel(link.HasPassword)).Inc()
			logger.Info("share link issued",
				zap.String("share_id", link.ID),
				zap.String("token", maskToken(token)),
				zap.Bool("has_password", link.HasPassword),
			)
			return link, nil
		}
		if !errors.Is(err, appErr.ErrConflict) {
			return nil, err
		}
		logger.Warn("share token collision, regenerating", zap.Int("attempt", attempt))
	}
	return nil, appErr.ErrConflict
}

func (i *TokenIssuer) validatePassword(plain string) error {
	length := utf8.RuneCountInString(plain)
	if length < i.policy.PasswordMinLength {
		return appErr.NewValidationError("password", fmt.Sprintf("min_length=%d", i.policy.PasswordMinLength))
	}
	if length > i.policy.PasswordMaxLength {
		return appErr.NewValidationError("password", fmt.Sprintf("max_length=%d", i.policy.PasswordMaxLength))
	}
	if len(plain) > password.MaxBytes {
		return appErr.NewValidationError("password", fmt.Sprintf("max_bytes=%d", password.MaxBytes))
	}
	return nil
}
