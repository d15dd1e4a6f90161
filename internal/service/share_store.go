package service

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/sharebox/internal/model"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/pkg/retry"
)

// ShareRecordStore is the durable relational store behind share links.
// repo.ShareRepo is the production implementation.
type ShareRecordStore interface {
	Insert(ctx context.Context, link *model.ShareLink) error
	GetByToken(ctx context.Context, token string) (*model.ShareLink, error)
	GetByID(ctx context.Context, id string) (*model.ShareLink, error)
	ListByFile(ctx context.Context, fileID string) ([]model.ShareLink, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt int64) (bool, error)
	IncrementCounterWhere(ctx context.Context, token string, now int64) (int64, error)
}

// ShareLinkStore adds soft expiry and retry semantics on top of the record
// store. It keeps no state between calls.
type ShareLinkStore struct {
	records ShareRecordStore
	retry   retry.Policy
	now     func() time.Time
}

func NewShareLinkStore(records ShareRecordStore) *ShareLinkStore {
	return &ShareLinkStore{records: records, retry: retry.Once, now: time.Now}
}

func (s *ShareLinkStore) nowMilli() int64 {
	return s.now().UnixMilli()
}

// Insert persists link, retrying a transient failure. When the retry hits a
// conflict after a failed attempt, the earlier insert may have committed with
// its reply lost, so the row is checked before reporting a collision.
func (s *ShareLinkStore) Insert(ctx context.Context, link *model.ShareLink) error {
	attempted := false
	return retry.Do(ctx, s.retry, func(ctx context.Context) error {
		err := s.records.Insert(ctx, link)
		if err == nil {
			return nil
		}
		if attempted && errors.Is(err, appErr.ErrConflict) {
			return s.reconcileInsert(ctx, link, err)
		}
		if retry.Transient(err) {
			attempted = true
		}
		return err
	})
}

func (s *ShareLinkStore) reconcileInsert(ctx context.Context, link *model.ShareLink, conflict error) error {
	existing, err := s.records.GetByID(ctx, link.ID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return conflict
		}
		return appErr.Storage(err)
	}
	if existing.Token == link.Token && existing.FileID == link.FileID {
		return nil
	}
	return conflict
}

// Lookup returns the active link for token. Expired links stay in the store
// but are reported as ErrExpired.
func (s *ShareLinkStore) Lookup(ctx context.Context, token string) (*model.ShareLink, error) {
	if token == "" {
		return nil, appErr.ErrNotFound
	}
	link, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) (*model.ShareLink, error) {
		return s.records.GetByToken(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	if link.ExpiredAt(s.nowMilli()) {
		return nil, appErr.ErrExpired
	}
	return link, nil
}

// Get returns a link by id without applying expiry, for owner management.
func (s *ShareLinkStore) Get(ctx context.Context, id string) (*model.ShareLink, error) {
	return retry.DoValue(ctx, s.retry, func(ctx context.Context) (*model.ShareLink, error) {
		return s.records.GetByID(ctx, id)
	})
}

func (s *ShareLinkStore) ListByFile(ctx context.Context, fileID string) ([]model.ShareLink, error) {
	return retry.DoValue(ctx, s.retry, func(ctx context.Context) ([]model.ShareLink, error) {
		return s.records.ListByFile(ctx, fileID)
	})
}

// Revoke expires the link now. Revoking an already expired link is a no-op.
func (s *ShareLinkStore) Revoke(ctx context.Context, id string) error {
	now := s.nowMilli()
	changed, err := retry.DoValue(ctx, s.retry, func(ctx context.Context) (bool, error) {
		return s.records.UpdateExpiry(ctx, id, now)
	})
	if err != nil {
		return err
	}
	if changed {
		return nil
	}
	_, err = s.Get(ctx, id)
	return err
}

// IncrementCounter is executed at most once: a lost response after a
// committed update must not turn into a second increment.
func (s *ShareLinkStore) IncrementCounter(ctx context.Context, token string) (int64, error) {
	count, err := s.records.IncrementCounterWhere(ctx, token, s.nowMilli())
	if err != nil {
		if retry.Transient(err) {
			return 0, appErr.Storage(err)
		}
		return 0, err
	}
	return count, nil
}
