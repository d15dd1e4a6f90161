package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// ExpiredShareDeleter is implemented by repo.ShareRepo.
type ExpiredShareDeleter interface {
	DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error)
}

// ShareRetentionJob hard-deletes links that have been expired for longer
// than the retention window. Until then expired links stay for history.
type ShareRetentionJob struct {
	shares ExpiredShareDeleter
	retain time.Duration
	now    func() time.Time
}

func NewShareRetentionJob(shares ExpiredShareDeleter, retain time.Duration) *ShareRetentionJob {
	return &ShareRetentionJob{shares: shares, retain: retain, now: time.Now}
}

func (j *ShareRetentionJob) Name() string {
	return "share_retention"
}

func (j *ShareRetentionJob) Run(ctx context.Context) error {
	if j.shares == nil || j.retain <= 0 {
		return nil
	}
	cutoff := j.now().Add(-j.retain).UnixMilli()
	deleted, err := j.shares.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("expired share links purged", zap.Int64("count", deleted))
	}
	return nil
}
