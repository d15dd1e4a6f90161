package service

import (
	"context"

	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
)

// AccessCounter records successful accesses. The increment is a single
// conditional update in the store; nothing is read back and rewritten.
type AccessCounter struct {
	store *ShareLinkStore
}

func NewAccessCounter(store *ShareLinkStore) *AccessCounter {
	return &AccessCounter{store: store}
}

// IncrementOnUnlock counts res once and returns the persisted count. Locked
// results are refused; a second call for the same result does not count again.
func (c *AccessCounter) IncrementOnUnlock(ctx context.Context, res *UnlockResult) (int64, error) {
	if res == nil || res.State != GateUnlocked || res.Link == nil {
		return 0, appErr.ErrForbidden
	}
	if res.counted {
		return res.Link.AccessedCount, nil
	}
	count, err := c.store.IncrementCounter(ctx, res.Link.Token)
	if err != nil {
		return 0, err
	}
	res.counted = true
	res.Link.AccessedCount = count
	return count, nil
}
