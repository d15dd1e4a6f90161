package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xxxsen/sharebox/internal/model"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/pkg/password"
)

type GateState int

const (
	GateLocked GateState = iota
	GateUnlocked
)

func (s GateState) String() string {
	switch s {
	case GateUnlocked:
		return "unlocked"
	default:
		return "locked"
	}
}

// UnlockResult is the outcome of a single access attempt. It is owned by one
// request and must not be shared between goroutines.
type UnlockResult struct {
	State    GateState
	Bypassed bool
	Link     *model.ShareLink
	counted  bool
}

// Transition decides the gate state for a submitted password. It depends only
// on the stored hash and the submission.
func Transition(link *model.ShareLink, submitted string) (GateState, error) {
	if !link.HasPassword {
		return GateUnlocked, nil
	}
	if link.PasswordHash == nil {
		return GateLocked, fmt.Errorf("%w: protected link without hash", appErr.ErrInternal)
	}
	if submitted == "" {
		return GateLocked, appErr.NewValidationError("password", "required")
	}
	err := password.Compare(*link.PasswordHash, submitted)
	switch {
	case err == nil:
		return GateUnlocked, nil
	case errors.Is(err, password.ErrMismatch):
		return GateLocked, appErr.ErrUnauthorized
	default:
		return GateLocked, fmt.Errorf("%w: compare password: %v", appErr.ErrInternal, err)
	}
}

// PasswordGate guards password protected links. Hash comparisons run inside
// a bounded pool so a burst of slow verifications cannot starve the process.
type PasswordGate struct {
	store *ShareLinkStore
	sem   *semaphore.Weighted
}

func NewPasswordGate(store *ShareLinkStore, concurrency int) *PasswordGate {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PasswordGate{store: store, sem: semaphore.NewWeighted(int64(concurrency))}
}

func (g *PasswordGate) Verify(ctx context.Context, token, submitted string) (*UnlockResult, error) {
	link, err := g.store.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	if !link.HasPassword {
		shareUnlockTotal.WithLabelValues("bypass").Inc()
		return &UnlockResult{State: GateUnlocked, Bypassed: true, Link: link}, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	state, err := Transition(link, submitted)
	g.sem.Release(1)
	if err != nil {
		shareUnlockTotal.WithLabelValues(unlockFailureLabel(err)).Inc()
		logutil.GetLogger(ctx).Info("share unlock rejected",
			zap.String("token", maskToken(token)),
			zap.Error(err),
		)
		return nil, err
	}
	shareUnlockTotal.WithLabelValues("unlocked").Inc()
	return &UnlockResult{State: state, Link: link}, nil
}

func unlockFailureLabel(err error) string {
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		return "rejected"
	case errors.Is(err, appErr.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}
