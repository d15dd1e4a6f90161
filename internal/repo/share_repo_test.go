package repo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/sharebox/internal/model"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/repo"
	"github.com/xxxsen/sharebox/internal/testutil"
)

func newLink(id, fileID, token string) *model.ShareLink {
	return &model.ShareLink{
		ID:        id,
		FileID:    fileID,
		Token:     token,
		CreatedAt: time.Now().UnixMilli(),
	}
}

func TestShareRepoInsertAndGet(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)

	hash := "$2a$04$hash"
	expiresAt := time.Now().Add(time.Hour).UnixMilli()
	link := newLink("share-1", "file-1", "token-1")
	link.HasPassword = true
	link.PasswordHash = &hash
	link.ExpiresAt = &expiresAt
	require.NoError(t, shares.Insert(ctx, link))

	got, err := shares.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	require.Equal(t, "share-1", got.ID)
	require.True(t, got.HasPassword)
	require.NotNil(t, got.PasswordHash)
	require.Equal(t, hash, *got.PasswordHash)
	require.NotNil(t, got.ExpiresAt)
	require.Equal(t, expiresAt, *got.ExpiresAt)
	require.Zero(t, got.AccessedCount)

	got, err = shares.GetByID(ctx, "share-1")
	require.NoError(t, err)
	require.Equal(t, "token-1", got.Token)

	_, err = shares.GetByToken(ctx, "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestShareRepoInsertRejectsInconsistentHash(t *testing.T) {
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)

	link := newLink("share-1", "file-1", "token-1")
	link.HasPassword = true
	err := shares.Insert(context.Background(), link)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestShareRepoTokenConflict(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)

	require.NoError(t, shares.Insert(ctx, newLink("share-1", "file-1", "dup")))
	err := shares.Insert(ctx, newLink("share-2", "file-1", "dup"))
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestShareRepoIncrementConcurrent(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)
	require.NoError(t, shares.Insert(ctx, newLink("share-1", "file-1", "token-1")))

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := shares.IncrementCounterWhere(ctx, "token-1", time.Now().UnixMilli())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := shares.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	require.EqualValues(t, workers, got.AccessedCount)
}

func TestShareRepoIncrementExpiredAndMissing(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)

	now := time.Now().UnixMilli()
	expired := now - 1000
	link := newLink("share-1", "file-1", "token-1")
	link.ExpiresAt = &expired
	require.NoError(t, shares.Insert(ctx, link))

	_, err := shares.IncrementCounterWhere(ctx, "token-1", now)
	require.ErrorIs(t, err, appErr.ErrExpired)
	_, err = shares.IncrementCounterWhere(ctx, "missing", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	got, err := shares.GetByToken(ctx, "token-1")
	require.NoError(t, err)
	require.Zero(t, got.AccessedCount)
}

func TestShareRepoUpdateExpiryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)
	require.NoError(t, shares.Insert(ctx, newLink("share-1", "file-1", "token-1")))

	first := time.Now().UnixMilli()
	changed, err := shares.UpdateExpiry(ctx, "share-1", first)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = shares.UpdateExpiry(ctx, "share-1", first+5000)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := shares.GetByID(ctx, "share-1")
	require.NoError(t, err)
	require.Equal(t, first, *got.ExpiresAt)

	changed, err = shares.UpdateExpiry(ctx, "missing", first)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestShareRepoListAndRetention(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	shares := repo.NewShareRepo(db)

	now := time.Now().UnixMilli()
	old := now - int64(10*24*time.Hour/time.Millisecond)
	recent := now - 1000

	oldLink := newLink("share-old", "file-1", "token-old")
	oldLink.ExpiresAt = &old
	oldLink.CreatedAt = now - 3
	recentLink := newLink("share-recent", "file-1", "token-recent")
	recentLink.ExpiresAt = &recent
	recentLink.CreatedAt = now - 2
	activeLink := newLink("share-active", "file-1", "token-active")
	activeLink.CreatedAt = now - 1
	for _, link := range []*model.ShareLink{oldLink, recentLink, activeLink} {
		require.NoError(t, shares.Insert(ctx, link))
	}

	items, err := shares.ListByFile(ctx, "file-1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "share-active", items[0].ID)

	deleted, err := shares.DeleteExpiredBefore(ctx, now-int64(24*time.Hour/time.Millisecond))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = shares.GetByID(ctx, "share-old")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = shares.GetByID(ctx, "share-recent")
	require.NoError(t, err)
	_, err = shares.GetByID(ctx, "share-active")
	require.NoError(t, err)
}
