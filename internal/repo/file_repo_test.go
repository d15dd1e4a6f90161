package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/sharebox/internal/model"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
	"github.com/xxxsen/sharebox/internal/repo"
	"github.com/xxxsen/sharebox/internal/testutil"
)

func TestFileRepoCRUDAndIsolation(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	files := repo.NewFileRepo(db)

	now := time.Now().UnixMilli()
	for i, id := range []string{"file-1", "file-2", "file-3"} {
		require.NoError(t, files.Create(ctx, &model.FileRecord{
			ID:           id,
			OwnerID:      "owner-1",
			StoragePath:  id + ".bin",
			OriginalName: id + ".txt",
			Size:         int64(i + 1),
			MimeType:     "text/plain",
			CreatedAt:    now + int64(i),
		}))
	}
	err := files.Create(ctx, &model.FileRecord{ID: "file-1", OwnerID: "owner-2", StoragePath: "x", OriginalName: "x", MimeType: "x", CreatedAt: now})
	require.ErrorIs(t, err, appErr.ErrConflict)

	got, err := files.GetByOwner(ctx, "owner-1", "file-2")
	require.NoError(t, err)
	require.Equal(t, "file-2.txt", got.OriginalName)
	require.EqualValues(t, 2, got.Size)

	_, err = files.GetByOwner(ctx, "owner-2", "file-2")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = files.GetByID(ctx, "file-2")
	require.NoError(t, err)

	items, err := files.ListByOwner(ctx, "owner-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "file-3", items[0].ID)

	page, err := files.ListByOwner(ctx, "owner-1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "file-2", page[0].ID)
}

func TestFileRepoDeleteCascadesLinks(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	testutil.InsertFile(t, db, "file-1", "owner-1", "a.txt")
	files := repo.NewFileRepo(db)
	shares := repo.NewShareRepo(db)
	require.NoError(t, shares.Insert(ctx, newLink("share-1", "file-1", "token-1")))

	err := files.Delete(ctx, "owner-2", "file-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = shares.GetByToken(ctx, "token-1")
	require.NoError(t, err)

	require.NoError(t, files.Delete(ctx, "owner-1", "file-1"))
	_, err = files.GetByID(ctx, "file-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = shares.GetByToken(ctx, "token-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
