package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/sharebox/internal/config"
	"github.com/xxxsen/sharebox/internal/db"
	"github.com/xxxsen/sharebox/internal/model"
)

// OpenTestDB opens a migrated SQLite database in a temp dir that is removed
// when the test ends.
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sharebox.db")
	conn, err := db.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// InsertFile writes a file record directly, bypassing blob storage.
func InsertFile(t *testing.T, conn *sqlx.DB, id, ownerID, name string) *model.FileRecord {
	t.Helper()
	file := &model.FileRecord{
		ID:           id,
		OwnerID:      ownerID,
		StoragePath:  id + ".bin",
		OriginalName: name,
		Size:         4,
		MimeType:     "application/octet-stream",
		CreatedAt:    time.Now().UnixMilli(),
	}
	_, err := conn.NamedExecContext(context.Background(), `
		INSERT INTO files (id, owner_id, storage_path, original_name, size, mime_type, created_at)
		VALUES (:id, :owner_id, :storage_path, :original_name, :size, :mime_type, :created_at)`,
		map[string]interface{}{
			"id":            file.ID,
			"owner_id":      file.OwnerID,
			"storage_path":  file.StoragePath,
			"original_name": file.OriginalName,
			"size":          file.Size,
			"mime_type":     file.MimeType,
			"created_at":    file.CreatedAt,
		})
	require.NoError(t, err)
	return file
}
