package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/sharebox/internal/model"
	"github.com/xxxsen/sharebox/internal/pkg/dbutil"
	appErr "github.com/xxxsen/sharebox/internal/pkg/errors"
)

const fileTable = "files"

var fileFields = []string{"id", "owner_id", "storage_path", "original_name", "size", "mime_type", "created_at"}

type fileRow struct {
	ID           string `db:"id"`
	OwnerID      string `db:"owner_id"`
	StoragePath  string `db:"storage_path"`
	OriginalName string `db:"original_name"`
	Size         int64  `db:"size"`
	MimeType     string `db:"mime_type"`
	CreatedAt    int64  `db:"created_at"`
}

func (r fileRow) toModel() model.FileRecord {
	return model.FileRecord(r)
}

type FileRepo struct {
	db *sqlx.DB
}

func NewFileRepo(db *sqlx.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, file *model.FileRecord) error {
	data := map[string]interface{}{
		"id":            file.ID,
		"owner_id":      file.OwnerID,
		"storage_path":  file.StoragePath,
		"original_name": file.OriginalName,
		"size":          file.Size,
		"mime_type":     file.MimeType,
		"created_at":    file.CreatedAt,
	}
	sqlStr, args, err := builder.BuildInsert(fileTable, []map[string]interface{}{data})
	if err != nil {
		return appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *FileRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.FileRecord, error) {
	sqlStr, args, err := builder.BuildSelect(fileTable, where, fileFields)
	if err != nil {
		return nil, appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var row fileRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	item := row.toModel()
	return &item, nil
}

func (r *FileRepo) GetByID(ctx context.Context, fileID string) (*model.FileRecord, error) {
	return r.getOne(ctx, map[string]interface{}{"id": fileID})
}

// GetByOwner hides files of other owners behind ErrNotFound.
func (r *FileRepo) GetByOwner(ctx context.Context, ownerID, fileID string) (*model.FileRecord, error) {
	return r.getOne(ctx, map[string]interface{}{"id": fileID, "owner_id": ownerID})
}

func (r *FileRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset uint) ([]model.FileRecord, error) {
	where := map[string]interface{}{
		"owner_id": ownerID,
		"_orderby": "created_at desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect(fileTable, where, fileFields)
	if err != nil {
		return nil, appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var rows []fileRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	items := make([]model.FileRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}
	return items, nil
}

// Delete removes the file and every share link pointing at it in one
// transaction.
func (r *FileRepo) Delete(ctx context.Context, ownerID, fileID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sqlStr, args, err := builder.BuildDelete(shareTable, map[string]interface{}{"file_id": fileID})
	if err != nil {
		return appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	// The owner check below rolls this back for a foreign file.
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}

	sqlStr, args, err = builder.BuildDelete(fileTable, map[string]interface{}{"id": fileID, "owner_id": ownerID})
	if err != nil {
		return appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return tx.Commit()
}
