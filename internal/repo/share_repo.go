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

const shareTable = "shared_links"

var shareFields = []string{"id", "file_id", "token", "has_password", "password_hash", "expires_at", "created_at", "accessed_count"}

type shareRow struct {
	ID            string         `db:"id"`
	FileID        string         `db:"file_id"`
	Token         string         `db:"token"`
	HasPassword   bool           `db:"has_password"`
	PasswordHash  sql.NullString `db:"password_hash"`
	ExpiresAt     sql.NullInt64  `db:"expires_at"`
	CreatedAt     int64          `db:"created_at"`
	AccessedCount int64          `db:"accessed_count"`
}

func (r shareRow) toModel() *model.ShareLink {
	link := &model.ShareLink{
		ID:            r.ID,
		FileID:        r.FileID,
		Token:         r.Token,
		HasPassword:   r.HasPassword,
		CreatedAt:     r.CreatedAt,
		AccessedCount: r.AccessedCount,
	}
	if r.PasswordHash.Valid {
		hash := r.PasswordHash.String
		link.PasswordHash = &hash
	}
	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Int64
		link.ExpiresAt = &expiresAt
	}
	return link
}

type ShareRepo struct {
	db *sqlx.DB
}

func NewShareRepo(db *sqlx.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

// Insert stores a new link. A duplicate token or id yields ErrConflict; the
// uniqueness itself is enforced by the schema.
func (r *ShareRepo) Insert(ctx context.Context, link *model.ShareLink) error {
	if link.HasPassword != (link.PasswordHash != nil) {
		return appErr.NewValidationError("password_hash", "must be present iff has_password")
	}
	hash := sql.NullString{}
	if link.PasswordHash != nil {
		hash = sql.NullString{String: *link.PasswordHash, Valid: true}
	}
	expiresAt := sql.NullInt64{}
	if link.ExpiresAt != nil {
		expiresAt = sql.NullInt64{Int64: *link.ExpiresAt, Valid: true}
	}
	data := map[string]interface{}{
		"id":             link.ID,
		"file_id":        link.FileID,
		"token":          link.Token,
		"has_password":   link.HasPassword,
		"password_hash":  hash,
		"expires_at":     expiresAt,
		"created_at":     link.CreatedAt,
		"accessed_count": link.AccessedCount,
	}
	sqlStr, args, err := builder.BuildInsert(shareTable, []map[string]interface{}{data})
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

func (r *ShareRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.ShareLink, error) {
	sqlStr, args, err := builder.BuildSelect(shareTable, where, shareFields)
	if err != nil {
		return nil, appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var row shareRow
	if err := r.db.GetContext(ctx, &row, sqlStr, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return row.toModel(), nil
}

// GetByToken returns the record regardless of expiry.
func (r *ShareRepo) GetByToken(ctx context.Context, token string) (*model.ShareLink, error) {
	return r.getOne(ctx, map[string]interface{}{"token": token})
}

func (r *ShareRepo) GetByID(ctx context.Context, id string) (*model.ShareLink, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *ShareRepo) ListByFile(ctx context.Context, fileID string) ([]model.ShareLink, error) {
	where := map[string]interface{}{
		"file_id":  fileID,
		"_orderby": "created_at desc",
	}
	sqlStr, args, err := builder.BuildSelect(shareTable, where, shareFields)
	if err != nil {
		return nil, appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var rows []shareRow
	if err := r.db.SelectContext(ctx, &rows, sqlStr, args...); err != nil {
		return nil, err
	}
	items := make([]model.ShareLink, 0, len(rows))
	for _, row := range rows {
		items = append(items, *row.toModel())
	}
	return items, nil
}

// UpdateExpiry moves expires_at to expiresAt unless the link is already
// expired at that instant, so repeated revokes never push expiry forward.
// It reports whether a row changed.
func (r *ShareRepo) UpdateExpiry(ctx context.Context, id string, expiresAt int64) (bool, error) {
	sqlStr := `UPDATE shared_links SET expires_at = ? WHERE id = ? AND (expires_at IS NULL OR expires_at > ?)`
	args := []interface{}{expiresAt, id, expiresAt}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IncrementCounterWhere bumps accessed_count in a single conditional
// statement and returns the new value. A link that is missing or expired at
// now is left untouched and reported as ErrNotFound or ErrExpired.
func (r *ShareRepo) IncrementCounterWhere(ctx context.Context, token string, now int64) (int64, error) {
	sqlStr := `
		UPDATE shared_links
		SET accessed_count = accessed_count + 1
		WHERE token = ? AND (expires_at IS NULL OR expires_at > ?)
		RETURNING accessed_count
	`
	args := []interface{}{token, now}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	var count int64
	err := r.db.QueryRowxContext(ctx, sqlStr, args...).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if _, err := r.GetByToken(ctx, token); err != nil {
		return 0, err
	}
	return 0, appErr.ErrExpired
}

// DeleteExpiredBefore hard-deletes links whose expiry is at or before cutoff.
func (r *ShareRepo) DeleteExpiredBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete(shareTable, map[string]interface{}{"expires_at <=": cutoff})
	if err != nil {
		return 0, appErr.Internal(err)
	}
	sqlStr, args = dbutil.Finalize(r.db, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
