package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"paywall-anywhere/internal/domain/content"
)

type LockedMapRepo struct {
	db *sql.DB
}

func NewLockedMapRepo(db *sql.DB) *LockedMapRepo {
	return &LockedMapRepo{db: db}
}

func (r *LockedMapRepo) Save(ctx context.Context, m content.LockedMap) error {
	entries, err := json.Marshal(m.Entries)
	if err != nil {
		return err
	}

	// Snapshot entero por post: upsert y listo.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO paywall_locked_maps (post_id, entries, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id)
		DO UPDATE SET entries = EXCLUDED.entries, updated_at = EXCLUDED.updated_at
	`,
		m.PostID,
		entries,
		m.UpdatedAt,
	)
	return err
}

func (r *LockedMapRepo) Get(ctx context.Context, postID string) (content.LockedMap, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return content.LockedMap{}, content.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT post_id, entries, updated_at
		FROM paywall_locked_maps
		WHERE post_id = $1
	`, postID)

	var m content.LockedMap
	var entries []byte

	if err := row.Scan(&m.PostID, &entries, &m.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return content.LockedMap{}, content.ErrNotFound
		}
		return content.LockedMap{}, err
	}

	if len(entries) > 0 {
		if err := json.Unmarshal(entries, &m.Entries); err != nil {
			return content.LockedMap{}, err
		}
	}

	return m, nil
}

func (r *LockedMapRepo) Delete(ctx context.Context, postID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM paywall_locked_maps WHERE post_id = $1`, postID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return content.ErrNotFound
	}
	return nil
}
