package postgres

import (
	"context"
	"database/sql"
	"strings"

	"paywall-anywhere/internal/domain/items"
)

type ItemsRepo struct {
	db *sql.DB
}

func NewItemsRepo(db *sql.DB) *ItemsRepo {
	return &ItemsRepo{db: db}
}

func (r *ItemsRepo) Create(ctx context.Context, it items.Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO paywall_items (
			id, post_id, scope, selector,
			price_minor, currency, expires_days, status,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		it.ID,
		it.PostID,
		string(it.Scope),
		it.Selector,
		it.PriceMinor,
		it.Currency,
		toNullInt(it.ExpiresDays),
		string(it.Status),
		it.CreatedAt,
		it.UpdatedAt,
	)
	return err
}

func (r *ItemsRepo) Update(ctx context.Context, it items.Item) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE paywall_items
		SET
			price_minor = $2,
			currency = $3,
			expires_days = $4,
			status = $5,
			updated_at = $6
		WHERE id = $1
	`,
		it.ID,
		it.PriceMinor,
		it.Currency,
		toNullInt(it.ExpiresDays),
		string(it.Status),
		it.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return items.ErrNotFound
	}
	return nil
}

func (r *ItemsRepo) GetByID(ctx context.Context, id string) (items.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return items.Item{}, items.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, post_id, scope, selector,
			price_minor, currency, expires_days, status,
			created_at, updated_at
		FROM paywall_items
		WHERE id = $1
	`, id)

	return scanItem(row)
}

func (r *ItemsRepo) ListByPost(ctx context.Context, postID string) ([]items.Item, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT
			id, post_id, scope, selector,
			price_minor, currency, expires_days, status,
			created_at, updated_at
		FROM paywall_items
		WHERE post_id = $1
		  AND status = 'active'
		ORDER BY created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]items.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}

	return out, rows.Err()
}

func (r *ItemsRepo) FindByCriteria(ctx context.Context, postID string, scope items.Scope, selector string) (items.Item, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return items.Item{}, items.ErrNotFound
	}

	// Ante duplicados por creación concurrente gana la fila más antigua,
	// así todas las lecturas convergen al mismo item.
	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, post_id, scope, selector,
			price_minor, currency, expires_days, status,
			created_at, updated_at
		FROM paywall_items
		WHERE post_id = $1
		  AND scope = $2
		  AND selector = $3
		  AND status = 'active'
		ORDER BY created_at ASC
		LIMIT 1
	`, postID, string(scope), selector)

	return scanItem(row)
}

func (r *ItemsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM paywall_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return items.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (items.Item, error) {
	var it items.Item
	var scope, status string
	var expiresDays sql.NullInt64

	if err := row.Scan(
		&it.ID,
		&it.PostID,
		&scope,
		&it.Selector,
		&it.PriceMinor,
		&it.Currency,
		&expiresDays,
		&status,
		&it.CreatedAt,
		&it.UpdatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return items.Item{}, items.ErrNotFound
		}
		return items.Item{}, err
	}

	it.Scope = items.Scope(scope)
	it.Status = items.Status(status)
	if expiresDays.Valid {
		d := int(expiresDays.Int64)
		it.ExpiresDays = &d
	}

	return it, nil
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
