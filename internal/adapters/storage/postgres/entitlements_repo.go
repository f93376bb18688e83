package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"paywall-anywhere/internal/domain/entitlements"
)

type EntitlementsRepo struct {
	db *sql.DB
}

func NewEntitlementsRepo(db *sql.DB) *EntitlementsRepo {
	return &EntitlementsRepo{db: db}
}

const entitlementColumns = `
	id, user_id, guest_email, item_id,
	granted_at, expires_at, source, token_hash, meta
`

func (r *EntitlementsRepo) Create(ctx context.Context, e entitlements.Entitlement) error {
	meta, err := metaToJSON(e.Meta)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO paywall_entitlements (
			id, user_id, guest_email, item_id,
			granted_at, expires_at, source, token_hash, meta
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		e.ID,
		nullString(e.UserID),
		nullString(e.GuestEmail),
		e.ItemID,
		e.GrantedAt,
		toNullTime(e.ExpiresAt),
		string(e.Source),
		nullString(e.TokenHash),
		meta,
	)
	return err
}

func (r *EntitlementsRepo) GetByID(ctx context.Context, id string) (entitlements.Entitlement, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entitlements.Entitlement{}, entitlements.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+entitlementColumns+`
		FROM paywall_entitlements
		WHERE id = $1
	`, id)

	return scanEntitlement(row)
}

func (r *EntitlementsRepo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]entitlements.Entitlement, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entitlementColumns+`
		FROM paywall_entitlements
		WHERE user_id = $1
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY granted_at ASC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntitlements(rows)
}

func (r *EntitlementsRepo) ListActiveByGuestEmail(ctx context.Context, email string, now time.Time) ([]entitlements.Entitlement, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entitlementColumns+`
		FROM paywall_entitlements
		WHERE guest_email = $1
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY granted_at ASC
	`, email, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntitlements(rows)
}

func (r *EntitlementsRepo) ListByGuestEmail(ctx context.Context, email string) ([]entitlements.Entitlement, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+entitlementColumns+`
		FROM paywall_entitlements
		WHERE guest_email = $1
		ORDER BY granted_at ASC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntitlements(rows)
}

func (r *EntitlementsRepo) GetByTokenHash(ctx context.Context, hash string) (entitlements.Entitlement, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return entitlements.Entitlement{}, entitlements.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+entitlementColumns+`
		FROM paywall_entitlements
		WHERE token_hash = $1
	`, hash)

	return scanEntitlement(row)
}

func (r *EntitlementsRepo) ClearToken(ctx context.Context, id, hash string) error {
	// CAS de una fila: solo gana el request que todavía ve el hash.
	res, err := r.db.ExecContext(ctx, `
		UPDATE paywall_entitlements
		SET token_hash = NULL
		WHERE id = $1
		  AND token_hash = $2
	`, id, hash)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return entitlements.ErrNotFound
	}
	return nil
}

func (r *EntitlementsRepo) Reassign(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE paywall_entitlements
		SET user_id = $2, guest_email = NULL
		WHERE id = $1
	`, id, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return entitlements.ErrNotFound
	}
	return nil
}

func (r *EntitlementsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM paywall_entitlements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return entitlements.ErrNotFound
	}
	return nil
}

func (r *EntitlementsRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM paywall_entitlements
		WHERE expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanEntitlement(row rowScanner) (entitlements.Entitlement, error) {
	var e entitlements.Entitlement
	var userID, guestEmail, tokenHash sql.NullString
	var expiresAt sql.NullTime
	var source string
	var meta []byte

	if err := row.Scan(
		&e.ID,
		&userID,
		&guestEmail,
		&e.ItemID,
		&e.GrantedAt,
		&expiresAt,
		&source,
		&tokenHash,
		&meta,
	); err != nil {
		if err == sql.ErrNoRows {
			return entitlements.Entitlement{}, entitlements.ErrNotFound
		}
		return entitlements.Entitlement{}, err
	}

	e.UserID = userID.String
	e.GuestEmail = guestEmail.String
	e.TokenHash = tokenHash.String
	e.ExpiresAt = fromNullTime(expiresAt)
	e.Source = entitlements.Source(source)

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Meta); err != nil {
			return entitlements.Entitlement{}, err
		}
	}

	return e, nil
}

func collectEntitlements(rows *sql.Rows) ([]entitlements.Entitlement, error) {
	out := make([]entitlements.Entitlement, 0)
	for rows.Next() {
		e, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func metaToJSON(meta map[string]any) ([]byte, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	return json.Marshal(meta)
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
