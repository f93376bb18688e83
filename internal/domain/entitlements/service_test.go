package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"paywall-anywhere/internal/domain/items"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Entitlement
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Entitlement{}}
}

func (r *testRepo) Create(ctx context.Context, e Entitlement) error {
	if e.ID == "" {
		return errors.New("repo: id required")
	}
	r.byID[e.ID] = e
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Entitlement, error) {
	e, ok := r.byID[id]
	if !ok {
		return Entitlement{}, ErrNotFound
	}
	return e, nil
}

func (r *testRepo) ListActiveByUser(ctx context.Context, userID string, now time.Time) ([]Entitlement, error) {
	out := make([]Entitlement, 0)
	for _, e := range r.byID {
		if e.UserID == userID && !e.Expired(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *testRepo) ListActiveByGuestEmail(ctx context.Context, email string, now time.Time) ([]Entitlement, error) {
	out := make([]Entitlement, 0)
	for _, e := range r.byID {
		if e.GuestEmail == email && !e.Expired(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *testRepo) ListByGuestEmail(ctx context.Context, email string) ([]Entitlement, error) {
	out := make([]Entitlement, 0)
	for _, e := range r.byID {
		if e.GuestEmail == email {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *testRepo) GetByTokenHash(ctx context.Context, hash string) (Entitlement, error) {
	for _, e := range r.byID {
		if e.TokenHash == hash && hash != "" {
			return e, nil
		}
	}
	return Entitlement{}, ErrNotFound
}

func (r *testRepo) ClearToken(ctx context.Context, id, hash string) error {
	e, ok := r.byID[id]
	if !ok || e.TokenHash != hash {
		return ErrNotFound
	}
	e.TokenHash = ""
	r.byID[id] = e
	return nil
}

func (r *testRepo) Reassign(ctx context.Context, id, userID string) error {
	e, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	e.UserID = userID
	e.GuestEmail = ""
	r.byID[id] = e
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for id, e := range r.byID {
		if e.Expired(now) {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

type itemsTestRepo struct {
	byID map[string]items.Item
}

func (r *itemsTestRepo) Create(ctx context.Context, it items.Item) error {
	r.byID[it.ID] = it
	return nil
}

func (r *itemsTestRepo) Update(ctx context.Context, it items.Item) error {
	r.byID[it.ID] = it
	return nil
}

func (r *itemsTestRepo) GetByID(ctx context.Context, id string) (items.Item, error) {
	it, ok := r.byID[id]
	if !ok {
		return items.Item{}, items.ErrNotFound
	}
	return it, nil
}

func (r *itemsTestRepo) ListByPost(ctx context.Context, postID string) ([]items.Item, error) {
	return nil, nil
}

func (r *itemsTestRepo) FindByCriteria(ctx context.Context, postID string, scope items.Scope, selector string) (items.Item, error) {
	return items.Item{}, items.ErrNotFound
}

func (r *itemsTestRepo) Delete(ctx context.Context, id string) error { return nil }

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	svc      *Service
	repo     *testRepo
	itemsSvc *items.Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newTestRepo()
	itemsSvc := items.NewService(&itemsTestRepo{byID: map[string]items.Item{}}, items.Defaults{Currency: "USD"})
	svc := NewService(repo, itemsSvc)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, itemsSvc: itemsSvc, now: now}
}

func (f *fixture) createItem(t *testing.T, expiresDays *int) items.Item {
	t.Helper()
	it, err := f.itemsSvc.Create(context.Background(), items.CreateInput{
		PostID:      "post-1",
		PriceMinor:  500,
		ExpiresDays: expiresDays,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it
}

// -------------------------
// Tests
// -------------------------

func TestGrant_HolderMustBeExactlyOne(t *testing.T) {
	f := newFixture(t)
	it := f.createItem(t, nil)
	ctx := context.Background()

	// Ninguno.
	if _, err := f.svc.Grant(ctx, GrantInput{ItemID: it.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("sin holder: err = %v, want ErrInvalidInput", err)
	}

	// Ambos.
	if _, err := f.svc.Grant(ctx, GrantInput{ItemID: it.ID, UserID: "u1", GuestEmail: "a@b.com"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ambos holders: err = %v, want ErrInvalidInput", err)
	}
}

func TestGrant_ExpiryFromItemPolicy(t *testing.T) {
	f := newFixture(t)
	days := 30
	withExpiry := f.createItem(t, &days)
	forever := f.createItem(t, nil)
	ctx := context.Background()

	e1, err := f.svc.Grant(ctx, GrantInput{ItemID: withExpiry.ID, UserID: "u1"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	wantExp := f.now.AddDate(0, 0, 30)
	if e1.ExpiresAt == nil || !e1.ExpiresAt.Equal(wantExp) {
		t.Errorf("ExpiresAt = %v, want %v", e1.ExpiresAt, wantExp)
	}

	e2, err := f.svc.Grant(ctx, GrantInput{ItemID: forever.ID, UserID: "u1"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if e2.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil (nunca expira)", e2.ExpiresAt)
	}
}

func TestGrant_UnknownItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Grant(context.Background(), GrantInput{ItemID: "nope", UserID: "u1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGrant_NormalizesEmailAndSource(t *testing.T) {
	f := newFixture(t)
	it := f.createItem(t, nil)

	e, err := f.svc.Grant(context.Background(), GrantInput{
		ItemID:     it.ID,
		GuestEmail: "  Buyer@Example.COM ",
		Source:     Source("paypal"),
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if e.GuestEmail != "buyer@example.com" {
		t.Errorf("email = %q, want normalizado", e.GuestEmail)
	}
	if e.Source != SourceManual {
		t.Errorf("source = %q, want manual (fuera de dominio)", e.Source)
	}
}

func TestListActive_FiltersExpiredAtRead(t *testing.T) {
	f := newFixture(t)
	days := 10
	it := f.createItem(t, &days)
	ctx := context.Background()

	e, err := f.svc.Grant(ctx, GrantInput{ItemID: it.ID, UserID: "u1"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	rows, err := f.svc.ListActiveByUser(ctx, "u1")
	if err != nil || len(rows) != 1 {
		t.Fatalf("antes de vencer: rows=%d err=%v, want 1", len(rows), err)
	}

	// Avanzamos el reloj más allá del vencimiento: la fila sigue en
	// storage pero las lecturas ya no la devuelven.
	f.svc.now = func() time.Time { return f.now.AddDate(0, 0, 11) }

	rows, err = f.svc.ListActiveByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("después de vencer: rows=%d, want 0", len(rows))
	}
	if _, ok := f.repo.byID[e.ID]; !ok {
		t.Fatal("la fila no debería borrarse hasta cleanup")
	}
}

func TestReassignGuestToUser_MovesAllRowsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	it1 := f.createItem(t, nil)
	it2 := f.createItem(t, nil)
	ctx := context.Background()

	for _, it := range []string{it1.ID, it2.ID} {
		if _, err := f.svc.Grant(ctx, GrantInput{ItemID: it, GuestEmail: "buyer@example.com"}); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}

	moved, err := f.svc.ReassignGuestToUser(ctx, "Buyer@Example.com", "u1")
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if moved != 2 {
		t.Fatalf("moved = %d, want 2", moved)
	}

	rows, err := f.svc.ListActiveByUser(ctx, "u1")
	if err != nil || len(rows) != 2 {
		t.Fatalf("user rows=%d err=%v, want 2", len(rows), err)
	}
	for _, e := range rows {
		if e.GuestEmail != "" {
			t.Errorf("guest_email debería quedar vacío tras el merge: %+v", e)
		}
	}

	// Segunda pasada: no queda nada por mover.
	moved, err = f.svc.ReassignGuestToUser(ctx, "buyer@example.com", "u1")
	if err != nil || moved != 0 {
		t.Fatalf("re-reassign: moved=%d err=%v, want 0", moved, err)
	}
}

func TestClearToken_SingleUse(t *testing.T) {
	f := newFixture(t)
	it := f.createItem(t, nil)
	ctx := context.Background()

	e, err := f.svc.Grant(ctx, GrantInput{ItemID: it.ID, GuestEmail: "a@b.com", TokenHash: "hash-1"})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}

	if err := f.svc.ClearToken(ctx, e.ID, "hash-1"); err != nil {
		t.Fatalf("primer clear: %v", err)
	}
	// El perdedor del race ve ErrNotFound.
	if err := f.svc.ClearToken(ctx, e.ID, "hash-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("segundo clear: err = %v, want ErrNotFound", err)
	}
}

func TestCleanupExpired_RemovesOnlyExpired(t *testing.T) {
	f := newFixture(t)
	days := 5
	shortLived := f.createItem(t, &days)
	forever := f.createItem(t, nil)
	ctx := context.Background()

	if _, err := f.svc.Grant(ctx, GrantInput{ItemID: shortLived.ID, UserID: "u1"}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := f.svc.Grant(ctx, GrantInput{ItemID: forever.ID, UserID: "u1"}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	f.svc.now = func() time.Time { return f.now.AddDate(0, 0, 6) }

	n, err := f.svc.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Fatalf("n = %d, want 1", n)
	}
	if len(f.repo.byID) != 1 {
		t.Fatalf("quedan %d filas, want 1", len(f.repo.byID))
	}
}
