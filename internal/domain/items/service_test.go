package items

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID map[string]Item
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Item{}}
}

func (r *testRepo) Create(ctx context.Context, it Item) error {
	if it.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[it.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[it.ID] = it
	return nil
}

func (r *testRepo) Update(ctx context.Context, it Item) error {
	if _, ok := r.byID[it.ID]; !ok {
		return ErrNotFound
	}
	r.byID[it.ID] = it
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Item, error) {
	it, ok := r.byID[id]
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (r *testRepo) ListByPost(ctx context.Context, postID string) ([]Item, error) {
	out := make([]Item, 0)
	for _, it := range r.byID {
		if it.PostID == postID && it.Status == StatusActive {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *testRepo) FindByCriteria(ctx context.Context, postID string, scope Scope, selector string) (Item, error) {
	var best Item
	found := false
	for _, it := range r.byID {
		if it.PostID != postID || it.Scope != scope || it.Selector != selector || it.Status != StatusActive {
			continue
		}
		if !found || it.CreatedAt.Before(best.CreatedAt) {
			best = it
			found = true
		}
	}
	if !found {
		return Item{}, ErrNotFound
	}
	return best, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo, Defaults{PriceMinor: 500, Currency: "USD"})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	svc.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return svc
}

// -------------------------
// Tests
// -------------------------

func TestCreate_CoercesOutOfDomainValues(t *testing.T) {
	svc := newTestService(newTestRepo())
	ctx := context.Background()

	it, err := svc.Create(ctx, CreateInput{
		PostID:     "post-1",
		Scope:      Scope("banana"),
		PriceMinor: -100,
		Currency:   "BTC",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if it.Scope != ScopePost {
		t.Errorf("scope = %q, want post", it.Scope)
	}
	if it.PriceMinor != 0 {
		t.Errorf("price = %d, want 0", it.PriceMinor)
	}
	if it.Currency != "USD" {
		t.Errorf("currency = %q, want USD", it.Currency)
	}
	if it.Status != StatusActive {
		t.Errorf("status = %q, want active", it.Status)
	}
}

func TestCreate_RequiresPostID(t *testing.T) {
	svc := newTestService(newTestRepo())

	_, err := svc.Create(context.Background(), CreateInput{PostID: "  "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestCreate_ExpiryDefaultAndClear(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo, Defaults{Currency: "USD", ExpiresDays: 30})
	ctx := context.Background()

	// Sin expires_days: usa el default de config.
	it, err := svc.Create(ctx, CreateInput{PostID: "post-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it.ExpiresDays == nil || *it.ExpiresDays != 30 {
		t.Fatalf("ExpiresDays = %v, want 30", it.ExpiresDays)
	}

	// 0 explícito: nunca expira.
	zero := 0
	it2, err := svc.Create(ctx, CreateInput{PostID: "post-1", Selector: "b1", Scope: ScopeBlock, ExpiresDays: &zero})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if it2.ExpiresDays != nil {
		t.Fatalf("ExpiresDays = %v, want nil", it2.ExpiresDays)
	}
}

func TestFindOrCreate_ReturnsExisting(t *testing.T) {
	svc := newTestService(newTestRepo())
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, CreateInput{PostID: "post-1", Scope: ScopeBlock, Selector: "b1", PriceMinor: 300, Currency: "EUR"})
	if err != nil {
		t.Fatalf("find-or-create: %v", err)
	}

	// Segunda llamada con otros datos: devuelve el existente intacto.
	second, err := svc.FindOrCreate(ctx, CreateInput{PostID: "post-1", Scope: ScopeBlock, Selector: "b1", PriceMinor: 999, Currency: "GBP"})
	if err != nil {
		t.Fatalf("find-or-create: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second.ID = %q, want %q", second.ID, first.ID)
	}
	if second.PriceMinor != 300 || second.Currency != "EUR" {
		t.Fatalf("existing item mutated: %+v", second)
	}
}

func TestFindByCriteria_OldestActiveWins(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	// Duplicados simulando el race de find-or-create.
	older := Item{ID: "a", PostID: "post-1", Scope: ScopeBlock, Selector: "b1", Status: StatusActive, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := Item{ID: "b", PostID: "post-1", Scope: ScopeBlock, Selector: "b1", Status: StatusActive, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	repo.byID[older.ID] = older
	repo.byID[newer.ID] = newer

	got, err := svc.FindByCriteria(ctx, "post-1", ScopeBlock, "b1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != "a" {
		t.Fatalf("got %q, want la fila más antigua (a)", got.ID)
	}
}

func TestUpdate_PartialAndClearExpiry(t *testing.T) {
	svc := newTestService(newTestRepo())
	ctx := context.Background()

	days := 7
	it, err := svc.Create(ctx, CreateInput{PostID: "post-1", PriceMinor: 500, ExpiresDays: &days})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPrice := int64(900)
	clear := -1
	updated, err := svc.Update(ctx, it.ID, UpdateInput{PriceMinor: &newPrice, ExpiresDays: &clear})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.PriceMinor != 900 {
		t.Errorf("price = %d, want 900", updated.PriceMinor)
	}
	if updated.ExpiresDays != nil {
		t.Errorf("ExpiresDays = %v, want nil tras limpiar", updated.ExpiresDays)
	}
	// Los campos no enviados no se tocan.
	if updated.Currency != it.Currency {
		t.Errorf("currency cambió sin pedirlo: %q -> %q", it.Currency, updated.Currency)
	}
}

func TestUpdate_RejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newTestRepo())
	ctx := context.Background()

	it, err := svc.Create(ctx, CreateInput{PostID: "post-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := Status("paused")
	if _, err := svc.Update(ctx, it.ID, UpdateInput{Status: &bad}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestArchivedItem_InvisibleToCriteria(t *testing.T) {
	svc := newTestService(newTestRepo())
	ctx := context.Background()

	it, err := svc.Create(ctx, CreateInput{PostID: "post-1", Scope: ScopeBlock, Selector: "b1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	archived := StatusArchived
	if _, err := svc.Update(ctx, it.ID, UpdateInput{Status: &archived}); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if _, err := svc.FindByCriteria(ctx, "post-1", ScopeBlock, "b1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound para item archivado", err)
	}
}
