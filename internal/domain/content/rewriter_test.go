package content_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	sessmem "paywall-anywhere/internal/adapters/session/memory"
	mem "paywall-anywhere/internal/adapters/storage/memory"
	"paywall-anywhere/internal/domain/access"
	"paywall-anywhere/internal/domain/content"
	"paywall-anywhere/internal/domain/entitlements"
	"paywall-anywhere/internal/domain/items"
	"paywall-anywhere/internal/platform/logger"
)

type fixture struct {
	svc      *content.Service
	resolver *access.Resolver
	itemsSvc *items.Service
	entSvc   *entitlements.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(logger.Options{Level: logger.Error})
	itemsSvc := items.NewService(mem.NewItemsRepo(), items.Defaults{PriceMinor: 500, Currency: "USD"})
	entSvc := entitlements.NewService(mem.NewEntitlementsRepo(), itemsSvc)
	resolver := access.NewResolver(itemsSvc, entSvc, sessmem.New(time.Hour), log)
	svc := content.NewService(itemsSvc, resolver, mem.NewLockedMapRepo(), 500, 10, log)

	return &fixture{svc: svc, resolver: resolver, itemsSvc: itemsSvc, entSvc: entSvc}
}

// gatedTree arma el árbol canónico: dos bloques libres, el gate, dos
// bloques premium y un bloque marcado Free después del gate.
func gatedTree() []content.Node {
	return []content.Node{
		{Type: "paragraph", ClientID: "b1", Text: "Intro pública número uno."},
		{Type: "paragraph", ClientID: "b2", Text: "Intro pública número dos."},
		{Type: content.NodeTypeGate, ClientID: "gate"},
		{Type: "paragraph", ClientID: "b4", Text: "SECRETO premium cuatro."},
		{Type: "paragraph", ClientID: "b5", Text: "SECRETO premium cinco."},
		{Type: "paragraph", ClientID: "b6", Free: true, Text: "Nota libre post-gate."},
	}
}

func rebuild(t *testing.T, f *fixture, postID string, nodes []content.Node) content.LockedMap {
	t.Helper()
	m, err := f.svc.RebuildLockedMap(context.Background(), postID, nodes)
	if err != nil {
		t.Fatalf("rebuild locked map: %v", err)
	}
	return m
}

func render(t *testing.T, f *fixture, req access.Requester, postID string, nodes []content.Node, surface access.Surface) content.RenderResult {
	t.Helper()
	res, err := f.svc.Render(context.Background(), req, postID, nodes, surface)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return res
}

func mustNotLeak(t *testing.T, res content.RenderResult, secret string) {
	t.Helper()
	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), secret) {
		t.Fatalf("contenido bloqueado filtrado en la respuesta: %s", raw)
	}
}

func TestRender_GateBlocksTailForAnonymous(t *testing.T) {
	f := newFixture(t)
	nodes := gatedTree()
	rebuild(t, f, "post-1", nodes)

	res := render(t, f, access.Requester{SessionID: "sid-1"}, "post-1", nodes, access.SurfacePage)

	// Visible: b1, b2, placeholder del gate, un único placeholder por el
	// tramo b4+b5, y b6 (libre).
	var types []string
	for _, n := range res.Nodes {
		types = append(types, n.Type)
	}
	want := []string{"paragraph", "paragraph", content.NodeTypePlaceholder, content.NodeTypePlaceholder, "paragraph"}
	if len(types) != len(want) {
		t.Fatalf("tipos = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("tipos = %v, want %v", types, want)
		}
	}

	if res.Nodes[4].Text != "Nota libre post-gate." {
		t.Fatalf("el nodo Free debe pasar intacto: %+v", res.Nodes[4])
	}

	mustNotLeak(t, res, "SECRETO")

	// El placeholder lleva la affordance de compra con precio.
	ph := res.Nodes[2]
	if ph.Attrs["price"] != "$5.00" {
		t.Fatalf("price = %v, want $5.00", ph.Attrs["price"])
	}
	if ph.Attrs["item_id"] == "" {
		t.Fatal("placeholder sin item_id")
	}
}

func TestRender_GateOpensWithEntitlement(t *testing.T) {
	f := newFixture(t)
	nodes := gatedTree()
	m := rebuild(t, f, "post-1", nodes)

	lock, ok := m.PostLock()
	if !ok {
		t.Fatal("el gate debería haber creado el item post-level")
	}
	if _, err := f.entSvc.Grant(context.Background(), entitlements.GrantInput{ItemID: lock.ItemID, UserID: "u1"}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	res := render(t, f, access.Requester{UserID: "u1"}, "post-1", nodes, access.SurfacePage)

	if len(res.Nodes) != 5 {
		t.Fatalf("nodos = %d, want 5 (gate removido, resto intacto)", len(res.Nodes))
	}
	joined := ""
	for _, n := range res.Nodes {
		joined += n.Text + " "
	}
	if !strings.Contains(joined, "SECRETO premium cuatro.") || !strings.Contains(joined, "SECRETO premium cinco.") {
		t.Fatalf("contenido premium ausente para quien pagó: %q", joined)
	}
}

func TestRender_EditorBypassesOnPage(t *testing.T) {
	f := newFixture(t)
	nodes := gatedTree()
	rebuild(t, f, "post-1", nodes)

	res := render(t, f, access.Requester{UserID: "ed", Editor: true}, "post-1", nodes, access.SurfacePage)
	if len(res.Nodes) != len(nodes) {
		t.Fatalf("nodos = %d, want árbol completo", len(res.Nodes))
	}
}

func TestRender_BlockLock(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{Type: "paragraph", ClientID: "b1", Text: "Libre."},
		{Type: "paragraph", ClientID: "b2", Locked: true, Text: "SECRETO de bloque."},
		{Type: "image", ClientID: "b3", Locked: true, Attrs: map[string]any{"src": "/premium.jpg"}},
	}
	m := rebuild(t, f, "post-1", nodes)

	// El lock de media lleva scope media, el de párrafo scope block.
	if lock, ok := m.BlockLock("b3"); !ok || lock.Scope != items.ScopeMedia {
		t.Fatalf("lock b3 = %+v, want scope media", lock)
	}

	res := render(t, f, access.Requester{}, "post-1", nodes, access.SurfacePage)
	if res.Nodes[0].Text != "Libre." {
		t.Fatalf("el bloque libre debe quedar: %+v", res.Nodes[0])
	}
	if res.Nodes[1].Type != content.NodeTypePlaceholder || res.Nodes[2].Type != content.NodeTypePlaceholder {
		t.Fatalf("bloques lockeados sin placeholder: %+v", res.Nodes)
	}
	mustNotLeak(t, res, "SECRETO")
	mustNotLeak(t, res, "premium.jpg")
}

func TestRender_BlockLockInsideFreeParent(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{Type: "group", ClientID: "g1", Children: []content.Node{
			{Type: "paragraph", ClientID: "c1", Text: "Hijo libre."},
			{Type: "paragraph", ClientID: "c2", Locked: true, Text: "SECRETO anidado."},
		}},
	}
	rebuild(t, f, "post-1", nodes)

	res := render(t, f, access.Requester{}, "post-1", nodes, access.SurfacePage)
	children := res.Nodes[0].Children
	if len(children) != 2 {
		t.Fatalf("hijos = %d, want 2", len(children))
	}
	if children[0].Text != "Hijo libre." || children[1].Type != content.NodeTypePlaceholder {
		t.Fatalf("reescritura anidada incorrecta: %+v", children)
	}
	mustNotLeak(t, res, "SECRETO")
}

func TestRender_ParagraphLocks(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{
			Type:             "paragraph",
			ClientID:         "b1",
			Text:             "Párrafo libre.\n\nSECRETO intermedio.\n\nOtro libre.",
			LockedParagraphs: []int{1},
		},
	}
	rebuild(t, f, "post-1", nodes)

	res := render(t, f, access.Requester{}, "post-1", nodes, access.SurfacePage)
	got := res.Nodes[0].Text
	parts := strings.Split(got, "\n\n")
	if len(parts) != 3 {
		t.Fatalf("párrafos = %d, want 3: %q", len(parts), got)
	}
	if parts[0] != "Párrafo libre." || parts[2] != "Otro libre." {
		t.Fatalf("los párrafos libres deben quedar intactos: %q", got)
	}
	mustNotLeak(t, res, "SECRETO")
	if !strings.Contains(parts[1], "Unlock this paragraph") {
		t.Fatalf("placeholder inline ausente: %q", parts[1])
	}
}

func TestRender_NoLocksPassthrough(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{Type: "paragraph", ClientID: "b1", Text: "Todo público."},
	}

	res := render(t, f, access.Requester{}, "post-1", nodes, access.SurfacePage)
	if len(res.Nodes) != 1 || res.Nodes[0].Text != "Todo público." {
		t.Fatalf("post sin locks debe pasar intacto: %+v", res.Nodes)
	}
}

func TestRender_TeaserSurfaces(t *testing.T) {
	f := newFixture(t)
	nodes := gatedTree()
	rebuild(t, f, "post-1", nodes)

	for _, surface := range []access.Surface{access.SurfaceFeed, access.SurfaceEmbed, access.SurfaceMeta} {
		// Ni siquiera un editor ve contenido completo acá.
		res := render(t, f, access.Requester{UserID: "ed", Editor: true}, "post-1", nodes, surface)
		if !res.TeaserOnly {
			t.Fatalf("%s: TeaserOnly = false", surface)
		}
		if len(res.Nodes) != 0 {
			t.Fatalf("%s: no deben viajar nodos, got %d", surface, len(res.Nodes))
		}
		mustNotLeak(t, res, "SECRETO")
		if !strings.Contains(res.Teaser, "[Continue reading with premium access...]") {
			t.Fatalf("%s: teaser sin marcador de continuación: %q", surface, res.Teaser)
		}
	}
}

func TestRender_TeaserSurfaceWithoutLocksGivesFullText(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{Type: "paragraph", Text: "Texto corto y público."},
	}

	res := render(t, f, access.Requester{}, "post-1", nodes, access.SurfaceFeed)
	if !res.TeaserOnly {
		t.Fatal("TeaserOnly = false")
	}
	if res.Teaser != "Texto corto y público." {
		t.Fatalf("teaser = %q", res.Teaser)
	}
}

func TestRebuildLockedMap_CreatesItemsWithNodeAttrs(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{Type: content.NodeTypeGate, ClientID: "gate", Attrs: map[string]any{
			"price_minor":  float64(1200), // como llega del JSON
			"currency":     "EUR",
			"expires_days": float64(30),
		}},
		{Type: "paragraph", ClientID: "b2", Text: "Premium."},
	}

	m := rebuild(t, f, "post-1", nodes)
	lock, ok := m.PostLock()
	if !ok {
		t.Fatal("sin entrada post-level")
	}

	it, err := f.itemsSvc.GetByID(context.Background(), lock.ItemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if it.PriceMinor != 1200 || it.Currency != "EUR" {
		t.Fatalf("item = %+v, want precio del nodo", it)
	}
	if it.ExpiresDays == nil || *it.ExpiresDays != 30 {
		t.Fatalf("ExpiresDays = %v, want 30", it.ExpiresDays)
	}
}

func TestRebuildLockedMap_ReusesItemsAcrossRebuilds(t *testing.T) {
	f := newFixture(t)
	nodes := gatedTree()

	m1 := rebuild(t, f, "post-1", nodes)
	m2 := rebuild(t, f, "post-1", nodes)

	l1, _ := m1.PostLock()
	l2, _ := m2.PostLock()
	if l1.ItemID != l2.ItemID {
		t.Fatalf("el rebuild no debe duplicar items: %q vs %q", l1.ItemID, l2.ItemID)
	}
}

func TestRender_FailOpenWhenItemDeletedUnderLock(t *testing.T) {
	f := newFixture(t)
	nodes := []content.Node{
		{Type: "paragraph", ClientID: "b1", Locked: true, Text: "Contenido bajo lock."},
	}
	m := rebuild(t, f, "post-1", nodes)

	lock, _ := m.BlockLock("b1")
	if err := f.itemsSvc.Delete(context.Background(), lock.ItemID); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	// Item borrado bajo el lock: la referencia colgante se hereda como
	// libre y el contenido pasa entero (no hay nada que comprar).
	res := render(t, f, access.Requester{}, "post-1", nodes, access.SurfacePage)
	if len(res.Nodes) != 1 || res.Nodes[0].Type != "paragraph" {
		t.Fatalf("nodos = %+v, want el párrafo original", res.Nodes)
	}
	if res.Nodes[0].Text != "Contenido bajo lock." {
		t.Fatalf("texto = %q, want el contenido intacto", res.Nodes[0].Text)
	}
}
