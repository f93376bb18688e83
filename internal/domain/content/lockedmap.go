package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"paywall-anywhere/internal/domain/items"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// RebuildLockedMap escanea el árbol del post y reconstruye el snapshot
// de linkage (scope, selector) → item. Para cada lock marcado hace
// find-or-create del item (los atributos de precio viajan en el nodo;
// lo que falte cae a los defaults de config). Se invoca al guardar el
// post, nunca durante render.
func (s *Service) RebuildLockedMap(ctx context.Context, postID string, nodes []Node) (LockedMap, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return LockedMap{}, ErrInvalidInput
	}

	var entries []Lock
	if err := s.scanNodes(ctx, postID, nodes, &entries); err != nil {
		return LockedMap{}, err
	}

	m := LockedMap{
		PostID:    postID,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
	if err := s.lockedMaps.Save(ctx, m); err != nil {
		return LockedMap{}, err
	}
	return m, nil
}

// LockedMapFor devuelve el snapshot del post; sin snapshot => mapa vacío
// (post sin locks).
func (s *Service) LockedMapFor(ctx context.Context, postID string) (LockedMap, error) {
	m, err := s.lockedMaps.Get(ctx, postID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return LockedMap{PostID: postID}, nil
		}
		return LockedMap{}, err
	}
	return m, nil
}

func (s *Service) scanNodes(ctx context.Context, postID string, nodes []Node, entries *[]Lock) error {
	for _, n := range nodes {
		if n.Type == NodeTypeGate {
			// El gate ancla el item post-level; los atributos del nodo
			// (precio, moneda, expiración) aplican solo al crearlo.
			it, err := s.items.FindOrCreate(ctx, s.createInputFromNode(postID, items.ScopePost, "", n))
			if err != nil {
				return fmt.Errorf("locked map: gate item: %w", err)
			}
			*entries = append(*entries, Lock{Scope: items.ScopePost, Selector: "", ItemID: it.ID})
		}

		if n.Locked && n.ClientID != "" {
			scope := items.ScopeBlock
			if n.IsMedia() {
				scope = items.ScopeMedia
			}
			it, err := s.items.FindOrCreate(ctx, s.createInputFromNode(postID, scope, n.ClientID, n))
			if err != nil {
				return fmt.Errorf("locked map: block item: %w", err)
			}
			*entries = append(*entries, Lock{Scope: scope, Selector: n.ClientID, ItemID: it.ID})
		}

		if len(n.LockedParagraphs) > 0 && n.ClientID != "" {
			for _, idx := range n.LockedParagraphs {
				if idx < 0 {
					continue
				}
				selector := fmt.Sprintf("%s:%d", n.ClientID, idx)
				it, err := s.items.FindOrCreate(ctx, s.createInputFromNode(postID, items.ScopeParagraph, selector, n))
				if err != nil {
					return fmt.Errorf("locked map: paragraph item: %w", err)
				}
				*entries = append(*entries, Lock{Scope: items.ScopeParagraph, Selector: selector, ItemID: it.ID})
			}
		}

		if len(n.Children) > 0 {
			if err := s.scanNodes(ctx, postID, n.Children, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) createInputFromNode(postID string, scope items.Scope, selector string, n Node) items.CreateInput {
	in := items.CreateInput{
		PostID:     postID,
		Scope:      scope,
		Selector:   selector,
		PriceMinor: s.defaultPriceMinor,
	}

	if v, ok := attrInt64(n.Attrs, "price_minor"); ok {
		in.PriceMinor = v
	}
	if v, ok := n.Attrs["currency"].(string); ok {
		in.Currency = v
	}
	if v, ok := attrInt64(n.Attrs, "expires_days"); ok && v > 0 {
		d := int(v)
		in.ExpiresDays = &d
	}
	return in
}

// attrInt64 tolera los números como llegan del JSON (float64) o ya
// tipados.
func attrInt64(attrs map[string]any, key string) (int64, bool) {
	if attrs == nil {
		return 0, false
	}
	switch v := attrs[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
