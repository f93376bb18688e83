package content

import (
	"context"
	"fmt"
	"time"

	"paywall-anywhere/internal/domain/access"
	"paywall-anywhere/internal/domain/items"
	"paywall-anywhere/internal/platform/logger"
)

// Service aplica las reglas de paywall sobre el árbol de contenido.
// El mismo proceso corre idéntico para render primario y serialización
// REST; las superficies sin affordance (feed, embed, meta) reciben solo
// teaser plano, jamás placeholders.
type Service struct {
	items      *items.Service
	resolver   *access.Resolver
	lockedMaps LockedMapRepository

	defaultPriceMinor int64
	teaserWords       int

	log logger.Logger
	now func() time.Time
}

func NewService(
	itemsSvc *items.Service,
	resolver *access.Resolver,
	lockedMaps LockedMapRepository,
	defaultPriceMinor int64,
	teaserWords int,
	log logger.Logger,
) *Service {
	if teaserWords <= 0 {
		teaserWords = 150
	}
	return &Service{
		items:             itemsSvc,
		resolver:          resolver,
		lockedMaps:        lockedMaps,
		defaultPriceMinor: defaultPriceMinor,
		teaserWords:       teaserWords,
		log:               log,
		now:               time.Now,
	}
}

// RenderResult es la salida del pipeline: árbol reescrito para
// superficies interactivas, o teaser plano para las que no lo son.
type RenderResult struct {
	Nodes      []Node
	Teaser     string
	TeaserOnly bool
}

// Render es el único punto de entrada del pipeline contenido-entra /
// contenido-sale que invocan las superficies de render (nada de
// registries implícitos).
func (s *Service) Render(ctx context.Context, req access.Requester, postID string, nodes []Node, surface access.Surface) (RenderResult, error) {
	if postID == "" {
		return RenderResult{}, ErrInvalidInput
	}

	lm, err := s.LockedMapFor(ctx, postID)
	if err != nil {
		return RenderResult{}, err
	}

	// Superficies sin affordance: reemplazo total por teaser si el post
	// tiene algo bloqueado (nunca bypass, ni para editores).
	if surface.TeaserOnly() {
		if len(lm.Entries) == 0 {
			return RenderResult{Teaser: flattenText(nodes), TeaserOnly: true}, nil
		}
		return RenderResult{Teaser: s.Teaser(nodes), TeaserOnly: true}, nil
	}

	if s.resolver.ShouldBypass(req, surface) {
		return RenderResult{Nodes: nodes}, nil
	}

	if len(lm.Entries) == 0 {
		return RenderResult{Nodes: nodes}, nil
	}

	out, err := s.rewriteLevel(ctx, req, postID, nodes, lm)
	if err != nil {
		return RenderResult{}, err
	}
	return RenderResult{Nodes: out}, nil
}

// rewriteLevel procesa una lista de hermanos (pre-order). El gate opera
// a nivel de su propia lista: todo hermano posterior no marcado Free cae
// bajo el item post-level. Los locks de bloque/párrafo se evalúan además
// en cada nodo, y en los subárboles libres se sigue recursando (un nodo
// libre puede contener descendientes bloqueados).
func (s *Service) rewriteLevel(ctx context.Context, req access.Requester, postID string, nodes []Node, lm LockedMap) ([]Node, error) {
	out := make([]Node, 0, len(nodes))

	gated := false
	gateOpen := false  // el requester tiene el item post-level
	regionCut := false // ya emitimos el placeholder de la región actual

	for _, n := range nodes {
		if n.Type == NodeTypeGate {
			gated = true
			regionCut = false

			lock, ok := lm.PostLock()
			if !ok {
				// Gate sin item: heredado como libre (fail open).
				s.log.Warn("gate sin item post-level, región tratada como libre", map[string]any{
					"post_id": postID,
				})
				gateOpen = true
				continue
			}

			// Resolución por criterio (post, scope, selector): si el
			// item referido ya no existe, la región queda libre.
			allowed, err := s.resolver.IsUnlocked(ctx, req, postID, items.ScopePost, "")
			if err != nil {
				return nil, err
			}
			gateOpen = allowed
			if !allowed {
				// El gate en sí se muestra como affordance de compra.
				node, err := s.placeholderForLock(ctx, lock)
				if err != nil {
					return nil, err
				}
				out = append(out, node)
			}
			continue
		}

		if gated && !gateOpen && !n.Free {
			// Región lineal bloqueada: un solo placeholder por tramo
			// contiguo, sin recursar (cero filtración de descendientes).
			if !regionCut {
				regionCut = true
				if lock, ok := lm.PostLock(); ok {
					node, err := s.placeholderForLock(ctx, lock)
					if err != nil {
						return nil, err
					}
					out = append(out, node)
				}
			}
			continue
		}
		if gated && n.Free {
			regionCut = false
		}

		rewritten, err := s.rewriteNode(ctx, req, postID, n, lm)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten)
	}

	return out, nil
}

// rewriteNode aplica locks de bloque y de párrafo a un nodo suelto.
func (s *Service) rewriteNode(ctx context.Context, req access.Requester, postID string, n Node, lm LockedMap) (Node, error) {
	// Lock a nivel bloque/media: si no hay acceso se reemplaza el nodo
	// entero y no se recursa (los hijos no existen para este requester).
	if lock, ok := lm.BlockLock(n.ClientID); ok && n.Locked {
		allowed, err := s.resolver.IsUnlocked(ctx, req, postID, lock.Scope, lock.Selector)
		if err != nil {
			return Node{}, err
		}
		if !allowed {
			return s.placeholderForLock(ctx, lock)
		}
	}

	// Locks de párrafo: solo los índices marcados se reemplazan inline;
	// el resto del texto del nodo queda visible.
	if locks := lm.ParagraphLocks(n.ClientID); len(locks) > 0 && n.Text != "" {
		text, err := s.rewriteParagraphs(ctx, req, postID, n.Text, locks)
		if err != nil {
			return Node{}, err
		}
		n.Text = text
	}

	// Transform puro: copiamos los hijos reescritos a un slice nuevo.
	if len(n.Children) > 0 {
		children, err := s.rewriteLevel(ctx, req, postID, n.Children, lm)
		if err != nil {
			return Node{}, err
		}
		n.Children = children
	}

	return n, nil
}

func (s *Service) rewriteParagraphs(ctx context.Context, req access.Requester, postID, text string, locks map[int]Lock) (string, error) {
	paragraphs := splitParagraphs(text)

	for idx, lock := range locks {
		if idx >= len(paragraphs) {
			continue
		}
		allowed, err := s.resolver.IsUnlocked(ctx, req, postID, lock.Scope, lock.Selector)
		if err != nil {
			return "", err
		}
		if allowed {
			continue
		}
		paragraphs[idx] = s.inlinePlaceholderText(ctx, lock)
	}

	return joinParagraphs(paragraphs), nil
}

// placeholderForLock arma el nodo placeholder: etiqueta, precio
// formateado, texto de expiración y la affordance que el colaborador de
// pagos usa para iniciar la compra.
func (s *Service) placeholderForLock(ctx context.Context, lock Lock) (Node, error) {
	it, err := s.items.GetByID(ctx, lock.ItemID)
	if err != nil {
		// Item borrado bajo el lock: placeholder genérico, sin precio.
		s.log.Warn("placeholder sin item, se emite genérico", map[string]any{
			"item_id": lock.ItemID,
		})
		return Node{
			Type: NodeTypePlaceholder,
			Text: "Premium content",
			Attrs: map[string]any{
				"scope": string(lock.Scope),
			},
		}, nil
	}

	price := it.FormattedPrice()
	attrs := map[string]any{
		"item_id": it.ID,
		"scope":   string(it.Scope),
		"label":   "Premium content",
		"price":   price,
		"cta": map[string]any{
			"action":  "purchase",
			"item_id": it.ID,
		},
	}
	if it.ExpiresDays != nil {
		attrs["expires_text"] = fmt.Sprintf("Access for %d days", *it.ExpiresDays)
	}

	return Node{
		Type:  NodeTypePlaceholder,
		Attrs: attrs,
		Text:  fmt.Sprintf("Unlock this %s for %s", scopeWord(it.Scope), price),
	}, nil
}

func (s *Service) inlinePlaceholderText(ctx context.Context, lock Lock) string {
	it, err := s.items.GetByID(ctx, lock.ItemID)
	if err != nil {
		return "[Premium content]"
	}
	return fmt.Sprintf("[Unlock this paragraph for %s]", it.FormattedPrice())
}

func scopeWord(scope items.Scope) string {
	switch scope {
	case items.ScopeBlock:
		return "block"
	case items.ScopeParagraph:
		return "paragraph"
	case items.ScopeMedia:
		return "media"
	default:
		return "post"
	}
}
