package content

import (
	"time"

	"paywall-anywhere/internal/domain/items"
)

// Tipos de nodo con significado propio para el paywall. Cualquier otro
// Type (paragraph, heading, image, ...) es contenido del host y pasa
// tal cual.
const (
	// NodeTypeGate marca el corte: todo hermano posterior queda bajo el
	// item post-level salvo que esté marcado Free.
	NodeTypeGate = "paywall/gate"

	// NodeTypePlaceholder es lo que emitimos en lugar de contenido
	// bloqueado en superficies interactivas.
	NodeTypePlaceholder = "paywall/placeholder"
)

// Node es un nodo del árbol de contenido que nos entrega el host.
// El transform de render es puro: devuelve un árbol nuevo, nunca muta
// el de entrada.
type Node struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id,omitempty"`

	// Free exime al nodo de la región bloqueada por un gate anterior.
	Free bool `json:"free,omitempty"`

	// Locked marca lock a nivel bloque (o media, según Type).
	Locked bool `json:"locked,omitempty"`

	// LockedParagraphs marca párrafos puntuales dentro de Text
	// (índices sobre los bloques separados por línea en blanco).
	LockedParagraphs []int `json:"locked_paragraphs,omitempty"`

	Text string `json:"text,omitempty"`

	Attrs map[string]any `json:"attrs,omitempty"`

	Children []Node `json:"children,omitempty"`
}

// IsMedia distingue nodos de media para asignar scope media en vez de
// block al construir el locked map.
func (n Node) IsMedia() bool {
	switch n.Type {
	case "image", "video", "audio", "media":
		return true
	}
	return false
}

// Lock es una entrada del locked map: linkage (scope, selector) → item.
type Lock struct {
	Scope    items.Scope `json:"scope"`
	Selector string      `json:"selector"`
	ItemID   string      `json:"item_id"`
}

// LockedMap es el snapshot por post de los locks de su contenido.
// Se reconstruye al guardar el post y es de solo lectura en render.
type LockedMap struct {
	PostID    string
	Entries   []Lock
	UpdatedAt time.Time
}

// BlockLock busca la entrada block/media para un client id.
func (m LockedMap) BlockLock(clientID string) (Lock, bool) {
	if clientID == "" {
		return Lock{}, false
	}
	for _, l := range m.Entries {
		if (l.Scope == items.ScopeBlock || l.Scope == items.ScopeMedia) && l.Selector == clientID {
			return l, true
		}
	}
	return Lock{}, false
}

// PostLock busca la entrada post-level (selector vacío).
func (m LockedMap) PostLock() (Lock, bool) {
	for _, l := range m.Entries {
		if l.Scope == items.ScopePost && l.Selector == "" {
			return l, true
		}
	}
	return Lock{}, false
}

// ParagraphLocks devuelve índice→lock de los párrafos bloqueados de un
// bloque (selectores "<client-id>:<índice>").
func (m LockedMap) ParagraphLocks(clientID string) map[int]Lock {
	if clientID == "" {
		return nil
	}
	prefix := clientID + ":"
	var out map[int]Lock
	for _, l := range m.Entries {
		if l.Scope != items.ScopeParagraph || len(l.Selector) <= len(prefix) {
			continue
		}
		if l.Selector[:len(prefix)] != prefix {
			continue
		}
		idx, ok := parseIndex(l.Selector[len(prefix):])
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[int]Lock)
		}
		out[idx] = l
	}
	return out
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}
