package items

import "time"

// Scope es la granularidad de un lock.
type Scope string

const (
	ScopePost       Scope = "post"
	ScopeBlock      Scope = "block"
	ScopeParagraph  Scope = "paragraph"
	ScopeMedia      Scope = "media"
	ScopeRoutePrint Scope = "route_print"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Item es una unidad bloqueable de contenido, identificada por
// (post, scope, selector). Selector vacío para scope=post; client id
// para block; "<client-id>:<índice>" para paragraph.
type Item struct {
	ID string

	PostID   string
	Scope    Scope
	Selector string

	PriceMinor int64  // unidades menores (centavos)
	Currency   string // ISO-4217 dentro del set permitido

	// ExpiresDays: nil = el entitlement nunca expira; >0 = días desde
	// el momento del grant.
	ExpiresDays *int

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}
