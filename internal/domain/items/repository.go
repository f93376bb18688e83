package items

import "context"

type Repository interface {
	Create(ctx context.Context, it Item) error
	Update(ctx context.Context, it Item) error
	GetByID(ctx context.Context, id string) (Item, error)

	// ListByPost devuelve solo items activos del post.
	ListByPost(ctx context.Context, postID string) ([]Item, error)

	// FindByCriteria busca el item activo para (post, scope, selector).
	// Si por el race de find-or-create existiera más de uno, devuelve el
	// de created_at más antiguo (first write wins).
	FindByCriteria(ctx context.Context, postID string, scope Scope, selector string) (Item, error)

	Delete(ctx context.Context, id string) error
}
