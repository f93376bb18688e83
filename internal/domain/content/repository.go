package content

import "context"

// LockedMapRepository persiste el snapshot por post. Save reemplaza el
// snapshot entero (upsert); Get devuelve ErrNotFound del adapter si el
// post nunca se escaneó.
type LockedMapRepository interface {
	Save(ctx context.Context, m LockedMap) error
	Get(ctx context.Context, postID string) (LockedMap, error)
	Delete(ctx context.Context, postID string) error
}
