// Package metadata persists small named values that survive restarts:
// session tokens, the active user id, the last sync cursor.
package metadata

import "context"

type Repository interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
}
