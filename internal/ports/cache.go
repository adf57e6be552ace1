package ports

import "context"

// RecentEventsCache fronts the Query API's hot path. Payloads are the JSON
// encoding of the response slice; the cache never sees domain types.
type RecentEventsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte) error
	Invalidate(ctx context.Context) error
}
