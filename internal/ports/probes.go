package ports

import "context"

// UpstreamProbe checks reachability of the inference backend that produces
// events ahead of this service.
type UpstreamProbe interface {
	Ping(ctx context.Context) error
}
