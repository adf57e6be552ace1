package application

import (
	"context"
	"fmt"
)

const componentHealthy = "healthy"

// Health probes the log, the store and the upstream producer, each under its
// own short timeout. A probe failure becomes a status string, never an error:
// the endpoint stays structured even when every dependency is down.
func (s *Service) Health(ctx context.Context) HealthResponse {
	components := map[string]string{
		"log":      s.probe(ctx, s.pingLog),
		"store":    s.probe(ctx, s.pingStore),
		"upstream": s.probe(ctx, s.pingUpstream),
	}
	overall := componentHealthy
	for _, status := range components {
		if status != componentHealthy {
			overall = "unhealthy"
			break
		}
	}
	return HealthResponse{
		Status:      overall,
		TimestampMS: s.nowFn().UnixMilli(),
		Components:  components,
	}
}

func (s *Service) probe(ctx context.Context, ping func(context.Context) error) (status string) {
	defer func() {
		if rec := recover(); rec != nil {
			status = fmt.Sprintf("unhealthy: probe panic: %v", rec)
		}
	}()
	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	if err := ping(probeCtx); err != nil {
		return fmt.Sprintf("unhealthy: %v", err)
	}
	return componentHealthy
}

func (s *Service) pingLog(ctx context.Context) error {
	if s.logPinger == nil {
		return fmt.Errorf("log client not configured")
	}
	return s.logPinger.Ping(ctx)
}

func (s *Service) pingStore(ctx context.Context) error {
	if s.events == nil {
		return fmt.Errorf("store client not configured")
	}
	return s.events.Ping(ctx)
}

func (s *Service) pingUpstream(ctx context.Context) error {
	if s.upstream == nil {
		return fmt.Errorf("upstream probe not configured")
	}
	return s.upstream.Ping(ctx)
}
