package application

import (
	"log/slog"
	"time"

	"github.com/evstream/cdc-service/internal/ports"
)

type Config struct {
	ServiceName       string
	DefaultQueryLimit int
	MaxQueryLimit     int
	ProbeTimeout      time.Duration
}

type Service struct {
	cfg       Config
	logger    *slog.Logger
	publisher ports.EventPublisher
	events    ports.EventRepository
	cache     ports.RecentEventsCache
	logPinger ports.LogPinger
	upstream  ports.UpstreamProbe
	nowFn     func() time.Time
}

type Dependencies struct {
	Config    Config
	Logger    *slog.Logger
	Publisher ports.EventPublisher
	Events    ports.EventRepository
	Cache     ports.RecentEventsCache
	LogPinger ports.LogPinger
	Upstream  ports.UpstreamProbe
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cdc-service"
	}
	if cfg.DefaultQueryLimit <= 0 {
		cfg.DefaultQueryLimit = 50
	}
	if cfg.MaxQueryLimit <= 0 {
		cfg.MaxQueryLimit = 500
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		logger:    logger,
		publisher: deps.Publisher,
		events:    deps.Events,
		cache:     deps.Cache,
		logPinger: deps.LogPinger,
		upstream:  deps.Upstream,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}
