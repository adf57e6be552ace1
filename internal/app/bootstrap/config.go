package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL       string
	RedisURL          string
	KafkaBrokers      []string
	UpstreamHealthURL string

	MaxDBConns         int32
	KafkaTopic         string
	KafkaConsumerGroup string

	ConsumerBatchSize   int
	ConsumerMaxWait     time.Duration
	FanoutQueueCapacity int
	RecentEventsTTL     time.Duration
	ProbeTimeout        time.Duration
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL        string   `yaml:"postgres_url"`
		RedisURL           string   `yaml:"redis_url"`
		KafkaBrokers       []string `yaml:"kafka_brokers"`
		KafkaTopic         string   `yaml:"kafka_topic"`
		KafkaConsumerGroup string   `yaml:"kafka_consumer_group"`
		UpstreamHealthURL  string   `yaml:"upstream_health_url"`
	} `yaml:"dependencies"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "cdc-service",
		HTTPPort:            8081,
		GRPCPort:            9091,
		MaxDBConns:          10,
		KafkaTopic:          "llm-events",
		KafkaConsumerGroup:  "cdc-consumer",
		ConsumerBatchSize:   50,
		ConsumerMaxWait:     time.Second,
		FanoutQueueCapacity: 1024,
		RecentEventsTTL:     30 * time.Second,
		ProbeTimeout:        2 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaTopic = f.Dependencies.KafkaTopic
		}
		if f.Dependencies.KafkaConsumerGroup != "" {
			cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
		}
		if f.Dependencies.UpstreamHealthURL != "" {
			cfg.UpstreamHealthURL = f.Dependencies.UpstreamHealthURL
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.UpstreamHealthURL = envOrDefault("UPSTREAM_HEALTH_URL", cfg.UpstreamHealthURL)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.ConsumerBatchSize = envInt("CONSUMER_BATCH_SIZE", cfg.ConsumerBatchSize)
	cfg.ConsumerMaxWait = time.Duration(envInt("CONSUMER_MAX_WAIT_MS", int(cfg.ConsumerMaxWait.Milliseconds()))) * time.Millisecond
	cfg.FanoutQueueCapacity = envInt("FANOUT_QUEUE_CAPACITY", cfg.FanoutQueueCapacity)
	cfg.RecentEventsTTL = time.Duration(envInt("RECENT_EVENTS_TTL_SECONDS", int(cfg.RecentEventsTTL.Seconds()))) * time.Second
	cfg.ProbeTimeout = time.Duration(envInt("PROBE_TIMEOUT_MS", int(cfg.ProbeTimeout.Milliseconds()))) * time.Millisecond

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
