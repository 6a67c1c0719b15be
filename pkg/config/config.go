package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"OddsEdge/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Markets        []string      `yaml:"markets"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		ReconnectMax   time.Duration `yaml:"reconnect_max"`
		MaxRetries     int           `yaml:"max_retries"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		// OpportunitiesTopic, when set, fans detected opportunities out to
		// Kafka for downstream consumers (alerting bots, research pipelines).
		OpportunitiesTopic string `yaml:"opportunities_topic"`
		Consumer           struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled      bool          `yaml:"enabled"`
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		Database     string        `yaml:"database"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		AsyncInsert  bool          `yaml:"async_insert"`
		WaitForAsync bool          `yaml:"wait_for_async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"clickhouse"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Engine struct {
		TickInterval       time.Duration      `yaml:"tick_interval"`
		QuoteTTL           time.Duration      `yaml:"quote_ttl"`
		SharpBooks         []string           `yaml:"sharp_books"`
		BookWeights        map[string]float64 `yaml:"book_weights"`
		MinSharpBooks      int                `yaml:"min_sharp_books"`
		MaxConsensusSpread float64            `yaml:"max_consensus_spread"`
		MinEvBps           float64            `yaml:"min_ev_bps"`
	} `yaml:"engine"`
	Delivery struct {
		LiveInterval     time.Duration `yaml:"live_interval"`
		PrematchInterval time.Duration `yaml:"prematch_interval"`
		Heartbeat        time.Duration `yaml:"heartbeat"`
		FreeRoiCapBps    float64       `yaml:"free_roi_cap_bps"`
		FreeLimit        int           `yaml:"free_limit"`
		ProLimit         int           `yaml:"pro_limit"`
		EntitlementTTL   time.Duration `yaml:"entitlement_ttl"`
		TeaserTTL        time.Duration `yaml:"teaser_ttl"`
	} `yaml:"delivery"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("MARKETS"); v != "" {
		c.Feed.Markets = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = util.ParseIntDefault(v, c.Redis.Port)
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.TickInterval <= 0 {
		c.Engine.TickInterval = 2 * time.Second
	}
	if c.Engine.MinSharpBooks <= 0 {
		c.Engine.MinSharpBooks = 2
	}
	if c.Delivery.LiveInterval <= 0 {
		c.Delivery.LiveInterval = 2 * time.Second
	}
	if c.Delivery.PrematchInterval <= 0 {
		c.Delivery.PrematchInterval = 15 * time.Second
	}
	if c.Delivery.FreeRoiCapBps <= 0 {
		c.Delivery.FreeRoiCapBps = 100
	}
	if c.Delivery.FreeLimit <= 0 {
		c.Delivery.FreeLimit = 100
	}
	if c.Delivery.ProLimit <= 0 {
		c.Delivery.ProLimit = 1000
	}
	if c.Delivery.EntitlementTTL <= 0 {
		c.Delivery.EntitlementTTL = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feed.WebSocketURL == "" && !c.Kafka.Enabled {
		return fmt.Errorf("at least one quote source is required (feed.websocket_url or kafka)")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if len(c.Engine.SharpBooks) == 0 {
		return fmt.Errorf("engine.sharp_books cannot be empty")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	return nil
}
