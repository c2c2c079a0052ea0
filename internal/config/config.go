package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/config"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/db"
	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/redis"
)

// MQConfig holds the broker URL for the change feed.
type MQConfig struct {
	URL string `yaml:"url"`
}

// JWTConfig holds the session token secret plus the daemon's own
// service token. The service token establishes the session the engine
// boots under; without one the daemon runs as a local admin session.
type JWTConfig struct {
	Secret       string `yaml:"secret"`
	ServiceToken string `yaml:"service_token"`
}

// ServerConfig holds the HTTP listen port.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// SeedKeyResult is one key result created alongside a seeded objective.
type SeedKeyResult struct {
	Title        string  `yaml:"title"`
	Description  string  `yaml:"description"`
	TargetValue  float64 `yaml:"target_value"`
	CurrentValue float64 `yaml:"current_value"`
	Unit         string  `yaml:"unit"`
}

// SeedConfig describes the aggregate created on first boot when the
// remote store holds no matching objective. Title comes from
// SyncConfig.ObjectiveTitle so lookup and seeding cannot drift apart.
type SeedConfig struct {
	Enabled             bool            `yaml:"enabled"`
	Description         string          `yaml:"description"`
	TargetDate          string          `yaml:"target_date"`
	Location            string          `yaml:"location"`
	BudgetPlanned       float64         `yaml:"budget_planned"`
	StrategicImportance string          `yaml:"strategic_importance"`
	Tags                []string        `yaml:"tags"`
	Currency            string          `yaml:"currency"`
	KeyResults          []SeedKeyResult `yaml:"key_results"`
}

// SyncConfig tunes the engine.
type SyncConfig struct {
	// ObjectiveID is the stable identifier of the shared aggregate. Empty
	// on a first boot, before seeding has issued one; then the engine
	// falls back to an exact ObjectiveTitle match.
	ObjectiveID    string `yaml:"objective_id"`
	ObjectiveTitle string `yaml:"objective_title"`

	// DataDir holds the emergency snapshot file.
	DataDir string `yaml:"data_dir"`

	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	MaxWriteAttempts int           `yaml:"max_write_attempts"`
	AutoSaveInterval time.Duration `yaml:"auto_save_interval"`

	Seed SeedConfig `yaml:"seed"`
}

type Config struct {
	DB     db.Config    `yaml:"db"`
	Redis  redis.Config `yaml:"redis"`
	MQ     MQConfig     `yaml:"mq"`
	JWT    JWTConfig    `yaml:"jwt"`
	Server ServerConfig `yaml:"server"`
	Sync   SyncConfig   `yaml:"sync"`
}

func Load() *Config {
	env := config.Env()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	var cfg Config
	if err := config.Load(env, configDir, &cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	return &cfg
}

// overrideFromEnv applies process environment overrides, highest priority.
func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}
	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWT.Secret = secret
	}
	if token := os.Getenv("SERVICE_TOKEN"); token != "" {
		cfg.JWT.ServiceToken = token
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}
	if id := os.Getenv("OBJECTIVE_ID"); id != "" {
		cfg.Sync.ObjectiveID = id
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8085"
	}
	if cfg.Sync.DataDir == "" {
		cfg.Sync.DataDir = ".ironbrain"
	}
	if cfg.Sync.RetryBaseDelay == 0 {
		cfg.Sync.RetryBaseDelay = time.Second
	}
	if cfg.Sync.MaxWriteAttempts == 0 {
		cfg.Sync.MaxWriteAttempts = 3
	}
	if cfg.Sync.AutoSaveInterval == 0 {
		cfg.Sync.AutoSaveInterval = 30 * time.Second
	}
}
