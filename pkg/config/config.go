package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort  string `yaml:"server_port"`
	Environment string `yaml:"environment"`

	// Store selects the conversation store backend: "firestore" or "memory".
	Store string `yaml:"store"`

	FirebaseProject            string `yaml:"firebase_project_id"`
	FirebaseServiceAccountJSON string `yaml:"-"`
	FirebaseServiceAccountPath string `yaml:"firebase_service_account_path"`
	StorageBucket              string `yaml:"storage_bucket"`

	// InviteOrigin is the SPA origin used to build /group-invite links.
	InviteOrigin string `yaml:"invite_origin"`

	RedisURL      string `yaml:"redis_url"`
	TokenCacheTTL int64  `yaml:"token_cache_ttl_seconds"`

	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"-"`
	VAPIDSubscriber string `yaml:"vapid_subscriber"`

	SendRatePerMinute int `yaml:"send_rate_per_minute"`
	SendBurst         int `yaml:"send_burst"`

	// SystemGroupIDs are protected groups members cannot leave.
	SystemGroupIDs []string `yaml:"system_group_ids"`
}

// Load reads .env (if present), then the optional YAML file named by CONFIG_FILE,
// then environment variables. Environment variables always win.
func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:        "8080",
		Environment:       "development",
		Store:             "firestore",
		InviteOrigin:      "http://localhost:3000",
		TokenCacheTTL:     15 * 60,
		VAPIDSubscriber:   "mailto:admin@bunkmate.app",
		SendRatePerMinute: 30,
		SendBurst:         10,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadYAML(path, config); err != nil {
			return nil, err
		}
	}

	config.ServerPort = getEnv("SERVER_PORT", config.ServerPort)
	config.Environment = getEnv("ENVIRONMENT", config.Environment)
	config.Store = getEnv("STORE", config.Store)
	config.FirebaseProject = getEnv("FIREBASE_PROJECT_ID", config.FirebaseProject)
	config.FirebaseServiceAccountJSON = getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", "")
	config.FirebaseServiceAccountPath = getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", config.FirebaseServiceAccountPath)
	config.StorageBucket = getEnv("STORAGE_BUCKET", config.StorageBucket)
	config.InviteOrigin = strings.TrimSuffix(getEnv("INVITE_ORIGIN", config.InviteOrigin), "/")
	config.RedisURL = getEnv("REDIS_URL", config.RedisURL)
	config.TokenCacheTTL = getEnvAsInt64("TOKEN_CACHE_TTL_SECONDS", config.TokenCacheTTL)
	config.VAPIDPublicKey = getEnv("VAPID_PUBLIC_KEY", config.VAPIDPublicKey)
	config.VAPIDPrivateKey = getEnv("VAPID_PRIVATE_KEY", "")
	config.VAPIDSubscriber = getEnv("VAPID_SUBSCRIBER", config.VAPIDSubscriber)
	config.SendRatePerMinute = int(getEnvAsInt64("SEND_RATE_PER_MINUTE", int64(config.SendRatePerMinute)))
	config.SendBurst = int(getEnvAsInt64("SEND_BURST", int64(config.SendBurst)))
	config.SystemGroupIDs = getEnvAsList("SYSTEM_GROUP_IDS", config.SystemGroupIDs)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "firestore":
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when STORE=firestore")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE %q (want firestore or memory)", c.Store)
	}
	if c.SendRatePerMinute <= 0 || c.SendBurst <= 0 {
		return fmt.Errorf("send rate and burst must be positive")
	}
	return nil
}

// WebPushEnabled reports whether a VAPID key pair is configured.
func (c *Config) WebPushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
