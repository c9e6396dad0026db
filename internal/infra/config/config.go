// internal/infra/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Config はアプリケーション全体の設定を保持します。
// 優先順位: 環境変数 > STOREFRONT_CONFIG の YAML > デフォルト
type Config struct {
	Port   string `yaml:"port"`
	AppEnv string `yaml:"app_env"`

	StoreBackend string `yaml:"store_backend"`
	FixturesFile string `yaml:"fixtures_file"`

	GCPProjectID             string `yaml:"gcp_project_id"`
	FirestoreProjectID       string `yaml:"firestore_project_id"`
	FirestoreCredentialsFile string `yaml:"firestore_credentials_file"`
	FirebaseProjectID        string `yaml:"firebase_project_id"`

	DatabaseURL      string `yaml:"database_url"`
	DBHost           string `yaml:"db_host"`
	DBPort           string `yaml:"db_port"`
	DBUser           string `yaml:"db_user"`
	DBPassword       string `yaml:"db_password"`
	DBPasswordSecret string `yaml:"db_password_secret"`
	DBName           string `yaml:"db_name"`
	DBSSLMode        string `yaml:"db_sslmode"`

	RedisAddr           string `yaml:"redis_addr"`
	RedisPassword       string `yaml:"redis_password"`
	RedisPasswordSecret string `yaml:"redis_password_secret"`
	RedisDB             int    `yaml:"redis_db"`

	CacheListTTL     time.Duration `yaml:"cache_list_ttl"`
	ImpressionBuffer int           `yaml:"impression_buffer"`

	ProductIconBucket string        `yaml:"product_icon_bucket"`
	IconSignerEmail   string        `yaml:"icon_signer_email"`
	IconSignedURLTTL  time.Duration `yaml:"icon_signed_url_ttl"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	AuthDisabled       bool     `yaml:"auth_disabled"`
}

// Load reads STOREFRONT_CONFIG (optional) and then the environment.
func Load() (*Config, error) {
	return LoadWith(os.Getenv, os.ReadFile)
}

// LoadWith is Load with injectable sources (tests).
func LoadWith(getenv func(string) string, readFile func(string) ([]byte, error)) (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(getenv("STOREFRONT_CONFIG")); path != "" {
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Port:             "8080",
		AppEnv:           "development",
		StoreBackend:     BackendFirestore,
		DBPort:           "5432",
		DBSSLMode:        "disable",
		CacheListTTL:     30 * time.Second,
		ImpressionBuffer: 1024,
		IconSignedURLTTL: 15 * time.Minute,
	}
}

func applyEnv(c *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Port)
	str("APP_ENV", &c.AppEnv)
	str("STORE_BACKEND", &c.StoreBackend)
	str("FIXTURES_FILE", &c.FixturesFile)

	str("GCP_PROJECT_ID", &c.GCPProjectID)
	str("GOOGLE_CLOUD_PROJECT", &c.GCPProjectID)
	str("FIRESTORE_PROJECT_ID", &c.FirestoreProjectID)
	str("FIRESTORE_CREDENTIALS_FILE", &c.FirestoreCredentialsFile)
	str("GOOGLE_APPLICATION_CREDENTIALS", &c.FirestoreCredentialsFile)
	str("FIREBASE_PROJECT_ID", &c.FirebaseProjectID)

	str("DATABASE_URL", &c.DatabaseURL)
	str("DB_HOST", &c.DBHost)
	str("DB_PORT", &c.DBPort)
	str("DB_USER", &c.DBUser)
	str("DB_PASSWORD", &c.DBPassword)
	str("DB_PASSWORD_SECRET", &c.DBPasswordSecret)
	str("DB_NAME", &c.DBName)
	str("DB_SSLMODE", &c.DBSSLMode)

	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	str("REDIS_PASSWORD_SECRET", &c.RedisPasswordSecret)

	str("PRODUCT_ICON_BUCKET", &c.ProductIconBucket)
	str("ICON_SIGNER_EMAIL", &c.IconSignerEmail)

	if v := strings.TrimSpace(getenv("REDIS_DB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: REDIS_DB: %w", err)
		}
		c.RedisDB = n
	}
	if v := strings.TrimSpace(getenv("IMPRESSION_BUFFER")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: IMPRESSION_BUFFER: %w", err)
		}
		c.ImpressionBuffer = n
	}
	for key, dst := range map[string]*time.Duration{
		"CACHE_LIST_TTL":      &c.CacheListTTL,
		"ICON_SIGNED_URL_TTL": &c.IconSignedURLTTL,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = d
		}
	}
	if v := strings.TrimSpace(getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		c.CORSAllowedOrigins = splitCSV(v)
	}
	if v := strings.TrimSpace(getenv("AUTH_DISABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: AUTH_DISABLED: %w", err)
		}
		c.AuthDisabled = b
	}
	return nil
}

func (c *Config) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.AppEnv = strings.ToLower(strings.TrimSpace(c.AppEnv))

	// プロジェクト ID は GCP のデフォルトにフォールバック
	if c.FirestoreProjectID == "" {
		c.FirestoreProjectID = c.GCPProjectID
	}
	if c.FirebaseProjectID == "" {
		c.FirebaseProjectID = c.FirestoreProjectID
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
}

// Validate checks backend-specific requirements.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("config: FIRESTORE_PROJECT_ID (or GCP_PROJECT_ID) is required for store_backend=%s", c.StoreBackend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" && c.DBHost == "" {
			return fmt.Errorf("config: DATABASE_URL or DB_HOST is required for store_backend=%s", c.StoreBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown store_backend %q", c.StoreBackend)
	}

	if c.AuthDisabled && c.IsProduction() {
		return fmt.Errorf("config: AUTH_DISABLED is not allowed in production")
	}
	if c.CacheListTTL <= 0 {
		return fmt.Errorf("config: cache_list_ttl must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "prod"
}

// PostgresDSN returns DATABASE_URL, or a key/value DSN built from DB_*.
// password is passed separately so it can come from Secret Manager.
func (c *Config) PostgresDSN(password string) string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, password, c.DBName, c.DBSSLMode)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
