package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort       = 8080
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "prenava"
	defaultDBCharset  = "utf8mb4"
	defaultRedisURL   = "redis://localhost:6379/0"

	defaultViewDedupWindowHours = 24
	defaultLikeMarkerTTLHours   = 720
	defaultSyncIntervalMinutes  = 10
	defaultWalletSyncAt         = "02:00"
)

// AppConfig holds runtime startup configuration loaded from YAML with
// environment-variable overrides (env wins).
type AppConfig struct {
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"` // "development" | "production"
	DSN            string   `yaml:"dsn"` // full MySQL DSN; overrides db_* parts
	RedisURL       string   `yaml:"redis_url"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Database DatabaseConfig `yaml:"database"`

	// TokenTTLHours maps role -> token lifetime; 0 or absent means the token
	// carries no expiry claim and dies only by revocation.
	TokenTTLHours        map[string]int `yaml:"token_ttl_hours"`
	TokenTTLHoursDefault int            `yaml:"token_ttl_hours_default"`

	ViewDedupWindowHours int     `yaml:"view_dedup_window_hours"`
	LikeMarkerTTLHours   int     `yaml:"like_marker_ttl_hours"`
	SyncIntervalMinutes  int     `yaml:"sync_interval_minutes"`
	WalletSyncAt         string  `yaml:"wallet_sync_at"` // "HH:MM" local time
	WalletPricePerView   float64 `yaml:"wallet_price_per_view"`

	RecommenderURL string `yaml:"recommender_url"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

// Load reads the YAML file (missing file is fine: env/defaults only), applies
// environment overrides, and fills defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	envStr(&c.Env, "ENV", "APP_ENV")
	envInt(&c.Port, "PORT")
	envStr(&c.DSN, "DSN", "DATABASE_DSN")
	envStr(&c.RedisURL, "REDIS_URL")
	envStr(&c.JWTSecret, "JWT_SECRET")
	envStr(&c.Database.Host, "DB_HOST")
	envInt(&c.Database.Port, "DB_PORT")
	envStr(&c.Database.User, "DB_USER")
	envStr(&c.Database.Password, "DB_PASSWORD")
	envStr(&c.Database.Name, "DB_NAME")

	envInt(&c.TokenTTLHoursDefault, "JWT_TTL_HOURS_DEFAULT")
	for _, role := range []string{"admin", "bidan", "dinkes", "ibu_hamil"} {
		key := "JWT_TTL_HOURS_" + strings.ToUpper(role)
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				if c.TokenTTLHours == nil {
					c.TokenTTLHours = map[string]int{}
				}
				c.TokenTTLHours[role] = n
			}
		}
	}

	envInt(&c.ViewDedupWindowHours, "VIEW_DEDUP_WINDOW_HOURS")
	envInt(&c.LikeMarkerTTLHours, "LIKE_MARKER_TTL_HOURS")
	envInt(&c.SyncIntervalMinutes, "SYNC_INTERVAL_MINUTES")
	envStr(&c.WalletSyncAt, "WALLET_SYNC_AT")
	envFloat(&c.WalletPricePerView, "WALLET_PRICE_PER_VIEW")
	envStr(&c.RecommenderURL, "RECOMMENDER_URL")

	if v, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = defaultEnv
	}
	if strings.TrimSpace(c.RedisURL) == "" {
		c.RedisURL = defaultRedisURL
	}
	if c.ViewDedupWindowHours <= 0 {
		c.ViewDedupWindowHours = defaultViewDedupWindowHours
	}
	if c.LikeMarkerTTLHours <= 0 {
		c.LikeMarkerTTLHours = defaultLikeMarkerTTLHours
	}
	if c.SyncIntervalMinutes <= 0 {
		c.SyncIntervalMinutes = defaultSyncIntervalMinutes
	}
	if strings.TrimSpace(c.WalletSyncAt) == "" {
		c.WalletSyncAt = defaultWalletSyncAt
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}

// DSNValue returns the full MySQL DSN, building one from the db_* parts when
// an explicit DSN is not configured.
func (c *AppConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}

	d := c.Database
	host := strings.TrimSpace(d.Host)
	if host == "" {
		host = defaultDBHost
	}
	port := d.Port
	if port == 0 {
		port = defaultDBPort
	}
	user := strings.TrimSpace(d.User)
	if user == "" {
		user = defaultDBUser
	}
	password := strings.TrimSpace(d.Password)
	if password == "" {
		password = defaultDBPassword
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = defaultDBName
	}
	charset := strings.TrimSpace(d.Charset)
	if charset == "" {
		charset = defaultDBCharset
	}

	params := url.Values{}
	params.Set("charset", charset)
	params.Set("parseTime", "True")
	params.Set("loc", "Local")
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", user, password, host, port, name, params.Encode())
}

// TokenTTL returns the configured token lifetime for a role, falling back to
// the default. Zero means "no expiry claim".
func (c *AppConfig) TokenTTL(role string) time.Duration {
	role = strings.ToLower(strings.TrimSpace(role))
	if hours, ok := c.TokenTTLHours[role]; ok {
		return time.Duration(hours) * time.Hour
	}
	return time.Duration(c.TokenTTLHoursDefault) * time.Hour
}

// ViewDedupWindow is the TTL of the per-user view dedup marker.
func (c *AppConfig) ViewDedupWindow() time.Duration {
	return time.Duration(c.ViewDedupWindowHours) * time.Hour
}

// LikeMarkerTTL is the defensive TTL on like markers. Correctness does not
// depend on it; LikesSync treats the cache as authoritative.
func (c *AppConfig) LikeMarkerTTL() time.Duration {
	return time.Duration(c.LikeMarkerTTLHours) * time.Hour
}

// SyncInterval is the period between counter reconciliation runs.
func (c *AppConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

// WalletSyncTime parses the wallet accrual time-of-day ("HH:MM").
func (c *AppConfig) WalletSyncTime() (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(c.WalletSyncAt), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid wallet_sync_at %q", c.WalletSyncAt)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid wallet_sync_at %q", c.WalletSyncAt)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid wallet_sync_at %q", c.WalletSyncAt)
	}
	return hour, minute, nil
}

func envStr(dst *string, keys ...string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
			return
		}
	}
}

func envInt(dst *int, keys ...string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
				return
			}
		}
	}
}

func envFloat(dst *float64, keys ...string) {
	for _, key := range keys {
		if v, ok := os.LookupEnv(key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
				return
			}
		}
	}
}
