// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Media     MediaConfig     `koanf:"media"`
	Content   ContentConfig   `koanf:"content"`
	Presence  PresenceConfig  `koanf:"presence"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// DrainDelay is how long /readyz reports unavailable before the
	// listener stops, so load balancers can take the instance out.
	DrainDelay   time.Duration `koanf:"drain_delay"`
	MaxBodyBytes int64         `koanf:"max_body_bytes"`

	// TrustedProxies lists the addresses or CIDR ranges whose forwarding
	// headers are believed. Empty means clients are keyed by peer address.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver          string        `koanf:"driver"`
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// RedisConfig is optional: with an empty URL the rate limiter runs on its
// in-process fallback and presence events are not published.
type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath string `koanf:"private_key_path"`
	PublicKeyPath  string `koanf:"public_key_path"`
	Issuer         string `koanf:"issuer"`
	Audience       string `koanf:"audience"`
	GenerateKeys   bool   `koanf:"generate_keys"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`

	// Login and register share a tighter budget keyed by client address.
	CredentialRequests int `koanf:"credential_requests"`
	CredentialBurst    int `koanf:"credential_burst"`

	// Uploads are budgeted per account.
	UploadRequests int `koanf:"upload_requests"`
	UploadBurst    int `koanf:"upload_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

type MediaConfig struct {
	PublicBaseURL string        `koanf:"public_base_url"`
	MaxUploadSize int64         `koanf:"max_upload_size"`
	Storage       StorageConfig `koanf:"storage"`
}

type StorageConfig struct {
	Backend string          `koanf:"backend"`
	FS      FSStorageConfig `koanf:"fs"`
	S3      S3StorageConfig `koanf:"s3"`
}

type FSStorageConfig struct {
	BaseDir string `koanf:"base_dir"`
}

type S3StorageConfig struct {
	Bucket          string        `koanf:"bucket"`
	Region          string        `koanf:"region"`
	Endpoint        string        `koanf:"endpoint"`
	AccessKeyID     string        `koanf:"access_key_id"`
	SecretAccessKey string        `koanf:"secret_access_key"`
	UsePathStyle    bool          `koanf:"use_path_style"`
	PresignDuration time.Duration `koanf:"presign_duration"`
	CreateBucket    bool          `koanf:"create_bucket"`
}

type ContentConfig struct {
	RejectStatusElevation bool `koanf:"reject_status_elevation"`
}

type PresenceConfig struct {
	Enabled bool   `koanf:"enabled"`
	Channel string `koanf:"channel"`
}

// Load layers built-in defaults, an optional YAML file and the
// environment, in that order, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	c, err := unmarshal(k)
	if err != nil {
		return nil, err
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return c, nil
}

// Defaults returns a fully populated config without reading files or the
// environment.
func Defaults() (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, err
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "MediaHub",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "5m",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.drain_delay":      "5s",
		"server.trusted_proxies":  []string{},
		"server.max_body_bytes":   10 << 20,

		"database.driver":             DriverPostgres,
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.issuer":           "mediahub",
		"jwt.audience":         "mediahub-api",
		"jwt.private_key_path": "keys/private.pem",
		"jwt.public_key_path":  "keys/public.pem",
		"jwt.generate_keys":    false,

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"rate_limit.credential_requests": 10,
		"rate_limit.credential_burst":    5,
		"rate_limit.upload_requests":     30,
		"rate_limit.upload_burst":        10,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"Range",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "mediahub",

		"media.public_base_url":             "http://localhost:8000",
		"media.max_upload_size":             500 << 20,
		"media.storage.backend":             StorageFS,
		"media.storage.fs.base_dir":         "uploads",
		"media.storage.s3.region":           "us-east-1",
		"media.storage.s3.presign_duration": "1h",

		"content.reject_status_elevation": false,

		"presence.enabled": false,
		"presence.channel": "mediahub:presence",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_DRIVER":                "database.driver",
	"DATABASE_URL":                   "database.url",
	"DATABASE_AUTO_MIGRATE":          "database.auto_migrate",
	"REDIS_URL":                      "redis.url",
	"ENVIRONMENT":                    "app.environment",
	"HOST":                           "server.host",
	"PORT":                           "server.port",
	"TRUSTED_PROXIES":                "server.trusted_proxies",
	"LOG_LEVEL":                      "log.level",
	"LOG_FORMAT":                     "log.format",
	"JWT_PRIVATE_KEY_PATH":           "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":            "jwt.public_key_path",
	"JWT_ISSUER":                     "jwt.issuer",
	"JWT_AUDIENCE":                   "jwt.audience",
	"JWT_GENERATE_KEYS":              "jwt.generate_keys",
	"RATE_LIMIT_REQUESTS":            "rate_limit.requests",
	"RATE_LIMIT_WINDOW":              "rate_limit.window",
	"RATE_LIMIT_BURST":               "rate_limit.burst",
	"RATE_LIMIT_CREDENTIAL_REQUESTS": "rate_limit.credential_requests",
	"RATE_LIMIT_CREDENTIAL_BURST":    "rate_limit.credential_burst",
	"RATE_LIMIT_UPLOAD_REQUESTS":     "rate_limit.upload_requests",
	"RATE_LIMIT_UPLOAD_BURST":        "rate_limit.upload_burst",
	"OTEL_ENDPOINT":                  "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT":    "otel.endpoint",
	"OTEL_SERVICE_NAME":              "otel.service_name",
	"OTEL_ENABLED":                   "otel.enabled",
	"OTEL_INSECURE":                  "otel.insecure",
	"OTEL_SAMPLE_RATE":               "otel.sample_rate",
	"PUBLIC_BASE_URL":                "media.public_base_url",
	"MEDIA_MAX_UPLOAD_SIZE":          "media.max_upload_size",
	"STORAGE_BACKEND":                "media.storage.backend",
	"STORAGE_FS_BASE_DIR":            "media.storage.fs.base_dir",
	"S3_BUCKET":                      "media.storage.s3.bucket",
	"S3_REGION":                      "media.storage.s3.region",
	"S3_ENDPOINT":                    "media.storage.s3.endpoint",
	"S3_ACCESS_KEY_ID":               "media.storage.s3.access_key_id",
	"S3_SECRET_ACCESS_KEY":           "media.storage.s3.secret_access_key",
	"S3_USE_PATH_STYLE":              "media.storage.s3.use_path_style",
	"S3_CREATE_BUCKET":               "media.storage.s3.create_bucket",
	"CONTENT_REJECT_ELEVATION":       "content.reject_status_elevation",
	"PRESENCE_ENABLED":               "presence.enabled",
	"PRESENCE_CHANNEL":               "presence.channel",
}

// envListKeys are read from the environment as comma-separated lists.
var envListKeys = map[string]bool{
	"server.trusted_proxies": true,
}

func envValue(name, value string) (string, any) {
	key, ok := envKeyMap[name]
	if !ok {
		return "", nil
	}
	if !envListKeys[key] {
		return key, value
	}

	items := []string{}
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

func validate(c *Config) error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.JWT.GenerateKeys {
			return fmt.Errorf("JWT_GENERATE_KEYS must be false in production")
		}
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.CredentialRequests <= 0 ||
		c.RateLimit.UploadRequests <= 0 {
		return fmt.Errorf("rate limit requests must be positive")
	}

	if _, err := c.Server.ProxyPrefixes(); err != nil {
		return err
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if !strings.HasPrefix(c.Media.PublicBaseURL, "http://") &&
		!strings.HasPrefix(c.Media.PublicBaseURL, "https://") {
		return fmt.Errorf("media.public_base_url must be an absolute http(s) URL")
	}

	switch c.Media.Storage.Backend {
	case StorageFS:
		if c.Media.Storage.FS.BaseDir == "" {
			return fmt.Errorf("media.storage.fs.base_dir is required")
		}
	case StorageS3:
		if c.Media.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Media.Storage.Backend)
	}

	if c.Presence.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when presence is enabled")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ProxyPrefixes parses TrustedProxies. A bare address is a single-host
// range.
func (s ServerConfig) ProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("server.trusted_proxies: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
