package config

import (
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Redis       RedisConfig
	JWT         JWTConfig
	OIDC        OIDCConfig
	Gateway     GatewayConfig
	RateLimit   RateLimitConfig
	Generation  GenerationConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	ObjectStore ObjectStoreConfig
	Mongo       MongoConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	BodyLimit int // bytes
}

type LogConfig struct {
	Level string
	File  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type OIDCConfig struct {
	Issuer   string
	Audience string
}

type GatewayConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	GeneratePerHour int
}

type GenerationConfig struct {
	ChunkSize         int
	Workers           int
	MaxRecords        int
	Concurrency       int // asynq jobs processed at once
	ChunkAttempts     int
	ChunkBackoff      time.Duration
	SinkAttempts      int
	SinkBackoff       time.Duration
	SinkBackoffMax    time.Duration
	BackoffMultiplier float64
}

type StorageConfig struct {
	OutputDir string
	SchemaDir string
	Retention time.Duration
	Cleanup   string // cron spec
}

type DatabaseConfig struct {
	Driver          string // pgx, postgres, mysql, sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ObjectStoreConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	PublicURL       string
	UsePathStyle    bool
}

type MongoConfig struct {
	URI      string
	Database string
}

// Configured reports whether credentials and a bucket are present.
func (c ObjectStoreConfig) Configured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("DATABASE_DSN")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")
	readSecret("MONGO_URI")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.body_limit", "SERVER_BODY_LIMIT")
	_ = viper.BindEnv("log.level", "LOG_LEVEL")
	_ = viper.BindEnv("log.file", "LOG_FILE")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("oidc.issuer", "OIDC_ISSUER")
	_ = viper.BindEnv("oidc.audience", "OIDC_AUDIENCE")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")
	_ = viper.BindEnv("generation.chunk_size", "GENERATION_CHUNK_SIZE")
	_ = viper.BindEnv("generation.workers", "GENERATION_WORKERS")
	_ = viper.BindEnv("generation.max_records", "GENERATION_MAX_RECORDS")
	_ = viper.BindEnv("generation.concurrency", "GENERATION_CONCURRENCY")
	_ = viper.BindEnv("generation.chunk_attempts", "GENERATION_CHUNK_ATTEMPTS")
	_ = viper.BindEnv("generation.chunk_backoff", "GENERATION_CHUNK_BACKOFF")
	_ = viper.BindEnv("generation.sink_attempts", "GENERATION_SINK_ATTEMPTS")
	_ = viper.BindEnv("generation.sink_backoff", "GENERATION_SINK_BACKOFF")
	_ = viper.BindEnv("generation.sink_backoff_max", "GENERATION_SINK_BACKOFF_MAX")
	_ = viper.BindEnv("storage.output_dir", "STORAGE_OUTPUT_DIR")
	_ = viper.BindEnv("storage.schema_dir", "STORAGE_SCHEMA_DIR")
	_ = viper.BindEnv("storage.retention", "STORAGE_RETENTION")
	_ = viper.BindEnv("storage.cleanup", "STORAGE_CLEANUP")
	_ = viper.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = viper.BindEnv("database.dsn", "DATABASE_DSN")
	_ = viper.BindEnv("object_store.endpoint", "S3_ENDPOINT")
	_ = viper.BindEnv("object_store.region", "S3_REGION")
	_ = viper.BindEnv("object_store.access_key_id", "S3_ACCESS_KEY_ID")
	_ = viper.BindEnv("object_store.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("object_store.bucket", "S3_BUCKET")
	_ = viper.BindEnv("object_store.prefix", "S3_PREFIX")
	_ = viper.BindEnv("object_store.public_url", "S3_PUBLIC_URL")
	_ = viper.BindEnv("object_store.use_path_style", "S3_USE_PATH_STYLE")
	_ = viper.BindEnv("mongo.uri", "MONGO_URI")
	_ = viper.BindEnv("mongo.database", "MONGO_DATABASE")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.body_limit", 10*1024*1024)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", "datasynth.log")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("gateway.enabled", false)
	viper.SetDefault("ratelimit.generate_per_hour", 60)

	// Generation defaults
	viper.SetDefault("generation.chunk_size", 1000)
	viper.SetDefault("generation.workers", runtime.NumCPU())
	viper.SetDefault("generation.max_records", 5_000_000)
	viper.SetDefault("generation.concurrency", 2)
	viper.SetDefault("generation.chunk_attempts", 3)
	viper.SetDefault("generation.chunk_backoff", "1s")
	viper.SetDefault("generation.sink_attempts", 3)
	viper.SetDefault("generation.sink_backoff", "4s")
	viper.SetDefault("generation.sink_backoff_max", "10s")
	viper.SetDefault("generation.backoff_multiplier", 2.0)

	// Staging area defaults
	viper.SetDefault("storage.output_dir", "generated_data")
	viper.SetDefault("storage.schema_dir", "schema")
	viper.SetDefault("storage.retention", "168h")
	viper.SetDefault("storage.cleanup", "@hourly")

	// Relational defaults: a local SQLite file so the sink works out of the box
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "generated_data/synthetic.db")
	viper.SetDefault("database.max_open_conns", 5)
	viper.SetDefault("database.max_idle_conns", 2)
	viper.SetDefault("database.conn_max_lifetime", "10m")

	// Object store defaults
	viper.SetDefault("object_store.region", "us-east-1")
	viper.SetDefault("object_store.prefix", "synthetic/")

	// Mongo defaults
	viper.SetDefault("mongo.database", "datasynth")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			BodyLimit: viper.GetInt("server.body_limit"),
		},
		Log: LogConfig{
			Level: viper.GetString("log.level"),
			File:  viper.GetString("log.file"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		OIDC: OIDCConfig{
			Issuer:   viper.GetString("oidc.issuer"),
			Audience: viper.GetString("oidc.audience"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
		Generation: GenerationConfig{
			ChunkSize:         viper.GetInt("generation.chunk_size"),
			Workers:           viper.GetInt("generation.workers"),
			MaxRecords:        viper.GetInt("generation.max_records"),
			Concurrency:       viper.GetInt("generation.concurrency"),
			ChunkAttempts:     viper.GetInt("generation.chunk_attempts"),
			ChunkBackoff:      viper.GetDuration("generation.chunk_backoff"),
			SinkAttempts:      viper.GetInt("generation.sink_attempts"),
			SinkBackoff:       viper.GetDuration("generation.sink_backoff"),
			SinkBackoffMax:    viper.GetDuration("generation.sink_backoff_max"),
			BackoffMultiplier: viper.GetFloat64("generation.backoff_multiplier"),
		},
		Storage: StorageConfig{
			OutputDir: viper.GetString("storage.output_dir"),
			SchemaDir: viper.GetString("storage.schema_dir"),
			Retention: viper.GetDuration("storage.retention"),
			Cleanup:   viper.GetString("storage.cleanup"),
		},
		Database: DatabaseConfig{
			Driver:          viper.GetString("database.driver"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:        viper.GetString("object_store.endpoint"),
			Region:          viper.GetString("object_store.region"),
			AccessKeyID:     viper.GetString("object_store.access_key_id"),
			SecretAccessKey: viper.GetString("object_store.secret_access_key"),
			Bucket:          viper.GetString("object_store.bucket"),
			Prefix:          viper.GetString("object_store.prefix"),
			PublicURL:       viper.GetString("object_store.public_url"),
			UsePathStyle:    viper.GetBool("object_store.use_path_style"),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("mongo.uri"),
			Database: viper.GetString("mongo.database"),
		},
	}

	return cfg, nil
}
