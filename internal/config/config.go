package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InsecureDefaultSecret is used when SECRET_KEY is not set. Tokens signed with it
// can be forged by anyone who reads this file.
const InsecureDefaultSecret = "insecure-default-secret-key"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Postgres PostgresConfig
	Storage  StorageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr           string
	GinMode        string
	AllowedOrigins []string
}

type AuthConfig struct {
	SecretKey      string
	InsecureSecret bool
	AccessTTL      time.Duration
	BcryptCost     int
	SweepInterval  time.Duration
}

type PostgresConfig struct {
	DatabaseURL    string
	Host           string
	Port           string
	User           string
	Password       string
	Database       string
	SSLMode        string
	ConnectRetries uint64
}

type StorageConfig struct {
	Backend        string
	UploadDir      string
	MaxUploadBytes int64
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKeyID  string
	S3SecretKey    string
	S3UsePathStyle bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the process environment. A .env file in the
// working directory is loaded first if it exists; real env vars win.
func Load() Config {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) Config {
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REVOKED_TOKEN_SWEEP_INTERVAL", "1h")
	v.SetDefault("PGHOST", "localhost")
	v.SetDefault("PGPORT", "5432")
	v.SetDefault("PGSSLMODE", "disable")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	secret := v.GetString("SECRET_KEY")
	insecure := strings.TrimSpace(secret) == ""
	if insecure {
		secret = InsecureDefaultSecret
	}

	return Config{
		Server: ServerConfig{
			Addr:           v.GetString("HTTP_ADDR"),
			GinMode:        v.GetString("GIN_MODE"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Auth: AuthConfig{
			SecretKey:      secret,
			InsecureSecret: insecure,
			AccessTTL:      time.Duration(v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES")) * time.Minute,
			BcryptCost:     v.GetInt("BCRYPT_COST"),
			SweepInterval:  v.GetDuration("REVOKED_TOKEN_SWEEP_INTERVAL"),
		},
		Postgres: PostgresConfig{
			DatabaseURL:    v.GetString("DATABASE_URL"),
			Host:           v.GetString("PGHOST"),
			Port:           v.GetString("PGPORT"),
			User:           v.GetString("PGUSER"),
			Password:       v.GetString("PGPASSWORD"),
			Database:       v.GetString("PGDATABASE"),
			SSLMode:        v.GetString("PGSSLMODE"),
			ConnectRetries: v.GetUint64("DB_CONNECT_RETRIES"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(v.GetString("STORAGE_BACKEND")),
			UploadDir:      v.GetString("UPLOAD_DIR"),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
			S3Bucket:       v.GetString("S3_BUCKET"),
			S3Region:       v.GetString("S3_REGION"),
			S3Endpoint:     v.GetString("S3_ENDPOINT"),
			S3AccessKeyID:  v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretKey:    v.GetString("S3_SECRET_ACCESS_KEY"),
			S3UsePathStyle: v.GetBool("S3_USE_PATH_STYLE"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
