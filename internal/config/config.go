package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	fallbackJWTSecret        = "fallback_secret_change_in_production"
	fallbackJWTRefreshSecret = "fallback_refresh_secret"
)

type Config struct {
	Env           string
	Version       string
	ServerAddress string
	FrontendURL   string
	AdminURL      string

	MongoURI      string
	MongoDatabase string
	MongoTLS      bool
	DataDir       string

	JWTSecret            string
	JWTExpiration        time.Duration
	JWTRefreshSecret     string
	JWTRefreshExpiration time.Duration
	BcryptCost           int
	RecaptchaSecret      string

	RateLimit RateLimitConfig

	ReportThreshold int

	Upload UploadConfig
	Mail   MailConfig

	NotificationRetention time.Duration
	CleanupSchedule       string
}

type RateLimitConfig struct {
	Window            time.Duration
	MaxRequests       int
	AuthMax           int
	CreateEventMax    int
	CreateEventWindow time.Duration
	ChatMax           int
	ChatWindow        time.Duration
}

type UploadConfig struct {
	Backend         string
	Dir             string
	MaxFileSize     int64
	AllowedTypes    []string
	GCSBucket       string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string
	ImageModeration bool
}

type MailConfig struct {
	Provider       string
	Host           string
	Port           int
	User           string
	Password       string
	From           string
	SendGridAPIKey string
	Sandbox        bool
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:           strings.ToLower(v.GetString("APP_ENV")),
		Version:       v.GetString("API_VERSION"),
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		FrontendURL:   v.GetString("FRONTEND_URL"),
		AdminURL:      v.GetString("ADMIN_URL"),

		MongoURI:      v.GetString("MONGODB_URI"),
		MongoDatabase: v.GetString("MONGODB_DATABASE"),
		MongoTLS:      v.GetBool("MONGODB_TLS"),
		DataDir:       v.GetString("DATA_DIR"),

		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTExpiration:        v.GetDuration("JWT_EXPIRES_IN"),
		JWTRefreshSecret:     v.GetString("JWT_REFRESH_SECRET"),
		JWTRefreshExpiration: v.GetDuration("JWT_REFRESH_EXPIRES_IN"),
		BcryptCost:           v.GetInt("BCRYPT_COST"),
		RecaptchaSecret:      v.GetString("RECAPTCHA_SECRET"),

		RateLimit: RateLimitConfig{
			Window:            v.GetDuration("RATE_LIMIT_WINDOW"),
			MaxRequests:       v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
			AuthMax:           v.GetInt("AUTH_RATE_LIMIT_MAX"),
			CreateEventMax:    v.GetInt("CREATE_EVENT_RATE_LIMIT_MAX"),
			CreateEventWindow: time.Hour,
			ChatMax:           v.GetInt("CHAT_RATE_LIMIT_MAX"),
			ChatWindow:        time.Minute,
		},

		ReportThreshold: v.GetInt("REPORT_THRESHOLD"),

		Upload: UploadConfig{
			Backend:         strings.ToLower(v.GetString("UPLOAD_BACKEND")),
			Dir:             v.GetString("UPLOAD_DIR"),
			MaxFileSize:     v.GetInt64("MAX_FILE_SIZE"),
			AllowedTypes:    splitList(v.GetString("ALLOWED_FILE_TYPES")),
			GCSBucket:       v.GetString("GCS_BUCKET"),
			S3Bucket:        v.GetString("S3_BUCKET"),
			S3Region:        v.GetString("S3_REGION"),
			S3Endpoint:      v.GetString("S3_ENDPOINT"),
			S3AccessKeyID:   v.GetString("S3_ACCESS_KEY_ID"),
			S3SecretKey:     v.GetString("S3_SECRET_ACCESS_KEY"),
			ImageModeration: v.GetBool("IMAGE_MODERATION"),
		},

		Mail: MailConfig{
			Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
			Host:           v.GetString("EMAIL_HOST"),
			Port:           v.GetInt("EMAIL_PORT"),
			User:           v.GetString("EMAIL_USER"),
			Password:       v.GetString("EMAIL_PASS"),
			From:           v.GetString("EMAIL_FROM"),
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			Sandbox:        v.GetBool("SENDGRID_SANDBOX"),
		},

		NotificationRetention: v.GetDuration("NOTIFICATION_RETENTION"),
		CleanupSchedule:       v.GetString("CLEANUP_SCHEDULE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("API_VERSION", "1.0.0")
	v.SetDefault("SERVER_ADDRESS", ":5000")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("ADMIN_URL", "http://localhost:3001")

	v.SetDefault("MONGODB_DATABASE", "eventhub")
	v.SetDefault("MONGODB_TLS", false)

	v.SetDefault("JWT_SECRET", fallbackJWTSecret)
	v.SetDefault("JWT_EXPIRES_IN", "15m")
	v.SetDefault("JWT_REFRESH_SECRET", fallbackJWTRefreshSecret)
	v.SetDefault("JWT_REFRESH_EXPIRES_IN", "168h")
	v.SetDefault("BCRYPT_COST", 12)

	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 100)
	v.SetDefault("AUTH_RATE_LIMIT_MAX", 5)
	v.SetDefault("CREATE_EVENT_RATE_LIMIT_MAX", 10)
	v.SetDefault("CHAT_RATE_LIMIT_MAX", 30)

	v.SetDefault("REPORT_THRESHOLD", 5)

	v.SetDefault("UPLOAD_BACKEND", "local")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("ALLOWED_FILE_TYPES", "image/jpeg,image/jpg,image/png,image/gif")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("IMAGE_MODERATION", false)

	v.SetDefault("MAIL_PROVIDER", "log")
	v.SetDefault("EMAIL_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_FROM", "noreply@eventhub.com")

	v.SetDefault("NOTIFICATION_RETENTION", "720h")
	v.SetDefault("CLEANUP_SCHEDULE", "@daily")
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Env)
	}

	if c.IsProduction() {
		var missing []string
		for _, key := range []string{"JWT_SECRET", "JWT_REFRESH_SECRET", "MONGODB_URI"} {
			if val, ok := os.LookupEnv(key); !ok || strings.TrimSpace(val) == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
		}
		if c.JWTSecret == fallbackJWTSecret || c.JWTRefreshSecret == fallbackJWTRefreshSecret {
			return fmt.Errorf("config: JWT secrets must be changed in production")
		}
	}

	if c.JWTExpiration <= 0 || c.JWTRefreshExpiration <= 0 {
		return fmt.Errorf("config: token lifetimes must be positive")
	}
	if c.ReportThreshold < 1 {
		return fmt.Errorf("config: REPORT_THRESHOLD must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("config: RATE_LIMIT_WINDOW must be positive")
	}

	switch c.Upload.Backend {
	case "local":
	case "gcs":
		if c.Upload.GCSBucket == "" {
			return fmt.Errorf("config: GCS_BUCKET is required for the gcs upload backend")
		}
	case "s3":
		if c.Upload.S3Bucket == "" {
			return fmt.Errorf("config: S3_BUCKET is required for the s3 upload backend")
		}
	default:
		return fmt.Errorf("config: unknown UPLOAD_BACKEND %q", c.Upload.Backend)
	}

	switch c.Mail.Provider {
	case "log", "smtp", "sendgrid":
	default:
		return fmt.Errorf("config: unknown MAIL_PROVIDER %q", c.Mail.Provider)
	}
	return nil
}

func (c *Config) IsProduction() bool  { return c.Env == EnvProduction }
func (c *Config) IsDevelopment() bool { return c.Env == EnvDevelopment }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
