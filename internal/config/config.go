package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Razorpay struct {
		KeyID         string `mapstructure:"key_id"`
		KeySecret     string `mapstructure:"key_secret"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		Currency      string `mapstructure:"currency"`
	} `mapstructure:"razorpay"`

	DocuSign struct {
		IntegrationKey string `mapstructure:"integration_key"`
		UserID         string `mapstructure:"user_id"`
		OAuthHost      string `mapstructure:"oauth_host"`
		PrivateKeyPath string `mapstructure:"private_key_path"`
		PrivateKeyPEM  string `mapstructure:"private_key_pem"`
	} `mapstructure:"docusign"`

	ESignWebhook struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"esign_webhook"`

	Identity struct {
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		APISecret string `mapstructure:"api_secret"`
	} `mapstructure:"identity"`

	Storage R2Config `mapstructure:"storage"`

	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`

	Dashboard struct {
		CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`
		SharedCache     bool `mapstructure:"shared_cache"`
	} `mapstructure:"dashboard"`

	Installments struct {
		RetrySweepMinutes int `mapstructure:"retry_sweep_minutes"`
	} `mapstructure:"installments"`
}

// DSN returns the pgx connection string for the primary database
func (c *Config) DSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, sslMode)
}

// DashboardCacheTTL returns the KPI cache lifetime
func (c *Config) DashboardCacheTTL() time.Duration {
	if c.Dashboard.CacheTTLSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Dashboard.CacheTTLSeconds) * time.Second
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "fleetrent-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "fleetrent")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("razorpay.currency", "INR")
	v.SetDefault("docusign.oauth_host", "account-d.docusign.com")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("redis.host", "redis")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("dashboard.cache_ttl_seconds", 60)
	v.SetDefault("installments.retry_sweep_minutes", 60)

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnvOverrides(&cfg)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET not found in config or environment")
	}

	return &cfg
}

// applyEnvOverrides copies well-known environment variables over file values
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}

	if keyID := os.Getenv("RAZORPAY_KEY_ID"); keyID != "" {
		cfg.Razorpay.KeyID = keyID
	}
	if keySecret := os.Getenv("RAZORPAY_KEY_SECRET"); keySecret != "" {
		cfg.Razorpay.KeySecret = keySecret
	}
	if webhookSecret := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); webhookSecret != "" {
		cfg.Razorpay.WebhookSecret = webhookSecret
	}

	if key := os.Getenv("DOCUSIGN_INTEGRATION_KEY"); key != "" {
		cfg.DocuSign.IntegrationKey = key
	}
	if userID := os.Getenv("DOCUSIGN_USER_ID"); userID != "" {
		cfg.DocuSign.UserID = userID
	}
	if pem := os.Getenv("DOCUSIGN_PRIVATE_KEY"); pem != "" {
		cfg.DocuSign.PrivateKeyPEM = pem
	}
	if secret := os.Getenv("ESIGN_WEBHOOK_SECRET"); secret != "" {
		cfg.ESignWebhook.Secret = secret
	}

	if secret := os.Getenv("IDV_API_SECRET"); secret != "" {
		cfg.Identity.APISecret = secret
	}
	if key := os.Getenv("IDV_API_KEY"); key != "" {
		cfg.Identity.APIKey = key
	}

	if endpoint := os.Getenv("R2_ENDPOINT"); endpoint != "" {
		cfg.Storage.Endpoint = endpoint
	}
	if key := os.Getenv("R2_ACCESS_KEY"); key != "" {
		cfg.Storage.AccessKey = key
	}
	if secret := os.Getenv("R2_SECRET_KEY"); secret != "" {
		cfg.Storage.SecretKey = secret
	}
	if bucket := os.Getenv("R2_BUCKET"); bucket != "" {
		cfg.Storage.Bucket = bucket
	}

	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	if host := os.Getenv("REDIS_SERVICE_HOST"); host != "" {
		cfg.Redis.Host = host
	}
	if port := os.Getenv("REDIS_SERVICE_PORT"); port != "" {
		cfg.Redis.Port = port
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
}
