package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/gregtusar/levgate/pkg/secrets"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Order    OrderConfig    `mapstructure:"order"`
	Pricing  PricingConfig  `mapstructure:"pricing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	GCP      GCPConfig      `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	ReadTimeout    time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration   `mapstructure:"write_timeout"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Auth           AuthConfig      `mapstructure:"auth"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type AuthConfig struct {
	// An empty secret disables bearer authentication.
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type ExchangeConfig struct {
	Timeout    time.Duration     `mapstructure:"timeout"`
	RecvWindow int               `mapstructure:"recv_window"`
	Sandbox    bool              `mapstructure:"sandbox"`
	BaseURLs   map[string]string `mapstructure:"base_urls"`
}

type OrderConfig struct {
	MaxMockDelay time.Duration `mapstructure:"max_mock_delay"`
}

type PricingConfig struct {
	ReferencePrice float64    `mapstructure:"reference_price"`
	Feed           FeedConfig `mapstructure:"feed"`
}

type FeedConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	Symbols        []string      `mapstructure:"symbols"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GCPConfig struct {
	ProjectID       string              `mapstructure:"project_id"`
	UseSecrets      bool                `mapstructure:"use_secrets"`
	CredentialsFile string              `mapstructure:"credentials_file"`
	SecretNames     secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	loadEnvFile()

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/levgate")
	}

	v.SetEnvPrefix("LEVGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile fills the process environment from a .env file (LEVGATE_ENV_FILE,
// default ./.env) without overriding variables that are already set. A
// missing file is not an error.
func loadEnvFile() {
	path := os.Getenv("LEVGATE_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		logrus.WithError(err).WithField("env_file", path).Debug("No env file loaded")
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit.rps", 0)
	v.SetDefault("server.rate_limit.burst", 10)
	v.SetDefault("server.auth.jwt_secret", "")
	v.SetDefault("server.auth.issuer", "levgate")

	// Exchange defaults
	v.SetDefault("exchange.timeout", "10s")
	v.SetDefault("exchange.recv_window", 5000)
	v.SetDefault("exchange.sandbox", true)

	v.SetDefault("order.max_mock_delay", "5s")

	// Pricing defaults
	v.SetDefault("pricing.reference_price", 1.0)
	v.SetDefault("pricing.feed.enabled", false)
	v.SetDefault("pricing.feed.url", "wss://stream.bybit.com/v5/public/linear")
	v.SetDefault("pricing.feed.symbols", []string{})
	v.SetDefault("pricing.feed.reconnect_delay", "5s")
	v.SetDefault("pricing.feed.max_reconnects", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.credentials_file", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.api_key", secretNames.APIKey)
	v.SetDefault("gcp.secret_names.api_secret", secretNames.APISecret)
	v.SetDefault("gcp.secret_names.passphrase", secretNames.Passphrase)
}

func overrideFromEnv(config *Config) {
	// GCP configuration from environment
	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
	if credentialsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credentialsFile != "" && config.GCP.CredentialsFile == "" {
		config.GCP.CredentialsFile = credentialsFile
	}
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func (c *Config) Validate() error {
	var err error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.RateLimit.RPS < 0 {
		err = multierr.Append(err, errors.New("server.rate_limit.rps must not be negative"))
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst <= 0 {
		err = multierr.Append(err, errors.New("server.rate_limit.burst must be positive when rps is set"))
	}
	if c.Exchange.Timeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.timeout must be positive"))
	}
	if c.Exchange.RecvWindow <= 0 {
		err = multierr.Append(err, errors.New("exchange.recv_window must be positive"))
	}
	if c.Order.MaxMockDelay < 0 {
		err = multierr.Append(err, errors.New("order.max_mock_delay must not be negative"))
	}
	if c.Pricing.ReferencePrice <= 0 {
		err = multierr.Append(err, errors.New("pricing.reference_price must be positive"))
	}
	if c.Pricing.Feed.Enabled {
		if c.Pricing.Feed.URL == "" {
			err = multierr.Append(err, errors.New("pricing.feed.url is required when the feed is enabled"))
		}
		if len(c.Pricing.Feed.Symbols) == 0 {
			err = multierr.Append(err, errors.New("pricing.feed.symbols is required when the feed is enabled"))
		}
	}
	if c.GCP.UseSecrets && c.GCP.ProjectID == "" {
		err = multierr.Append(err, errors.New("gcp.project_id is required when gcp.use_secrets is set"))
	}

	return err
}

// NewResolver builds the credential lookup chain: environment first, then GCP
// Secret Manager when enabled. The returned close func releases the GCP client.
func NewResolver(ctx context.Context, config *Config, logger *logrus.Logger) (secrets.Resolver, func() error, error) {
	env := secrets.NewEnvResolver()
	if !config.GCP.UseSecrets {
		return env, func() error { return nil }, nil
	}

	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, config.GCP.CredentialsFile, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create secret manager: %w", err)
	}
	secretManager.WithSecretNames(config.GCP.SecretNames)

	logger.WithField("project_id", config.GCP.ProjectID).Info("Using GCP Secret Manager for exchange credentials")
	return secrets.ChainResolver{env, secretManager}, secretManager.Close, nil
}
