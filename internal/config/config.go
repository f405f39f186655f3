package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Submission backends
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// Mail providers
const (
	EmailLog    = "log"
	EmailResend = "resend"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Wizard       WizardConfig       `mapstructure:"wizard"`
	Verification VerificationConfig `mapstructure:"verification"`
	Upload       UploadConfig       `mapstructure:"upload"`
	Receipt      ReceiptConfig      `mapstructure:"receipt"`
	Content      ContentConfig      `mapstructure:"content"`
	Impact       ImpactConfig       `mapstructure:"impact"`
	Backend      BackendConfig      `mapstructure:"backend"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Email        EmailConfig        `mapstructure:"email"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Dispatcher   DispatcherConfig   `mapstructure:"dispatcher"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// StorageConfig holds attachment and receipt file storage configuration
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// WizardConfig bounds the server-side wizard sessions
type WizardConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	MaxSessions   int           `mapstructure:"max_sessions"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// VerificationConfig tunes one-time codes
type VerificationConfig struct {
	CodeTTL        time.Duration `mapstructure:"code_ttl"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	ResendCooldown time.Duration `mapstructure:"resend_cooldown"`
}

// UploadConfig constrains wizard attachments
type UploadConfig struct {
	MaxBytes    int64 `mapstructure:"max_bytes"`
	MaxFiles    int   `mapstructure:"max_files"`
	MaxPDFPages int   `mapstructure:"max_pdf_pages"`
}

// ReceiptConfig holds receipt generation configuration
type ReceiptConfig struct {
	Organisation    string        `mapstructure:"organisation"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
}

// ContentConfig holds content store configuration
type ContentConfig struct {
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	// DefaultsPath overrides the embedded default content when set
	DefaultsPath string `mapstructure:"defaults_path"`
}

// ImpactConfig tunes the animated impact counters
type ImpactConfig struct {
	Duration time.Duration `mapstructure:"duration"`
	Interval time.Duration `mapstructure:"interval"`
}

// BackendConfig selects where wizard submissions are sent
type BackendConfig struct {
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"base_url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig holds OpenAI API configuration. The translator is disabled
// without an API key.
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	PromptsPath string        `mapstructure:"prompts_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EmailConfig holds email configuration
type EmailConfig struct {
	Provider     string `mapstructure:"provider"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	ReplyTo      string `mapstructure:"reply_to"`
}

// AuthConfig holds the admin token configuration. Admin endpoints are
// disabled without a secret.
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// DispatcherConfig tunes the in-process event dispatcher
type DispatcherConfig struct {
	// AsyncTimeout bounds one notification or wake-up handler
	AsyncTimeout time.Duration `mapstructure:"async_timeout"`
}

// Load loads configuration from file and environment variables. envPath,
// when it names an existing file, is loaded into the environment first.
func Load(configPath, envPath string) (*Config, error) {
	if envPath != "" {
		if err := gotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 8<<20)

	// Database defaults
	v.SetDefault("database.path", "data/portal.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("storage.base_dir", "data/files")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("wizard.idle_timeout", 30*time.Minute)
	v.SetDefault("wizard.max_sessions", 10000)
	v.SetDefault("wizard.sweep_interval", time.Minute)

	v.SetDefault("verification.code_ttl", 10*time.Minute)
	v.SetDefault("verification.max_attempts", 5)
	v.SetDefault("verification.resend_cooldown", 30*time.Second)

	v.SetDefault("upload.max_bytes", 5*1024*1024)
	v.SetDefault("upload.max_files", 5)
	v.SetDefault("upload.max_pdf_pages", 50)

	v.SetDefault("receipt.organisation", "Kisan Andolan")
	v.SetDefault("receipt.poll_interval", 5*time.Second)
	v.SetDefault("receipt.batch_size", 10)
	v.SetDefault("receipt.generate_timeout", 30*time.Second)

	v.SetDefault("content.read_timeout", 2*time.Second)
	v.SetDefault("content.cache_ttl", time.Minute)

	v.SetDefault("impact.duration", 2*time.Second)
	v.SetDefault("impact.interval", 50*time.Millisecond)

	v.SetDefault("backend.mode", BackendLocal)
	v.SetDefault("backend.timeout", 15*time.Second)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", 30*time.Second)

	v.SetDefault("email.provider", EmailLog)

	v.SetDefault("auth.issuer", "kisan-portal")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("dispatcher.async_timeout", 30*time.Second)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	// Sensitive credentials from environment
	bindings := map[string]string{
		"openai.api_key":       "OPENAI_API_KEY",
		"email.resend_api_key": "RESEND_API_KEY",
		"auth.jwt_secret":      "JWT_SECRET",
		"backend.token":        "BACKEND_TOKEN",
		"server.port":          "PORT",
	}
	for key, env := range bindings {
		// The prefixed name stays first so it wins over the short one
		prefixed := "PORTAL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload.max_bytes must be positive")
	}

	switch c.Backend.Mode {
	case BackendLocal:
	case BackendRemote:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("backend.base_url is required in remote mode")
		}
	default:
		return fmt.Errorf("backend.mode must be %s or %s", BackendLocal, BackendRemote)
	}

	switch c.Email.Provider {
	case EmailLog:
	case EmailResend:
		if c.Email.ResendAPIKey == "" {
			return fmt.Errorf("email.resend_api_key is required for the resend provider")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email.from is required for the resend provider")
		}
	default:
		return fmt.Errorf("email.provider must be %s or %s", EmailLog, EmailResend)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}

	return nil
}

// TranslatorEnabled reports whether admin content gets machine translation
func (c *Config) TranslatorEnabled() bool {
	return c.OpenAI.APIKey != ""
}

// AdminEnabled reports whether admin endpoints accept tokens
func (c *Config) AdminEnabled() bool {
	return c.Auth.JWTSecret != ""
}
