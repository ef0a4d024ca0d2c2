package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/fieldops/opsboard/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c, err := New([]string{".env", ".env.local"})
	if err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}
	if len(existingFiles) == 0 {
		return 0, nil
	}
	return len(existingFiles), godotenv.Load(existingFiles...)
}

type APIOptions struct {
	BaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	Token   string        `env:"API_TOKEN"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
}

type TrackingOptions struct {
	PollInterval            time.Duration `env:"TRACKING_POLL_INTERVAL" envDefault:"30s"`
	StaleAfter              time.Duration `env:"TRACKING_STALE_AFTER" envDefault:"10m"`
	PendingRequestsInterval time.Duration `env:"PENDING_REQUESTS_POLL_INTERVAL" envDefault:"60s"`
}

type DocumentsOptions struct {
	SignedURLExpires time.Duration `env:"SIGNED_URL_EXPIRES" envDefault:"1h"`
	MaxUploadSize    int64         `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"`
	MaxUploadMemory  int64         `env:"MAX_UPLOAD_MEMORY" envDefault:"8388608"`
}

type JobsOptions struct {
	DialogIdleTimeout time.Duration `env:"DIALOG_IDLE_TIMEOUT" envDefault:"30m"`
}

type UIStateOptions struct {
	Storage  string `env:"UI_STATE_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

// Validate checks the UI state storage configuration
func (u *UIStateOptions) Validate() error {
	if u.Storage != "memory" && u.Storage != "redis" {
		return fmt.Errorf("ui state Storage must be 'memory' or 'redis', got '%s'", u.Storage)
	}
	if u.Storage == "redis" && u.RedisURL == "" {
		return fmt.Errorf("ui state RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type LogOptions struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Path  string `env:"LOG_PATH"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"opsboard"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type OpsGuardOptions struct {
	Enabled bool   `env:"OPS_GUARD_ENABLED" envDefault:"true"`
	CIDRs   string `env:"OPS_GUARD_CIDRS"`
	Token   string `env:"OPS_GUARD_TOKEN"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	API           APIOptions
	Tracking      TrackingOptions
	Documents     DocumentsOptions
	Jobs          JobsOptions
	UIState       UIStateOptions
	Log           LogOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	OpsGuard      OpsGuardOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	CorsOrigins      string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
	// Incoming requests may carry this header; otherwise a random uuidv4 is generated.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader    string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.Log.Level {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func (c *Configuration) AllowedOrigins() []string {
	var origins []string
	for _, part := range strings.Split(c.CorsOrigins, ",") {
		if v := strings.TrimSpace(part); v != "" {
			origins = append(origins, v)
		}
	}
	return origins
}

func Use() *Configuration {
	return singleton()
}

// New loads a standalone configuration from the given env files and the process environment.
func New(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.UIState.Validate(); err != nil {
		return fmt.Errorf("ui state configuration error: %w", err)
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}

	if c.Log.Path != "" {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.Path)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	}

	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) validateIntervals() error {
	if c.Tracking.PollInterval < time.Second {
		return fmt.Errorf("invalid TRACKING_POLL_INTERVAL=%s (minimum 1s)", c.Tracking.PollInterval)
	}
	if c.Tracking.PendingRequestsInterval < time.Second {
		return fmt.Errorf("invalid PENDING_REQUESTS_POLL_INTERVAL=%s (minimum 1s)", c.Tracking.PendingRequestsInterval)
	}
	if c.Tracking.StaleAfter <= 0 {
		return fmt.Errorf("invalid TRACKING_STALE_AFTER=%s", c.Tracking.StaleAfter)
	}
	if c.Documents.SignedURLExpires < time.Minute || c.Documents.SignedURLExpires > 24*time.Hour {
		return fmt.Errorf("invalid SIGNED_URL_EXPIRES=%s (expected 1m..24h)", c.Documents.SignedURLExpires)
	}
	return nil
}

// Unload closes the log file, if any.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
