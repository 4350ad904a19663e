package configuration

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"adminkit"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RetentionOptions struct {
	// FloorDays is the minimum record age a cleanup request may target.
	// Requests below the floor are rejected outright.
	FloorDays int `env:"RETENTION_FLOOR_DAYS" envDefault:"30"`
	// DefaultDays is used by the periodic cleanup job.
	DefaultDays int `env:"RETENTION_DEFAULT_DAYS" envDefault:"90"`
}

type SessionOptions struct {
	TTL time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	// SweepInterval controls how often stale sessions are expired in the
	// background. Zero disables the sweeper.
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
}

type Configuration struct {
	Database   DatabaseOptions
	Prometheus PrometheusOptions
	Retention  RetentionOptions
	Session    SessionOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"SOCKET_ADDRESS" envDefault:":3200"`
	Origin           string `env:"ORIGIN" envDefault:"http://localhost:3200"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"500"`
	MaxExportRows    int    `env:"MAX_EXPORT_ROWS" envDefault:"10000"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	RealIPHeader     string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	RequestIDHeader  string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	TenantIDHeader   string `env:"TENANT_ID_HEADER" envDefault:"X-Tenant-ID"`
	UserIDHeader     string `env:"USER_ID_HEADER" envDefault:"X-User-ID"`

	logger *logrus.Logger
}

// Use returns the process-wide configuration, loading it on first call.
func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Println("no .env files found, using environment variables")
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	c.Database.Opts = c.Database.ConnectionString()
	c.logger = newLogger(c)
	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func newLogger(c *Configuration) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.GoAppEnvironment == Production {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
