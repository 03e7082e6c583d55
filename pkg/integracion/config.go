package integracion

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sistemamasajes/integracion/pkg/logger"
	"github.com/sistemamasajes/integracion/pkg/store/gormstore"
	"github.com/spf13/viper"
)

const envPrefix = "INTEGRACION"

const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Config holds application configuration.
//
// Values are layered by viper: built-in defaults, then the optional config
// file, then INTEGRACION_* environment variables (dots become underscores, so
// core.url is INTEGRACION_CORE_URL), then command line flags.
type Config struct {
	ServerPort int

	// Remote Core API
	CoreURL     string
	CoreTimeout time.Duration

	// Local store
	StoreDriver string
	StoreDSN    string

	// Sync worker
	RetryDelay time.Duration
	Backoff    string
	MaxRetries int // 0 retries forever
	Durable    bool

	LogLevel   string
	LogFile    string
	LogConsole bool

	// Rotation of LogFile
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	ReadOnly bool // When true, all local writes are rejected

	v *viper.Viper
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	c, err := loadConfig(newViper())
	if err != nil {
		// Defaults always validate.
		panic(err)
	}
	return c
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("core.url", "http://localhost:5000/api/")
	v.SetDefault("core.timeout", 30*time.Second)
	v.SetDefault("store.driver", gormstore.DriverSQLite)
	v.SetDefault("store.dsn", "integracion.db")
	v.SetDefault("sync.retry_delay", 10*time.Second)
	v.SetDefault("sync.backoff", BackoffFixed)
	v.SetDefault("sync.max_retries", 0)
	v.SetDefault("sync.durable", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", false)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("read_only", false)
	return v
}

func loadConfig(v *viper.Viper) (*Config, error) {
	c := &Config{
		ServerPort:    v.GetInt("server.port"),
		CoreURL:       v.GetString("core.url"),
		CoreTimeout:   v.GetDuration("core.timeout"),
		StoreDriver:   v.GetString("store.driver"),
		StoreDSN:      v.GetString("store.dsn"),
		RetryDelay:    v.GetDuration("sync.retry_delay"),
		Backoff:       strings.ToLower(v.GetString("sync.backoff")),
		MaxRetries:    v.GetInt("sync.max_retries"),
		Durable:       v.GetBool("sync.durable"),
		LogLevel:      v.GetString("log.level"),
		LogFile:       v.GetString("log.file"),
		LogConsole:    v.GetBool("log.console"),
		LogMaxSizeMB:  v.GetInt("log.max_size"),
		LogMaxBackups: v.GetInt("log.max_backups"),
		LogMaxAgeDays: v.GetInt("log.max_age"),
		ReadOnly:      v.GetBool("read_only"),
		v:             v,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.ServerPort))
	}
	if u, err := url.Parse(c.CoreURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("core.url %q is not an http(s) URL", c.CoreURL))
	}
	if c.CoreTimeout <= 0 {
		errs = append(errs, errors.New("core.timeout must be positive"))
	}
	switch c.StoreDriver {
	case gormstore.DriverPostgres, gormstore.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be %q or %q", c.StoreDriver, gormstore.DriverPostgres, gormstore.DriverSQLite))
	}
	if c.StoreDSN == "" {
		errs = append(errs, errors.New("store.dsn is required"))
	}
	if c.RetryDelay <= 0 {
		errs = append(errs, errors.New("sync.retry_delay must be positive"))
	}
	switch c.Backoff {
	case BackoffFixed, BackoffExponential:
	default:
		errs = append(errs, fmt.Errorf("sync.backoff %q must be %q or %q", c.Backoff, BackoffFixed, BackoffExponential))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("sync.max_retries cannot be negative"))
	}
	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		errs = append(errs, errors.New("log.max_size, log.max_backups and log.max_age cannot be negative"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Watch reloads the config file whenever it changes and passes the new values
// to onChange. Nothing happens when no config file was read. Invalid edits are
// reported to onError and otherwise ignored.
func (c *Config) Watch(onChange func(*Config), onError func(error)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := loadConfig(c.v)
		if err != nil {
			onError(fmt.Errorf("reload %s: %w", e.Name, err))
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()
}
