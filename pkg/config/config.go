package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

// Config is the process configuration shared by the api, cron-worker and
// migrate binaries. Every field is read from a MOTORSHOP_ environment
// variable.
type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Inventory    InventoryConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

// Load reads the environment, fills in the derived DSN and rejects
// inconsistent settings. All validation problems are reported together.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	var err error
	if c.Inventory.DefaultReorderThreshold < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", EnvDefaultReorderThreshold))
	}
	if c.Cron.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCronInterval))
	}
	if c.Cron.LockTTL > 0 && c.Cron.LockTTL > c.Cron.Interval {
		err = multierr.Append(err, fmt.Errorf("%s must not exceed %s", EnvCronLockTTL, EnvCronInterval))
	}
	if p, perr := strconv.Atoi(c.App.Port); perr != nil || p <= 0 || p > 65535 {
		err = multierr.Append(err, fmt.Errorf("%s must be a tcp port, got %q", EnvPort, c.App.Port))
	}
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case DBDriverPostgres, DBDriverSQLite:
	default:
		err = multierr.Append(err, fmt.Errorf("%s must be %s or %s", EnvDBDriver, DBDriverPostgres, DBDriverSQLite))
	}
	switch strings.ToLower(c.App.LogFormat) {
	case "json", "console":
	default:
		err = multierr.Append(err, fmt.Errorf("%s must be json or console", EnvLogFormat))
	}
	return err
}

type AppConfig struct {
	Env          string   `envconfig:"MOTORSHOP_APP_ENV" required:"true"`
	Port         string   `envconfig:"MOTORSHOP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"MOTORSHOP_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"MOTORSHOP_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"MOTORSHOP_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"MOTORSHOP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool  { return strings.EqualFold(a.Env, AppEnvDev) }
func (a AppConfig) IsProd() bool { return strings.EqualFold(a.Env, AppEnvProd) }

type ServiceConfig struct {
	Kind string `envconfig:"MOTORSHOP_SERVICE_KIND" default:"api"`
}

// DBConfig accepts either a full DSN or the discrete host/user/name parts,
// which are assembled into a postgres url.
type DBConfig struct {
	DSN    string `envconfig:"MOTORSHOP_DB_DSN"`
	Driver string `envconfig:"MOTORSHOP_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MOTORSHOP_DB_HOST"`
	Port     int    `envconfig:"MOTORSHOP_DB_PORT" default:"5432"`
	User     string `envconfig:"MOTORSHOP_DB_USER"`
	Password string `envconfig:"MOTORSHOP_DB_PASSWORD"`
	Name     string `envconfig:"MOTORSHOP_DB_NAME"`
	SSLMode  string `envconfig:"MOTORSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns       int           `envconfig:"MOTORSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns       int           `envconfig:"MOTORSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime    time.Duration `envconfig:"MOTORSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime    time.Duration `envconfig:"MOTORSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQueryThreshold time.Duration `envconfig:"MOTORSHOP_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
	}

	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return errors.New("either " + EnvDBDSN + " or " + strings.Join(missing, ", ") + " are required")
	}

	user := url.User(db.User)
	if db.Password != "" {
		user = url.UserPassword(db.User, db.Password)
	}
	u := url.URL{
		Scheme: "postgres",
		User:   user,
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTORSHOP_REDIS_URL"`
	Address      string        `envconfig:"MOTORSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"MOTORSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTORSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTORSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTORSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTORSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTORSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTORSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled is false when neither a url nor an address was given; the
// binaries then fall back to in-process locks and idempotency records.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type InventoryConfig struct {
	DefaultReorderThreshold int `envconfig:"MOTORSHOP_INVENTORY_DEFAULT_REORDER_THRESHOLD" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MOTORSHOP_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"MOTORSHOP_CRON_LOCK_TTL" default:"55m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOTORSHOP_AUTO_MIGRATE" default:"false"`
}
