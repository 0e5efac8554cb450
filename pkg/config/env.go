package config

// EnvPrefix is passed to envconfig; every field carries an explicit name so the
// prefix only matters for fields without one.
const EnvPrefix = "MOTORSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv    = "MOTORSHOP_APP_ENV"
	EnvPort      = "MOTORSHOP_APP_PORT"
	EnvLogLevel  = "MOTORSHOP_LOG_LEVEL"
	EnvLogFormat = "MOTORSHOP_LOG_FORMAT"

	EnvDBDSN    = "MOTORSHOP_DB_DSN"
	EnvDBDriver = "MOTORSHOP_DB_DRIVER"
	EnvDBHost   = "MOTORSHOP_DB_HOST"
	EnvDBUser   = "MOTORSHOP_DB_USER"
	EnvDBName   = "MOTORSHOP_DB_NAME"

	EnvRedisURL = "MOTORSHOP_REDIS_URL"

	EnvDefaultReorderThreshold = "MOTORSHOP_INVENTORY_DEFAULT_REORDER_THRESHOLD"
	EnvCronInterval            = "MOTORSHOP_CRON_INTERVAL"
	EnvCronLockTTL             = "MOTORSHOP_CRON_LOCK_TTL"
)
