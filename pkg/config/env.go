package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvUseSQLite  = "STOREFRONT_USE_SQLITE"
	EnvSQLitePath = "STOREFRONT_SQLITE_PATH"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvFreeShippingThreshold = "STOREFRONT_FREE_SHIPPING_THRESHOLD"
	EnvStandardShippingFee   = "STOREFRONT_STANDARD_SHIPPING_FEE"
	EnvCardGateway           = "STOREFRONT_FEATURE_CARD_GATEWAY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
