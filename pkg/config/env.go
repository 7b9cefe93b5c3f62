package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvCheckoutMaxCartItems = "STOREFRONT_CHECKOUT_MAX_CART_ITEMS"
	EnvCheckoutPaymentTTL   = "STOREFRONT_CHECKOUT_PAYMENT_TTL"
	EnvCheckoutBaseCurrency = "STOREFRONT_CHECKOUT_BASE_CURRENCY"

	EnvCronOrderSweepInterval = "STOREFRONT_CRON_ORDER_SWEEP_INTERVAL"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
