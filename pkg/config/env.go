package config

const (
	AppEnvLocal = "local"
	AppEnvDev   = "dev"
	AppEnvProd  = "prod"
)

// Variable names referenced in error messages and tests.
const (
	EnvAppEnv = "WISHLIST_APP_ENV"
	EnvPort   = "WISHLIST_APP_PORT"

	EnvDBDSN  = "WISHLIST_DB_DSN"
	EnvDBHost = "WISHLIST_DB_HOST"
	EnvDBUser = "WISHLIST_DB_USER"
	EnvDBName = "WISHLIST_DB_NAME"

	EnvRedisURL = "WISHLIST_REDIS_URL"

	EnvJWTSecret     = "WISHLIST_JWT_SECRET"
	EnvJWTIssuer     = "WISHLIST_JWT_ISSUER"
	EnvJWTAccessTTL  = "WISHLIST_JWT_ACCESS_TTL"
	EnvJWTRefreshTTL = "WISHLIST_JWT_REFRESH_TTL"

	EnvGCPProjectID = "WISHLIST_GCP_PROJECT_ID"
	EnvGCSBucket    = "WISHLIST_GCS_BUCKET_NAME"

	EnvPubSubNotificationTopic = "WISHLIST_PUBSUB_NOTIFICATION_TOPIC"
	EnvOutboxMaxAttempts       = "WISHLIST_OUTBOX_MAX_ATTEMPTS"
)
