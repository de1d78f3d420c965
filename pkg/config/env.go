package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "VENDORLEDGER_APP_ENV"
	EnvPort   = "VENDORLEDGER_APP_PORT"

	EnvDBDSN  = "VENDORLEDGER_DB_DSN"
	EnvDBHost = "VENDORLEDGER_DB_HOST"
	EnvDBUser = "VENDORLEDGER_DB_USER"
	EnvDBName = "VENDORLEDGER_DB_NAME"

	EnvRedisURL  = "VENDORLEDGER_REDIS_URL"
	EnvJWTSecret = "VENDORLEDGER_JWT_SECRET"
	EnvJWTIssuer = "VENDORLEDGER_JWT_ISSUER"

	EnvGCPProjectID          = "VENDORLEDGER_GCP_PROJECT_ID"
	EnvPubSubNotificationSub = "VENDORLEDGER_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvCommissionDefaultType = "VENDORLEDGER_COMMISSION_DEFAULT_TYPE"
	EnvCommissionDefaultRate = "VENDORLEDGER_COMMISSION_DEFAULT_RATE"
	EnvPayoutMinWithdrawal   = "VENDORLEDGER_PAYOUT_MIN_WITHDRAWAL"
	EnvPayoutStaleAfter      = "VENDORLEDGER_PAYOUT_STALE_AFTER"

	EnvDBDriver            = "VENDORLEDGER_DB_DRIVER"
	EnvOutboxBatchSize     = "VENDORLEDGER_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxMaxAttempts   = "VENDORLEDGER_OUTBOX_MAX_ATTEMPTS"
	EnvOutboxRetentionDays = "VENDORLEDGER_OUTBOX_RETENTION_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
