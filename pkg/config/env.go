package config

const (
	EnvPrefix = "ESCROW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "ESCROW_APP_ENV"
	EnvPort      = "ESCROW_APP_PORT"
	EnvDBDSN     = "ESCROW_DB_DSN"
	EnvDBHost    = "ESCROW_DB_HOST"
	EnvDBUser    = "ESCROW_DB_USER"
	EnvDBName    = "ESCROW_DB_NAME"
	EnvRedisURL  = "ESCROW_REDIS_URL"
	EnvJWTSecret = "ESCROW_JWT_SECRET"
	EnvJWTIssuer = "ESCROW_JWT_ISSUER"

	EnvPlatformFeePct   = "ESCROW_PLATFORM_FEE_PCT"
	EnvMinPayout        = "ESCROW_MIN_PAYOUT"
	EnvSubmissionWindow = "ESCROW_SUBMISSION_WINDOW"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
