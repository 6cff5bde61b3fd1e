package config

const (
	EnvPrefix = "ROOTSREACH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "ROOTSREACH_APP_ENV"
	EnvPort           = "ROOTSREACH_APP_PORT"
	EnvLogLevel       = "ROOTSREACH_LOG_LEVEL"
	EnvLogFormat      = "ROOTSREACH_LOG_FORMAT"
	EnvRequestTimeout = "ROOTSREACH_REQUEST_TIMEOUT"
	EnvCORSOrigins    = "ROOTSREACH_CORS_ORIGINS"

	EnvDBDSN     = "ROOTSREACH_DB_DSN"
	EnvDBHost    = "ROOTSREACH_DB_HOST"
	EnvDBPort    = "ROOTSREACH_DB_PORT"
	EnvDBUser    = "ROOTSREACH_DB_USER"
	EnvDBPass    = "ROOTSREACH_DB_PASSWORD"
	EnvDBName    = "ROOTSREACH_DB_NAME"
	EnvDBSSL     = "ROOTSREACH_DB_SSLMODE"
	EnvUseSQLite = "ROOTSREACH_USE_SQLITE"

	EnvRedisURL = "ROOTSREACH_REDIS_URL"

	EnvJWTSecret              = "ROOTSREACH_JWT_SECRET"
	EnvJWTIssuer              = "ROOTSREACH_JWT_ISSUER"
	EnvJWTExpMins             = "ROOTSREACH_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "ROOTSREACH_REFRESH_TOKEN_TTL_MINUTES"

	EnvStorageDriver  = "ROOTSREACH_STORAGE_DRIVER"
	EnvStorageDir     = "ROOTSREACH_STORAGE_LOCAL_DIR"
	EnvStorageBaseURL = "ROOTSREACH_STORAGE_PUBLIC_BASE_URL"
	EnvMaxImageMB     = "ROOTSREACH_MAX_IMAGE_MB"

	EnvGCPProjectID = "ROOTSREACH_GCP_PROJECT_ID"
	EnvGCSBucket    = "ROOTSREACH_GCS_BUCKET_NAME"

	EnvVoiceBaseURL = "ROOTSREACH_AI_VOICE_BASE_URL"
)

const (
	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"
)

var legacyDBEnvVars = []string{
	EnvDBHost,
	EnvDBUser,
	EnvDBName,
}
