package config

const (
	EnvPrefix = "BIDHAUS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN      = "BIDHAUS_DB_DSN"
	EnvDBHost     = "BIDHAUS_DB_HOST"
	EnvDBUser     = "BIDHAUS_DB_USER"
	EnvDBName     = "BIDHAUS_DB_NAME"
	EnvDBPassword = "BIDHAUS_DB_PASSWORD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
