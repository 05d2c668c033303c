package config

// EnvPrefix is the envconfig prefix shared by every Eventra service.
const EnvPrefix = "EVENTRA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv = "EVENTRA_APP_ENV"
	EnvPort   = "EVENTRA_APP_PORT"
	EnvDBDSN  = "EVENTRA_DB_DSN"
	EnvDBHost = "EVENTRA_DB_HOST"
	EnvDBUser = "EVENTRA_DB_USER"
	EnvDBName = "EVENTRA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
