package config

type Config interface {
	EnvConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetCredentialsDir() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
}

func New() Config {
	return mainConfig{}
}
