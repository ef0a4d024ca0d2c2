package constants

type ContextKey string

const (
	LoggerKey ContextKey = "logger"
	ParamsKey ContextKey = "params"
	TokenKey  ContextKey = "apiToken"
)
