package consts

const (
	ENV_DEVELOPMENT = "development"
	ENV_PRODUCTION  = "production"

	ENV_VAR_ENV    = "HUMBLE_ENV"
	ENV_VAR_CONFIG = "HUMBLE_CONFIG"

	DEFAULT_CONFIG_PATH = "./configs/config.yaml"
)

// Log field keys.
const (
	KEY_TraceID = "trace_id"
	KEY_ConnID  = "conn_id"
	KEY_Remote  = "remote"
)

// Named log destinations kept alongside the main application log.
const (
	LOG_INTERACTION = "interaction"
	LOG_EXCEPTION   = "exception"
	LOG_CLOSED      = "closed"
)
