package consts

// Component names used as container keys and config sections.
const (
	COMPONENT_LOGGING      = "logging"
	COMPONENT_PROMETHEUS   = "prometheus"
	COMPONENT_TELEMETRY    = "telemetry"
	COMPONENT_ADMIN_SERVER = "admin_server"
	COMPONENT_LISTENER     = "listener"
)
