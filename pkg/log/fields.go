package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Relay
	FieldService = "service"
	FieldConnID  = "conn_id"
	FieldChatID  = "chat_id"
	FieldEvent   = "event"
)
