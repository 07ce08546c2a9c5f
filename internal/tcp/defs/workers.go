package defs

// Protocol data structures
type (
	// WorkerRegistrationData represents the data sent during worker registration
	WorkerRegistrationData struct {
		WorkerID string `json:"worker_id"`
		Language string `json:"language"`
		Capacity int    `json:"capacity"`
		Ip       string `json:"ip_address"`
		Version  string `json:"version,omitempty"`
	}

	// WorkerHeartbeatData represents the data sent during worker heartbeat
	WorkerHeartbeatData struct {
		WorkerID  string `json:"worker_id"`
		Load      int    `json:"load"`
		Timestamp int64  `json:"timestamp"`
	}

	// ErrorData represents data sent with error responses
	ErrorData struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
)
