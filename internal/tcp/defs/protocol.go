package defs

import "time"

// Protocol constants
const (
	MagicNumber uint16 = 0xCAFE

	// Message types
	MsgWorkerRegister  byte = 0x01
	MsgWorkerHeartbeat byte = 0x02
	MsgJobAssign       byte = 0x04
	MsgJobResult       byte = 0x05
	MsgError           byte = 0x07

	HeaderSize     = 8
	MaxPayloadSize = 8 << 20

	// Configuration constants
	InitialRegistrationTimeout = 30 * time.Second
	ConnectionRetryDelay       = 1 * time.Second
)

// Error codes sent back to workers in MsgError frames
const (
	ErrCodeBadRegistration = 1001
	ErrCodeRegistration    = 1002
	ErrCodeNotRegistered   = 1003
	ErrCodeBadHeartbeat    = 1004
	ErrCodeWorkerMismatch  = 1005
	ErrCodeHeartbeat       = 1006
	ErrCodeBadResult       = 1014
	ErrCodeResultRejected  = 1015
	ErrCodeUnknownMessage  = 1016
)
