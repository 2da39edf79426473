package dispatch

import (
	"time"

	"github.com/Atiyakh/dyright/internal/rlimit"
)

// Request is one validated inspection attempt. Immutable once constructed.
type Request struct {
	// ID correlates the eventual response to its caller. The control
	// surface generates one when the caller omits it.
	ID            string
	TypeName      string
	Serialization string
	// Payload is the raw serialized object, already base64-decoded.
	Payload []byte
	// Timeout bounds the whole attempt from admission, queue wait
	// included. Zero means the server default.
	Timeout time.Duration
	// Limits optionally overrides the server's default memory ceiling.
	Limits *rlimit.Limits
}

// Response is the outcome of one inspection attempt. Exactly one of Result
// and Error is populated; Success == (Error == "").
type Response struct {
	ID      string
	Success bool
	Result  string
	Error   string
	// Kind classifies failures; empty on success.
	Kind ErrorKind
	// Elapsed is wall-clock time from admission to completion, set only on
	// success.
	Elapsed time.Duration
}
