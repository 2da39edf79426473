package dispatch

// ErrorKind classifies an inspection failure. The kinds are mutually
// exclusive and cover every failure path of Execute; MalformedRequest is
// used by the control surface for requests that never reach Execute.
type ErrorKind string

const (
	KindUnknownType              ErrorKind = "unknown_type"
	KindScriptLoadError          ErrorKind = "script_load_error"
	KindUnsupportedSerialization ErrorKind = "unsupported_serialization"
	KindDeserializationError     ErrorKind = "deserialization_error"
	KindTimeout                  ErrorKind = "timeout"
	KindInspectionError          ErrorKind = "inspection_error"
	KindMalformedRequest         ErrorKind = "malformed_request"
)
