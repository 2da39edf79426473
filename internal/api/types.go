package api

import "github.com/Atiyakh/dyright/internal/history"

// InspectRequest is the JSON body for POST /inspect. Payload is base64.
type InspectRequest struct {
	InspectionID   string          `json:"inspectionId,omitempty"`
	Type           string          `json:"type"`
	Serialization  string          `json:"serialization"`
	Payload        string          `json:"payload"`
	TimeoutMS      int             `json:"timeoutMs,omitempty"`
	ResourceLimits *ResourceLimits `json:"resourceLimits,omitempty"`
}

// ResourceLimits is a per-request resource override. Only RAMMB is enforced.
type ResourceLimits struct {
	RAMMB      int `json:"ramMb,omitempty"`
	CPUPercent int `json:"cpuPercent,omitempty"`
}

// InspectResponse is returned by POST /inspect. Exactly one of Result and
// Error is present.
type InspectResponse struct {
	InspectionID    string   `json:"inspectionId"`
	Success         bool     `json:"success"`
	Result          *string  `json:"result,omitempty"`
	Error           *string  `json:"error,omitempty"`
	ErrorKind       string   `json:"errorKind,omitempty"`
	ExecutionTimeMS *float64 `json:"executionTimeMs,omitempty"`
}

// RegisterRequest is the JSON body for POST /register.
type RegisterRequest struct {
	TypeName   string `json:"typeName"`
	ScriptPath string `json:"scriptPath"`
}

// ReloadRequest is the JSON body for POST /reload.
type ReloadRequest struct {
	TypeName string `json:"typeName"`
}

// SuccessResponse is returned by POST /register and POST /reload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TypeInfo describes one registered type in GET /types.
type TypeInfo struct {
	TypeName   string `json:"typeName"`
	ScriptPath string `json:"scriptPath"`
	Checksum   string `json:"checksum,omitempty"`
	Loaded     bool   `json:"loaded"`
	LoadError  string `json:"loadError,omitempty"`
}

// TypesResponse is returned by GET /types in registration order.
type TypesResponse struct {
	Types []TypeInfo `json:"types"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptimeSeconds"`
	Workers         int    `json:"workers"`
	TypesRegistered int    `json:"typesRegistered"`
}

// HistoryResponse is returned by GET /history, newest first.
type HistoryResponse struct {
	Inspections []history.Record `json:"inspections"`
}

// ShutdownResponse is returned by POST /shutdown.
type ShutdownResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned on transport-level errors.
type ErrorResponse struct {
	Error string `json:"error"`
}
