package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Atiyakh/dyright/internal/dispatch"
	"github.com/Atiyakh/dyright/internal/history"
	"github.com/Atiyakh/dyright/internal/rlimit"
)

// handleHealth handles GET /health (no auth).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:          "ok",
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		Workers:         s.config.Workers,
		TypesRegistered: len(s.registry.Entries()),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleInspect handles POST /inspect. Adaptation failures (unreadable
// body, missing fields, bad base64) become transport-level failure
// responses with a 500 status, identified as "unknown" when the true
// inspection id could not be parsed.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	var wire InspectRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		s.writeInspectFailure(w, http.StatusInternalServerError, "unknown",
			dispatch.KindMalformedRequest, "invalid JSON body: "+err.Error())
		return
	}

	id := wire.InspectionID
	if id == "" {
		id = uuid.NewString()
	}

	if wire.Type == "" {
		s.writeInspectFailure(w, http.StatusInternalServerError, id,
			dispatch.KindMalformedRequest, "missing required field: type")
		return
	}
	if wire.Serialization == "" {
		s.writeInspectFailure(w, http.StatusInternalServerError, id,
			dispatch.KindMalformedRequest, "missing required field: serialization")
		return
	}

	payload, err := base64.StdEncoding.DecodeString(wire.Payload)
	if err != nil {
		s.writeInspectFailure(w, http.StatusInternalServerError, id,
			dispatch.KindMalformedRequest, "payload is not valid base64: "+err.Error())
		return
	}

	req := dispatch.Request{
		ID:            id,
		TypeName:      wire.Type,
		Serialization: wire.Serialization,
		Payload:       payload,
		Timeout:       time.Duration(wire.TimeoutMS) * time.Millisecond,
	}
	if wire.ResourceLimits != nil {
		req.Limits = &rlimit.Limits{
			RAMMB:      wire.ResourceLimits.RAMMB,
			CPUPercent: wire.ResourceLimits.CPUPercent,
		}
	}

	resp := s.dispatcher.Execute(r.Context(), req)

	if s.history != nil {
		if err := s.history.Record(r.Context(), wire.Type, resp); err != nil {
			s.logger.Error("failed to record inspection", "inspection_id", resp.ID, "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, toWireResponse(resp))
}

// handleRegister handles POST /register. Registration never throws
// outward: load failures are reported through the entry and show up in
// subsequent /inspect and /types calls.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var wire RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, SuccessResponse{Success: false, Error: "invalid JSON body: " + err.Error()})
		return
	}
	if wire.TypeName == "" || wire.ScriptPath == "" {
		s.writeJSON(w, http.StatusInternalServerError, SuccessResponse{Success: false, Error: "typeName and scriptPath are required"})
		return
	}

	ok := s.registry.Register(wire.TypeName, wire.ScriptPath)
	s.writeJSON(w, http.StatusOK, SuccessResponse{Success: ok})
}

// handleReload handles POST /reload.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var wire ReloadRequest
	if err := json.NewDecoder(r.Body).Decode(&wire); err != nil {
		s.writeJSON(w, http.StatusInternalServerError, SuccessResponse{Success: false, Error: "invalid JSON body: " + err.Error()})
		return
	}
	if wire.TypeName == "" {
		s.writeJSON(w, http.StatusInternalServerError, SuccessResponse{Success: false, Error: "typeName is required"})
		return
	}

	ok := s.registry.Reload(wire.TypeName)
	s.writeJSON(w, http.StatusOK, SuccessResponse{Success: ok})
}

// handleTypes handles GET /types.
func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.Entries()
	resp := TypesResponse{Types: make([]TypeInfo, 0, len(entries))}
	for _, e := range entries {
		resp.Types = append(resp.Types, TypeInfo{
			TypeName:   e.TypeName,
			ScriptPath: e.ScriptPath,
			Checksum:   e.Checksum,
			Loaded:     e.Loaded(),
			LoadError:  e.LoadError,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleHistory handles GET /history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotFound, "inspection history is disabled")
		return
	}

	recs, err := s.history.Recent(r.Context(), 50)
	if err != nil {
		s.logger.Error("failed to read inspection history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read inspection history")
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	s.writeJSON(w, http.StatusOK, HistoryResponse{Inspections: recs})
}

// handleShutdown handles POST /shutdown: acknowledge now, stop shortly
// after. The worker pool does not wait for in-flight tasks.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("shutdown requested")
	time.AfterFunc(s.config.ShutdownDelay, s.requestStop)
	s.writeJSON(w, http.StatusOK, ShutdownResponse{Status: "shutting_down"})
}

func toWireResponse(resp dispatch.Response) InspectResponse {
	out := InspectResponse{
		InspectionID: resp.ID,
		Success:      resp.Success,
		ErrorKind:    string(resp.Kind),
	}
	if resp.Success {
		result := resp.Result
		out.Result = &result
		ms := float64(resp.Elapsed) / float64(time.Millisecond)
		out.ExecutionTimeMS = &ms
	} else {
		errMsg := resp.Error
		out.Error = &errMsg
	}
	return out
}

func (s *Server) writeInspectFailure(w http.ResponseWriter, status int, id string, kind dispatch.ErrorKind, msg string) {
	out := InspectResponse{
		InspectionID: id,
		Success:      false,
		Error:        &msg,
		ErrorKind:    string(kind),
	}
	s.writeJSON(w, status, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
