package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/demandmonitor/internal/demand"
	"github.com/chrissnell/demandmonitor/internal/log"
	"github.com/chrissnell/demandmonitor/internal/registry"
	"github.com/chrissnell/demandmonitor/pkg/responseformat"
)

// Detail window bounds, in minutes.
const (
	minMinutesAhead     = 15
	maxMinutesAhead     = 720
	defaultMinutesAhead = 60

	maxBodyBytes = 1 << 20
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorw("error encoding response", "path", req.URL.Path, "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, status int, message string) {
	if err := h.formatter.WriteError(w, req, status, message); err != nil {
		h.controller.logger.Errorw("error encoding error response", "path", req.URL.Path, "error", err)
	}
}

// writeFailure maps an error from the demand layer onto a status code.
func (h *Handlers) writeFailure(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case demand.IsValidation(err):
		h.writeError(w, req, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeError(w, req, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.controller.logger.Errorw("request failed",
			"path", req.URL.Path,
			"request_id", req.Header.Get(log.RequestIDHeader),
			"error", err)
		h.writeError(w, req, http.StatusInternalServerError, "internal error")
	}
}

// intParam reads an optional integer query parameter.
func intParam(req *http.Request, name string, def int) (int, error) {
	v := strings.TrimSpace(req.URL.Query().Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &demand.ValidationError{Index: -1, Reason: fmt.Sprintf("%s must be an integer", name)}
	}
	return n, nil
}

// GetBatch handles GET /api/demand/batch with monitors as a JSON query
// parameter.
func (h *Handlers) GetBatch(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	var specs []demand.MonitorSpec
	if raw := strings.TrimSpace(q.Get("monitors")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &specs); err != nil {
			h.writeError(w, req, http.StatusBadRequest, "invalid monitors JSON: "+err.Error())
			return
		}
	}

	bucketMinutes, err := intParam(req, "bucket_minutes", 0)
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	horizonHours, err := intParam(req, "horizon_hours", 0)
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}

	h.runBatch(w, req, demand.Request{
		Monitors:      specs,
		BucketMinutes: bucketMinutes,
		HorizonHours:  horizonHours,
	})
}

// PostBatch handles POST /api/demand/batch with a JSON body.
func (h *Handlers) PostBatch(w http.ResponseWriter, req *http.Request) {
	var body BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.writeError(w, req, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	h.runBatch(w, req, demand.Request{
		Monitors:      body.Monitors,
		BucketMinutes: body.BucketMinutes,
		HorizonHours:  body.HorizonHours,
	})
}

func (h *Handlers) runBatch(w http.ResponseWriter, req *http.Request, dr demand.Request) {
	resp, err := h.controller.deps.Aggregator.Run(req.Context(), dr)
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, transformBatch(resp))
}

// GetDetails handles GET /api/demand/details, listing the flights one
// monitor captures.
func (h *Handlers) GetDetails(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	minutesAhead, err := intParam(req, "minutes_ahead", defaultMinutesAhead)
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	if minutesAhead < minMinutesAhead || minutesAhead > maxMinutesAhead {
		h.writeError(w, req, http.StatusBadRequest,
			fmt.Sprintf("minutes_ahead must be between %d and %d", minMinutesAhead, maxMinutesAhead))
		return
	}

	spec := demand.MonitorSpec{
		Type:    q.Get("type"),
		Fix:     q.Get("fix"),
		From:    q.Get("from"),
		To:      q.Get("to"),
		Airway:  q.Get("airway"),
		Via:     q.Get("via"),
		ViaType: q.Get("via_type"),
	}
	if q.Get("filter_type") != "" || q.Get("filter_code") != "" {
		spec.Filter = &demand.LocationSpec{
			Type:      q.Get("filter_type"),
			Code:      q.Get("filter_code"),
			Direction: q.Get("direction"),
		}
	}
	if raw := strings.TrimSpace(q.Get("flight_filter")); raw != "" {
		var ff demand.FlightFilter
		if err := json.Unmarshal([]byte(raw), &ff); err != nil {
			h.writeError(w, req, http.StatusBadRequest, "invalid flight_filter JSON: "+err.Error())
			return
		}
		spec.FlightFilter = &ff
	}

	m, details, err := h.controller.deps.Aggregator.Details(req.Context(), spec, time.Duration(minutesAhead)*time.Minute)
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, transformDetails(m, minutesAhead, details))
}

func (h *Handlers) requireRegistry(w http.ResponseWriter, req *http.Request) bool {
	if h.controller.deps.Registry == nil {
		h.writeError(w, req, http.StatusNotFound, "monitor registry is not configured")
		return false
	}
	return true
}

// ListMonitors handles GET /api/demand/monitors.
func (h *Handlers) ListMonitors(w http.ResponseWriter, req *http.Request) {
	if !h.requireRegistry(w, req) {
		return
	}
	entries, err := h.controller.deps.Registry.List(req.Context())
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, MonitorListResponse{Monitors: entries})
}

// CreateMonitor handles POST /api/demand/monitors. Registering a monitor
// that already exists is not an error.
func (h *Handlers) CreateMonitor(w http.ResponseWriter, req *http.Request) {
	if !h.requireRegistry(w, req) {
		return
	}

	var body MonitorCreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.writeError(w, req, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(body.Definition) == 0 || string(body.Definition) == "null" {
		h.writeError(w, req, http.StatusBadRequest, "missing required fields: type, definition")
		return
	}

	var spec demand.MonitorSpec
	if err := json.Unmarshal(body.Definition, &spec); err != nil {
		h.writeError(w, req, http.StatusBadRequest, "invalid definition: "+err.Error())
		return
	}
	if spec.Type == "" {
		spec.Type = body.Type
	}

	entry, created, err := h.controller.deps.Registry.Create(req.Context(), registry.CreateRequest{
		Definition: spec,
		Label:      body.Label,
		CreatedBy:  body.CreatedBy,
	})
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}

	if !created {
		h.write(w, req, http.StatusOK, MonitorMutationResponse{
			Success: true, ID: entry.ID, Key: entry.Key, Message: "Monitor already exists",
		})
		return
	}
	h.write(w, req, http.StatusCreated, MonitorMutationResponse{
		Success: true, ID: entry.ID, Key: entry.Key, Message: "Monitor created",
	})
}

// DeleteMonitor handles DELETE /api/demand/monitors?id=N or ?monitor_key=K.
func (h *Handlers) DeleteMonitor(w http.ResponseWriter, req *http.Request) {
	if !h.requireRegistry(w, req) {
		return
	}

	q := req.URL.Query()
	var id uint
	if v := strings.TrimSpace(q.Get("id")); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			h.writeError(w, req, http.StatusBadRequest, "id must be a positive integer")
			return
		}
		id = uint(n)
	}

	err := h.controller.deps.Registry.Delete(req.Context(), id, q.Get("monitor_key"))
	if errors.Is(err, registry.ErrNotFound) {
		h.writeError(w, req, http.StatusNotFound, "Monitor not found")
		return
	}
	if err != nil {
		h.writeFailure(w, req, err)
		return
	}
	h.write(w, req, http.StatusOK, MonitorMutationResponse{Success: true, Message: "Monitor deleted"})
}

// GetAirway handles GET /api/airway?airway=J48,Q100.
func (h *Handlers) GetAirway(w http.ResponseWriter, req *http.Request) {
	if h.controller.deps.Airways == nil {
		h.writeError(w, req, http.StatusNotFound, "reference navdata is not configured")
		return
	}

	param := req.URL.Query().Get("airway")
	if strings.TrimSpace(param) == "" {
		h.writeError(w, req, http.StatusBadRequest, "missing required parameter: airway")
		return
	}

	var names []string
	for _, n := range strings.Split(param, ",") {
		if n = strings.ToUpper(strings.TrimSpace(n)); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		h.writeError(w, req, http.StatusBadRequest, "no valid airway names provided")
		return
	}

	resp := AirwayResponse{Success: true, Airways: make(map[string]AirwayResult, len(names))}
	for _, name := range names {
		a, err := h.controller.deps.Airways.Airway(req.Context(), name)
		if err != nil {
			h.controller.logger.Warnw("airway lookup failed", "airway", name, "error", err)
			resp.Airways[name] = AirwayResult{Name: name, Type: demand.DetectAirwayType(name), Error: "Query failed"}
			continue
		}
		resp.Airways[name] = transformAirway(name, a)
	}
	h.write(w, req, http.StatusOK, resp)
}

// Healthz pings every configured dependency.
func (h *Handlers) Healthz(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string), Time: time.Now().UTC()}
	status := http.StatusOK
	for name, check := range h.controller.deps.HealthChecks {
		if err := check.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.write(w, req, status, resp)
}

// GetHTTPLogs returns the recent HTTP access log.
func (h *Handlers) GetHTTPLogs(w http.ResponseWriter, req *http.Request) {
	h.write(w, req, http.StatusOK, map[string]any{
		"entries": log.GetHTTPLogBuffer().Entries(),
	})
}
