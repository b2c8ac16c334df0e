// ABOUTME: Admin HTTP API for relay users, the relay service, logs, and the audit trail
// ABOUTME: Handlers sit behind the authentication gate and answer in JSON

package webadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/smherdgn/turn-management/internal/auth"
	"github.com/smherdgn/turn-management/internal/store"
	"github.com/smherdgn/turn-management/internal/turn"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// MsgRealmMissing is returned when relay user operations run without a realm.
const MsgRealmMissing = "Server configuration error: REALM environment variable is not set."

// RelayUsers manages relay credentials.
type RelayUsers interface {
	Realm() string
	List(ctx context.Context) ([]turn.RelayUser, error)
	Add(ctx context.Context, username, password string) error
	Delete(ctx context.Context, username string) error
}

// LogTailer returns the tail of the relay log.
type LogTailer interface {
	Path() string
	Tail(ctx context.Context, n int) ([]string, error)
}

// InstallProber reports whether the relay is installed.
type InstallProber interface {
	Check(ctx context.Context) turn.InstallStatus
}

// AuditLog records and lists administrative actions.
type AuditLog interface {
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
	ListAuditLog(ctx context.Context, f store.AuditFilter) ([]store.AuditEntry, error)
}

// Deps holds the components the admin API drives. Audit may be nil.
type Deps struct {
	Users      RelayUsers
	Controller turn.Controller
	Logs       LogTailer
	Installer  InstallProber
	Audit      AuditLog
	Logger     *slog.Logger
}

// Admin serves the admin API and pages.
type Admin struct {
	users      RelayUsers
	controller turn.Controller
	logs       LogTailer
	installer  InstallProber
	audit      AuditLog
	pages      *pageRenderer
	logger     *slog.Logger
}

// New creates an Admin from its dependencies.
func New(deps Deps) (*Admin, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webadmin")

	pages, err := newPageRenderer(logger)
	if err != nil {
		return nil, fmt.Errorf("loading page templates: %w", err)
	}

	return &Admin{
		users:      deps.Users,
		controller: deps.Controller,
		logs:       deps.Logs,
		installer:  deps.Installer,
		audit:      deps.Audit,
		pages:      pages,
		logger:     logger,
	}, nil
}

// RegisterRoutes mounts the admin API and pages on mux. Protection of the
// /api routes is the gate's job, so handlers here assume an authenticated caller.
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	// Relay users
	mux.HandleFunc("GET /api/users", a.handleListUsers)
	mux.HandleFunc("POST /api/users", a.handleAddUser)
	mux.HandleFunc("DELETE /api/users/{username}", a.handleDeleteUser)

	// Relay service
	mux.HandleFunc("GET /api/status", a.handleStatus)
	mux.HandleFunc("POST /api/start", a.handleServiceAction(turn.ActionStart))
	mux.HandleFunc("POST /api/stop", a.handleServiceAction(turn.ActionStop))
	mux.HandleFunc("POST /api/restart", a.handleServiceAction(turn.ActionRestart))
	mux.HandleFunc("POST /api/control", a.handleControl)

	// Diagnostics
	mux.HandleFunc("GET /api/logs", a.handleLogs)
	mux.HandleFunc("GET /api/coturn-check", a.handleCoturnCheck)
	mux.HandleFunc("GET /api/audit", a.handleAudit)

	a.registerPages(mux)

	a.logger.Info("admin routes registered")
}

type addUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Stderr  string `json:"stderr,omitempty"`
}

func failure(message string, err error) errorResponse {
	return errorResponse{Message: message, Error: err.Error(), Stderr: turn.Stderr(err)}
}

func (a *Admin) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if a.users.Realm() == "" {
		a.logger.Error("relay realm is not configured")
		writeMessage(w, http.StatusInternalServerError, MsgRealmMissing)
		return
	}

	users, err := a.users.List(r.Context())
	if err != nil {
		a.logger.Error("failed to list relay users", "error", err)
		writeJSON(w, http.StatusInternalServerError, failure("Failed to list users.", err))
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (a *Admin) handleAddUser(w http.ResponseWriter, r *http.Request) {
	realm := a.users.Realm()
	if realm == "" {
		a.logger.Error("relay realm is not configured")
		writeMessage(w, http.StatusInternalServerError, MsgRealmMissing)
		return
	}

	var req addUserRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	err := a.users.Add(r.Context(), req.Username, req.Password)
	a.recordAudit(r, store.AuditAddRelayUser, "relay_user", req.Username, err)

	switch {
	case err == nil:
		writeMessage(w, http.StatusCreated, fmt.Sprintf("User '%s' added successfully to realm '%s'.", req.Username, realm))
	case errors.Is(err, turn.ErrPasswordTooShort):
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters long.")
	case errors.Is(err, turn.ErrInvalidUsername):
		writeMessage(w, http.StatusBadRequest, "Invalid username.")
	case errors.Is(err, turn.ErrUserExists):
		writeMessage(w, http.StatusConflict, fmt.Sprintf("User '%s' already exists in realm '%s'.", req.Username, realm))
	default:
		a.logger.Error("failed to add relay user", "username", req.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, failure(fmt.Sprintf("Failed to add user '%s'.", req.Username), err))
	}
}

func (a *Admin) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	realm := a.users.Realm()
	if realm == "" {
		a.logger.Error("relay realm is not configured")
		writeMessage(w, http.StatusInternalServerError, MsgRealmMissing)
		return
	}

	username := r.PathValue("username")
	if username == "" {
		writeMessage(w, http.StatusBadRequest, "Username path parameter is required for deletion.")
		return
	}

	err := a.users.Delete(r.Context(), username)
	a.recordAudit(r, store.AuditDeleteRelayUser, "relay_user", username, err)

	switch {
	case err == nil:
		writeMessage(w, http.StatusOK, fmt.Sprintf("User '%s' deleted successfully from realm '%s'.", username, realm))
	case errors.Is(err, turn.ErrInvalidUsername):
		writeMessage(w, http.StatusBadRequest, "Invalid username.")
	case errors.Is(err, turn.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("User '%s' not found in realm '%s'.", username, realm))
	default:
		a.logger.Error("failed to delete relay user", "username", username, "error", err)
		writeJSON(w, http.StatusInternalServerError, failure(fmt.Sprintf("Failed to delete user '%s'.", username), err))
	}
}

type serviceResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a *Admin) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.controller.Status(r.Context())
	if err != nil {
		a.logger.Error("failed to get service status", "service", a.controller.ServiceName(), "error", err)
		writeJSON(w, http.StatusInternalServerError, serviceResponse{
			Success: false,
			Output:  turn.StatusUnknown,
			Message: "Failed to get service status",
		})
		return
	}
	writeJSON(w, http.StatusOK, serviceResponse{Success: true, Output: status})
}

// handleServiceAction serves the single-verb endpoints: /api/start, /api/stop, /api/restart.
func (a *Admin) handleServiceAction(action turn.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := a.controller.ServiceName()
		out, err := a.controller.Do(r.Context(), action)
		a.recordAudit(r, serviceAuditAction(action), "service", name, err)

		if err != nil {
			a.logger.Error("service action failed", "service", name, "action", action, "error", err)
			if out == "" {
				out = fmt.Sprintf("Failed to %s service.", action)
			}
			writeJSON(w, http.StatusInternalServerError, serviceResponse{
				Success: false,
				Output:  out,
				Error:   err.Error(),
			})
			return
		}

		if out == "" {
			out = fmt.Sprintf("Service %s %s command issued successfully.", name, action)
		}
		writeJSON(w, http.StatusOK, serviceResponse{Success: true, Output: out})
	}
}

type controlRequest struct {
	Action string `json:"action"`
}

func (a *Admin) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	action, err := turn.ParseAction(req.Action)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid or missing 'action' in JSON body. Must be 'start', 'stop', or 'restart'.")
		return
	}

	name := a.controller.ServiceName()
	_, err = a.controller.Do(r.Context(), action)
	a.recordAudit(r, serviceAuditAction(action), "service", name, err)

	if err != nil {
		a.logger.Error("service control failed", "service", name, "action", action, "error", err)
		writeJSON(w, http.StatusInternalServerError, failure(fmt.Sprintf("Failed to %s %s", action, name), err))
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Service %s %s successfully.", name, action.PastTense()))
}

type logsResponse struct {
	File  string   `json:"file"`
	Lines []string `json:"lines"`
}

func (a *Admin) handleLogs(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("lines"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeMessage(w, http.StatusBadRequest, "Query parameter 'lines' must be a positive integer.")
			return
		}
		n = v
	}

	lines, err := a.logs.Tail(r.Context(), n)
	if err != nil {
		if errors.Is(err, turn.ErrLogUnavailable) {
			writeMessage(w, http.StatusNotFound, fmt.Sprintf("Relay log not found at %s.", a.logs.Path()))
			return
		}
		a.logger.Error("failed to read relay log", "path", a.logs.Path(), "error", err)
		writeJSON(w, http.StatusInternalServerError, failure("Failed to read relay log.", err))
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{File: a.logs.Path(), Lines: lines})
}

func (a *Admin) handleCoturnCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.installer.Check(r.Context()))
}

func (a *Admin) handleAudit(w http.ResponseWriter, r *http.Request) {
	if a.audit == nil {
		writeMessage(w, http.StatusNotFound, "Audit log is disabled.")
		return
	}

	q := r.URL.Query()
	var filter store.AuditFilter
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			writeMessage(w, http.StatusBadRequest, "Query parameter 'limit' must be a positive integer.")
			return
		}
		filter.Limit = limit
	}
	if raw := q.Get("action"); raw != "" {
		action := store.AuditAction(raw)
		filter.Action = &action
	}
	if raw := q.Get("actor"); raw != "" {
		filter.Actor = &raw
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Query parameter 'since' must be an RFC 3339 timestamp.")
			return
		}
		filter.Since = &since
	}

	entries, err := a.audit.ListAuditLog(r.Context(), filter)
	if err != nil {
		a.logger.Error("failed to list audit log", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to read audit log.")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func serviceAuditAction(action turn.Action) store.AuditAction {
	switch action {
	case turn.ActionStop:
		return store.AuditServiceStop
	case turn.ActionRestart:
		return store.AuditServiceRestart
	default:
		return store.AuditServiceStart
	}
}

// recordAudit appends an audit entry for a privileged operation. Failures to
// write are logged and never change the response.
func (a *Admin) recordAudit(r *http.Request, action store.AuditAction, targetType, targetID string, opErr error) {
	if a.audit == nil {
		return
	}

	entry := &store.AuditEntry{
		Actor:      auth.IdentityFromContext(r.Context()),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Success:    opErr == nil,
		RemoteAddr: auth.ClientIP(r),
	}
	if opErr != nil {
		entry.Detail = map[string]any{"error": opErr.Error()}
	}

	if err := a.audit.AppendAuditLog(r.Context(), entry); err != nil {
		a.logger.Warn("failed to write audit entry", "action", action, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
