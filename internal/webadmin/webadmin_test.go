// ABOUTME: Tests for the admin API handlers
// ABOUTME: Drives each route through a real mux with fake relay components

package webadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smherdgn/turn-management/internal/auth"
	"github.com/smherdgn/turn-management/internal/store"
	"github.com/smherdgn/turn-management/internal/turn"
)

const testAdmin = "admin@example.com"

type fakeUsers struct {
	realm   string
	users   []turn.RelayUser
	listErr error
	addErr  error
	delErr  error
	added   []string
	deleted []string
}

func (f *fakeUsers) Realm() string { return f.realm }

func (f *fakeUsers) List(context.Context) ([]turn.RelayUser, error) {
	return f.users, f.listErr
}

func (f *fakeUsers) Add(_ context.Context, username, _ string) error {
	f.added = append(f.added, username)
	return f.addErr
}

func (f *fakeUsers) Delete(_ context.Context, username string) error {
	f.deleted = append(f.deleted, username)
	return f.delErr
}

type fakeController struct {
	status    string
	statusErr error
	out       string
	doErr     error
	actions   []turn.Action
}

func (f *fakeController) ServiceName() string { return "coturn" }

func (f *fakeController) Status(context.Context) (string, error) {
	return f.status, f.statusErr
}

func (f *fakeController) Do(_ context.Context, action turn.Action) (string, error) {
	f.actions = append(f.actions, action)
	return f.out, f.doErr
}

type fakeLogs struct {
	lines     []string
	err       error
	requested int
}

func (f *fakeLogs) Path() string { return "/var/log/turnserver.log" }

func (f *fakeLogs) Tail(_ context.Context, n int) ([]string, error) {
	f.requested = n
	return f.lines, f.err
}

type fakeInstaller struct {
	status turn.InstallStatus
}

func (f *fakeInstaller) Check(context.Context) turn.InstallStatus { return f.status }

type adminFixture struct {
	admin      *Admin
	mux        *http.ServeMux
	users      *fakeUsers
	controller *fakeController
	logs       *fakeLogs
	installer  *fakeInstaller
	audit      *store.MockStore
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	f := &adminFixture{
		users:      &fakeUsers{realm: "turn.example.com"},
		controller: &fakeController{status: "active"},
		logs:       &fakeLogs{},
		installer:  &fakeInstaller{},
		audit:      store.NewMockStore(),
	}

	admin, err := New(Deps{
		Users:      f.users,
		Controller: f.controller,
		Logs:       f.logs,
		Installer:  f.installer,
		Audit:      f.audit,
	})
	require.NoError(t, err)

	f.admin = admin
	f.mux = http.NewServeMux()
	admin.RegisterRoutes(f.mux)
	return f
}

// do sends a request as an authenticated administrator.
func (f *adminFixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{Identity: testAdmin, Role: "admin"}))

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *adminFixture) auditEntries(t *testing.T) []store.AuditEntry {
	t.Helper()
	entries, err := f.audit.ListAuditLog(context.Background(), store.AuditFilter{})
	require.NoError(t, err)
	return entries
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func commandFailure(stderr string) error {
	return &turn.CommandError{
		Name:   "turnadmin",
		Result: turn.Result{Stderr: stderr, ExitCode: 1},
		Err:    errors.New("exit status 1"),
	}
}

func TestListUsers(t *testing.T) {
	f := newAdminFixture(t)
	f.users.users = []turn.RelayUser{
		{Username: "alice", Realm: "turn.example.com"},
		{Username: "bob", Realm: "turn.example.com"},
	}

	rec := f.do(http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var users []turn.RelayUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Equal(t, f.users.users, users)
}

func TestListUsers_RealmMissing(t *testing.T) {
	f := newAdminFixture(t)
	f.users.realm = ""

	rec := f.do(http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgRealmMissing, decodeBody(t, rec)["message"])
}

func TestListUsers_CommandFailure(t *testing.T) {
	f := newAdminFixture(t)
	f.users.listErr = commandFailure("cannot open db")

	rec := f.do(http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Failed to list users.", body["message"])
	assert.Equal(t, "cannot open db", body["stderr"])
}

func TestAddUser(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.do(http.MethodPost, "/api/users", `{"username":"carol","password":"secret1"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User 'carol' added successfully to realm 'turn.example.com'.", decodeBody(t, rec)["message"])
	assert.Equal(t, []string{"carol"}, f.users.added)

	entries := f.auditEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, store.AuditAddRelayUser, entries[0].Action)
	assert.Equal(t, testAdmin, entries[0].Actor)
	assert.Equal(t, "carol", entries[0].TargetID)
	assert.True(t, entries[0].Success)
}

func TestAddUser_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		addErr     error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "invalid json",
			body:       `{"username":`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid JSON body.",
		},
		{
			name:       "missing password",
			body:       `{"username":"carol"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Username and password are required.",
		},
		{
			name:       "short password",
			body:       `{"username":"carol","password":"123"}`,
			addErr:     turn.ErrPasswordTooShort,
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Password must be at least 6 characters long.",
		},
		{
			name:       "flag-like username",
			body:       `{"username":"-L","password":"123456"}`,
			addErr:     fmt.Errorf("%w: must not start with '-'", turn.ErrInvalidUsername),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "Invalid username.",
		},
		{
			name:       "already exists",
			body:       `{"username":"carol","password":"123456"}`,
			addErr:     turn.ErrUserExists,
			wantStatus: http.StatusConflict,
			wantMsg:    "User 'carol' already exists in realm 'turn.example.com'.",
		},
		{
			name:       "command failure",
			body:       `{"username":"carol","password":"123456"}`,
			addErr:     commandFailure("database locked"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Failed to add user 'carol'.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture(t)
			f.users.addErr = tt.addErr

			rec := f.do(http.MethodPost, "/api/users", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeBody(t, rec)["message"])
		})
	}
}

func TestAddUser_FailureIsAudited(t *testing.T) {
	f := newAdminFixture(t)
	f.users.addErr = turn.ErrUserExists

	f.do(http.MethodPost, "/api/users", `{"username":"carol","password":"123456"}`)

	entries := f.auditEntries(t)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Success)
	assert.NotEmpty(t, entries[0].Detail["error"])
}

func TestDeleteUser(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.do(http.MethodDelete, "/api/users/alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User 'alice' deleted successfully from realm 'turn.example.com'.", decodeBody(t, rec)["message"])
	assert.Equal(t, []string{"alice"}, f.users.deleted)

	entries := f.auditEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, store.AuditDeleteRelayUser, entries[0].Action)
}

func TestDeleteUser_NotFound(t *testing.T) {
	f := newAdminFixture(t)
	f.users.delErr = turn.ErrUserNotFound

	rec := f.do(http.MethodDelete, "/api/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User 'ghost' not found in realm 'turn.example.com'.", decodeBody(t, rec)["message"])
}

func TestStatus(t *testing.T) {
	f := newAdminFixture(t)
	f.controller.status = "inactive"

	rec := f.do(http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "inactive", body["output"])
}

func TestStatus_Failure(t *testing.T) {
	f := newAdminFixture(t)
	f.controller.status = turn.StatusUnknown
	f.controller.statusErr = errors.New("no bus")

	rec := f.do(http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unknown", body["output"])
	assert.Equal(t, "Failed to get service status", body["message"])
}

func TestServiceActionEndpoints(t *testing.T) {
	for _, action := range []turn.Action{turn.ActionStart, turn.ActionStop, turn.ActionRestart} {
		t.Run(string(action), func(t *testing.T) {
			f := newAdminFixture(t)

			rec := f.do(http.MethodPost, "/api/"+string(action), "")
			assert.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, fmt.Sprintf("Service coturn %s command issued successfully.", action), body["output"])
			assert.Equal(t, []turn.Action{action}, f.controller.actions)

			entries := f.auditEntries(t)
			require.Len(t, entries, 1)
			assert.Equal(t, serviceAuditAction(action), entries[0].Action)
			assert.Equal(t, "coturn", entries[0].TargetID)
			assert.Equal(t, "192.0.2.1", entries[0].RemoteAddr, "audit stores the host without the port")
		})
	}
}

func TestServiceAction_Failure(t *testing.T) {
	f := newAdminFixture(t)
	f.controller.doErr = errors.New("exit status 1")

	rec := f.do(http.MethodPost, "/api/stop", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to stop service.", body["output"])
	assert.Equal(t, "exit status 1", body["error"])
}

func TestServiceAction_MethodNotAllowed(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.do(http.MethodGet, "/api/restart", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, f.controller.actions)
}

func TestControl(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.do(http.MethodPost, "/api/control", `{"action":"restart"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service coturn restarted successfully.", decodeBody(t, rec)["message"])
	assert.Equal(t, []turn.Action{turn.ActionRestart}, f.controller.actions)
}

func TestControl_InvalidAction(t *testing.T) {
	for _, body := range []string{`{"action":"reload"}`, `{}`, `{"action":""}`} {
		t.Run(body, func(t *testing.T) {
			f := newAdminFixture(t)

			rec := f.do(http.MethodPost, "/api/control", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid or missing 'action' in JSON body. Must be 'start', 'stop', or 'restart'.", decodeBody(t, rec)["message"])
			assert.Empty(t, f.controller.actions)
		})
	}
}

func TestControl_MalformedBody(t *testing.T) {
	for _, body := range []string{`not json`, `{"action":`, ""} {
		t.Run(body, func(t *testing.T) {
			f := newAdminFixture(t)

			rec := f.do(http.MethodPost, "/api/control", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid JSON body.", decodeBody(t, rec)["message"])
			assert.Empty(t, f.controller.actions)
		})
	}
}

func TestControl_Failure(t *testing.T) {
	f := newAdminFixture(t)
	f.controller.doErr = errors.New("permission denied")

	rec := f.do(http.MethodPost, "/api/control", `{"action":"start"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Failed to start coturn", body["message"])
	assert.Equal(t, "permission denied", body["error"])
}

func TestLogs(t *testing.T) {
	f := newAdminFixture(t)
	f.logs.lines = []string{"a", "b"}

	rec := f.do(http.MethodGet, "/api/logs?lines=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body logsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/var/log/turnserver.log", body.File)
	assert.Equal(t, []string{"a", "b"}, body.Lines)
	assert.Equal(t, 2, f.logs.requested)
}

func TestLogs_BadParameter(t *testing.T) {
	f := newAdminFixture(t)

	rec := f.do(http.MethodGet, "/api/logs?lines=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogs_Missing(t *testing.T) {
	f := newAdminFixture(t)
	f.logs.err = fmt.Errorf("%w: /var/log/turnserver.log", turn.ErrLogUnavailable)

	rec := f.do(http.MethodGet, "/api/logs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, f.logs.requested, "zero asks the reader for its default")
}

func TestCoturnCheck(t *testing.T) {
	f := newAdminFixture(t)
	f.installer.status = turn.InstallStatus{Installed: true, Version: "4.6.2"}

	rec := f.do(http.MethodGet, "/api/coturn-check", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["installed"])
	assert.Equal(t, "4.6.2", body["version"])
}

func TestAudit(t *testing.T) {
	f := newAdminFixture(t)
	f.do(http.MethodPost, "/api/start", "")
	f.do(http.MethodDelete, "/api/users/alice", "")

	rec := f.do(http.MethodGet, "/api/audit?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []store.AuditEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	rec = f.do(http.MethodGet, "/api/audit?action=service_start", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, store.AuditServiceStart, entries[0].Action)
}

func TestAudit_BadParameters(t *testing.T) {
	f := newAdminFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/audit?limit=-2", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/audit?since=yesterday", "").Code)
}

func TestAudit_Disabled(t *testing.T) {
	admin, err := New(Deps{
		Users:      &fakeUsers{realm: "r"},
		Controller: &fakeController{},
		Logs:       &fakeLogs{},
		Installer:  &fakeInstaller{},
	})
	require.NoError(t, err)
	mux := http.NewServeMux()
	admin.RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/start", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "operations work without an audit log")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditWriteFailureDoesNotChangeResponse(t *testing.T) {
	f := newAdminFixture(t)
	f.audit.AppendErr = errors.New("disk full")

	rec := f.do(http.MethodPost, "/api/users", `{"username":"carol","password":"123456"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
