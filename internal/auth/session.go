// ABOUTME: Login, logout, and self-check endpoints for administrator sessions
// ABOUTME: Login verifies a credential and issues a token cookie; logout always clears it

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smherdgn/turn-management/internal/credentials"
	"github.com/smherdgn/turn-management/internal/metrics"
	"github.com/smherdgn/turn-management/internal/store"
)

// Session endpoint messages
const (
	MsgMissingFields      = "Email and password are required."
	MsgInvalidBody        = "Invalid request body."
	MsgStoreUnavailable   = "Could not read credential store."
	MsgInvalidCredentials = "Invalid email or password"
	MsgLoginSuccessful    = "Login successful"
	MsgLogoutSuccessful   = "Logout successful"
	MsgTooManyAttempts    = "Too many login attempts. Try again later."
	MsgNotAuthenticated   = "Not authenticated. Token not found."
	MsgSessionInvalid     = "Invalid or expired session."
	MsgTokenIssueFailed   = "Could not create session."
)

// maxLoginBody bounds the login request body.
const maxLoginBody = 64 << 10

// AuditRecorder is the slice of the audit store the session endpoint writes to.
type AuditRecorder interface {
	AppendAuditLog(ctx context.Context, e *store.AuditEntry) error
}

// SessionConfig holds the collaborators of a SessionHandler.
type SessionConfig struct {
	Codec       *TokenCodec
	Cookies     *CookieManager
	Credentials credentials.Store
	Verifier    credentials.Verifier
	Limiter     *LoginLimiter // nil disables rate limiting
	Audit       AuditRecorder // nil disables audit records
	Logger      *slog.Logger
}

// SessionHandler serves /api/login, /api/logout, and /api/me.
type SessionHandler struct {
	codec    *TokenCodec
	cookies  *CookieManager
	creds    credentials.Store
	verifier credentials.Verifier
	limiter  *LoginLimiter
	audit    AuditRecorder
	logger   *slog.Logger
}

// NewSessionHandler creates the session endpoint. A nil Verifier falls back to
// plaintext comparison.
func NewSessionHandler(cfg SessionConfig) *SessionHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	verifier := cfg.Verifier
	if verifier == nil {
		verifier = credentials.PlaintextVerifier{}
	}
	return &SessionHandler{
		codec:    cfg.Codec,
		cookies:  cfg.Cookies,
		creds:    cfg.Credentials,
		verifier: verifier,
		limiter:  cfg.Limiter,
		audit:    cfg.Audit,
		logger:   logger.With("component", "session"),
	}
}

// RegisterRoutes registers the session endpoints on mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.HandleFunc("GET /api/logout", h.handleLogout)
	mux.HandleFunc("POST /api/logout", h.handleLogout)
	mux.HandleFunc("GET /api/me", h.handleMe)
}

// loginRequest accepts both the browser form's field names and the generic ones.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

func (req *loginRequest) normalize() (identity, secret string) {
	identity = strings.TrimSpace(req.Email)
	if identity == "" {
		identity = strings.TrimSpace(req.Identity)
	}
	secret = req.Password
	if secret == "" {
		secret = req.Secret
	}
	return identity, secret
}

func decodeLogin(r *http.Request) (*loginRequest, error) {
	var req loginRequest
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
		return &req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (h *SessionHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.codec == nil {
		h.logger.Error("login attempted without a signing secret")
		writeMessage(w, http.StatusInternalServerError, MsgConfigMissing)
		return
	}

	ip := ClientIP(r)
	if ok, wait := h.limiter.Allow(ip); !ok {
		metrics.ObserveLogin(metrics.LoginRateLimited)
		h.logger.Warn("login rate limited", "remote", ip)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		writeMessage(w, http.StatusTooManyRequests, MsgTooManyAttempts)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBody)
	req, err := decodeLogin(r)
	if err != nil {
		metrics.ObserveLogin(metrics.LoginBadRequest)
		writeMessage(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	identity, secret := req.normalize()
	if identity == "" || secret == "" {
		metrics.ObserveLogin(metrics.LoginBadRequest)
		writeMessage(w, http.StatusBadRequest, MsgMissingFields)
		return
	}

	cred, err := h.creds.FindByIdentity(r.Context(), identity)
	if err != nil && !errors.Is(err, credentials.ErrNotFound) {
		metrics.ObserveLogin(metrics.LoginStoreError)
		h.logger.Error("credential lookup failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, MsgStoreUnavailable)
		return
	}

	stored := ""
	if cred != nil {
		stored = cred.Secret
	}
	// Unknown identities still go through the verifier so both failures
	// take the same path and produce the same response.
	if !h.verifier.Verify(stored, secret) || cred == nil {
		metrics.ObserveLogin(metrics.LoginInvalid)
		h.logger.Info("login failed", "identity", identity, "remote", ip)
		h.record(r, &store.AuditEntry{
			Actor:      identity,
			Action:     store.AuditLogin,
			TargetType: "session",
			TargetID:   identity,
			Success:    false,
		})
		writeMessage(w, http.StatusUnauthorized, MsgInvalidCredentials)
		return
	}

	token, claims, err := h.codec.Issue(cred.Identity, cred.Role)
	if err != nil {
		h.logger.Error("issuing session token", "error", err)
		writeMessage(w, http.StatusInternalServerError, MsgTokenIssueFailed)
		return
	}

	h.cookies.Write(w, token)
	metrics.ObserveLogin(metrics.LoginSuccess)
	h.logger.Info("login successful", "identity", claims.Identity, "role", claims.Role, "remote", ip)
	h.record(r, &store.AuditEntry{
		Actor:      claims.Identity,
		Action:     store.AuditLogin,
		TargetType: "session",
		TargetID:   claims.Identity,
		Success:    true,
		Detail:     map[string]any{"expires_at": claims.ExpiresAt.Time.UTC().Format(time.RFC3339)},
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": MsgLoginSuccessful,
		"role":    claims.Role,
	})
}

func (h *SessionHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, err := Authenticate(r, h.codec, h.cookies); err == nil {
		h.logger.Info("logout", "identity", claims.Identity)
		h.record(r, &store.AuditEntry{
			Actor:      claims.Identity,
			Action:     store.AuditLogout,
			TargetType: "session",
			TargetID:   claims.Identity,
			Success:    true,
		})
	}

	h.cookies.Clear(w)
	writeMessage(w, http.StatusOK, MsgLogoutSuccessful)
}

type meUser struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type meResponse struct {
	Authenticated bool    `json:"authenticated"`
	User          *meUser `json:"user,omitempty"`
	Message       string  `json:"message,omitempty"`
}

func (h *SessionHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, err := Authenticate(r, h.codec, h.cookies)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, meResponse{
			Authenticated: true,
			User:          &meUser{Email: claims.Identity, Role: claims.Role},
		})
	case errors.Is(err, ErrNoToken):
		writeJSON(w, http.StatusUnauthorized, meResponse{Message: MsgNotAuthenticated})
	case errors.Is(err, ErrConfigMissing):
		h.logger.Error("session check without a signing secret")
		writeJSON(w, http.StatusInternalServerError, meResponse{Message: MsgConfigMissing})
	default:
		reason := "signature_invalid"
		if errors.Is(err, ErrExpired) {
			reason = "expired"
		}
		h.logger.Debug("session check rejected token", "reason", reason)
		h.cookies.Clear(w)
		writeJSON(w, http.StatusUnauthorized, meResponse{Message: MsgSessionInvalid})
	}
}

func (h *SessionHandler) record(r *http.Request, e *store.AuditEntry) {
	if h.audit == nil {
		return
	}
	e.RemoteAddr = ClientIP(r)
	if err := h.audit.AppendAuditLog(r.Context(), e); err != nil {
		h.logger.Warn("failed to record audit entry", "action", e.Action, "error", err)
	}
}
