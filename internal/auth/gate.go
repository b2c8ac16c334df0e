// ABOUTME: HTTP middleware enforcing session authentication on protected routes
// ABOUTME: Rejects missing tokens with 401 and invalid or expired ones with 401 plus a cookie clear

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/smherdgn/turn-management/internal/metrics"
)

// ErrNoToken is returned by Authenticate when the request carries no session cookie.
var ErrNoToken = errors.New("no session token")

// Gate rejection messages
const (
	MsgTokenNotFound = "Authentication required. Token not found."
	MsgTokenInvalid  = "Authentication failed. Invalid or expired token."
	MsgConfigMissing = "Server configuration error: JWT_SECRET missing."
	MsgForbidden     = "Access denied."
)

// Authorizer decides whether authenticated claims may perform the request.
// Returning an error rejects the request with 403. The gate runs it only
// after successful verification; a nil Authorizer admits every valid session.
type Authorizer func(r *http.Request, claims *Claims) error

// Gate intercepts requests and enforces the route table.
// It keeps no per-request state between calls; every request is verified anew.
type Gate struct {
	routes     *RouteTable
	codec      *TokenCodec
	cookies    *CookieManager
	authorizer Authorizer
	logger     *slog.Logger
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithRouteTable replaces DefaultRouteTable.
func WithRouteTable(t *RouteTable) GateOption {
	return func(g *Gate) {
		g.routes = t
	}
}

// WithAuthorizer installs a capability check run after verification.
func WithAuthorizer(a Authorizer) GateOption {
	return func(g *Gate) {
		g.authorizer = a
	}
}

// WithGateLogger sets the gate's logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a gate verifying tokens with codec and reading them via cookies.
func NewGate(codec *TokenCodec, cookies *CookieManager, opts ...GateOption) *Gate {
	g := &Gate{
		routes:  DefaultRouteTable(),
		codec:   codec,
		cookies: cookies,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "gate")
	return g
}

// Authenticate reads and verifies the session cookie on r.
// Errors are ErrNoToken, ErrExpired, ErrSignatureInvalid, or ErrConfigMissing.
func Authenticate(r *http.Request, codec *TokenCodec, cookies *CookieManager) (*Claims, error) {
	if codec == nil {
		return nil, ErrConfigMissing
	}
	token, ok := cookies.Read(r)
	if !ok {
		return nil, ErrNoToken
	}
	return codec.Verify(token)
}

// Middleware wraps next with the gate.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.classify(r) == Public {
			metrics.ObserveGate(metrics.DecisionPublic)
			next.ServeHTTP(w, r)
			return
		}

		claims, err := Authenticate(r, g.codec, g.cookies)
		switch {
		case err == nil:
		case errors.Is(err, ErrNoToken):
			metrics.ObserveGate(metrics.DecisionNoToken)
			g.logger.Debug("rejected request without token", "path", r.URL.Path)
			writeMessage(w, http.StatusUnauthorized, MsgTokenNotFound)
			return
		case errors.Is(err, ErrConfigMissing):
			metrics.ObserveGate(metrics.DecisionMisconfigured)
			g.logger.Error("protected route requested without a signing secret", "path", r.URL.Path)
			writeMessage(w, http.StatusInternalServerError, MsgConfigMissing)
			return
		default:
			reason, decision := "signature_invalid", metrics.DecisionInvalid
			if errors.Is(err, ErrExpired) {
				reason, decision = "expired", metrics.DecisionExpired
			}
			metrics.ObserveGate(decision)
			g.logger.Info("rejected session token", "path", r.URL.Path, "reason", reason, "error", err)
			g.cookies.Clear(w)
			writeMessage(w, http.StatusUnauthorized, MsgTokenInvalid)
			return
		}

		if g.authorizer != nil {
			if err := g.authorizer(r, claims); err != nil {
				metrics.ObserveGate(metrics.DecisionForbidden)
				g.logger.Warn("authorization denied", "path", r.URL.Path, "identity", claims.Identity, "role", claims.Role, "error", err)
				writeMessage(w, http.StatusForbidden, MsgForbidden)
				return
			}
		}

		metrics.ObserveGate(metrics.DecisionAllowed)
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// writeJSON writes v as a JSON response with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// classify checks the decoded and the escaped path. A request is protected if
// either form is, so percent-encoded segments cannot change its class.
func (g *Gate) classify(r *http.Request) RouteClass {
	if g.routes.Classify(r.URL.Path) == Protected {
		return Protected
	}
	if escaped := r.URL.EscapedPath(); escaped != r.URL.Path {
		return g.routes.Classify(escaped)
	}
	return Public
}
