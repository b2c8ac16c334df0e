// ABOUTME: Composition root that builds every turn-admin component from config
// ABOUTME: Owns the HTTP server, its TCP or tailnet listener, and shutdown

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/smherdgn/turn-management/internal/auth"
	"github.com/smherdgn/turn-management/internal/config"
	"github.com/smherdgn/turn-management/internal/credentials"
	"github.com/smherdgn/turn-management/internal/metrics"
	"github.com/smherdgn/turn-management/internal/store"
	"github.com/smherdgn/turn-management/internal/turn"
	"github.com/smherdgn/turn-management/internal/webadmin"
)

// Server runs the turn-admin panel.
type Server struct {
	config      *config.Config
	httpServer  *http.Server
	handler     http.Handler
	tsnetServer *tsnet.Server
	stores      []*store.SQLiteStore
	registry    *prometheus.Registry
	logger      *slog.Logger
}

// Option customizes component construction. Production code uses none.
type Option func(*options)

type options struct {
	clock      func() time.Time
	runner     turn.Runner
	controller turn.Controller
}

// WithClock sets the clock used to issue and verify session tokens.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithRunner replaces the command runner used for turnadmin and systemctl.
func WithRunner(r turn.Runner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithController replaces the relay service controller.
func WithController(c turn.Controller) Option {
	return func(o *options) {
		o.controller = c
	}
}

// New builds a Server. A missing JWT secret is fatal: the panel never serves
// protected routes without a signing key.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		config: cfg,
		logger: logger.With("component", "server"),
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), auth.WithClock(o.clock))
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}
	cookies := auth.NewCookieManager(cfg.Auth.CookieName, cfg.Auth.Production)
	if !cfg.Auth.Production {
		s.logger.Warn("session cookie is not marked Secure; set auth.production for HTTPS deployments")
	}

	verifier, err := credentials.NewVerifier(cfg.Auth.PasswordMode)
	if err != nil {
		return nil, fmt.Errorf("creating credential verifier: %w", err)
	}
	if verifier.Name() == config.PasswordModePlaintext {
		s.logger.Warn("administrator passwords are compared as plaintext; use auth.password_mode bcrypt in production")
	}

	auditStore, err := s.openAuditStore()
	if err != nil {
		return nil, err
	}
	creds, err := s.openCredentialStore(auditStore)
	if err != nil {
		s.closeStores()
		return nil, err
	}

	// Interface values stay nil unless a store exists.
	var sessionAudit auth.AuditRecorder
	var adminAudit webadmin.AuditLog
	if auditStore != nil {
		sessionAudit = auditStore
		adminAudit = auditStore
	}

	runner := o.runner
	if runner == nil {
		runner = turn.NewExecRunner(cfg.Turn.CommandTimeout, logger)
	}
	controller := o.controller
	if controller == nil {
		controller = newController(cfg.Turn, runner, logger)
	}
	if cfg.Turn.Realm == "" {
		s.logger.Warn("turn.realm is not set; relay user operations will fail")
	}

	admin, err := webadmin.New(webadmin.Deps{
		Users:      turn.NewUserManager(runner, cfg.Turn.AdminBinary, cfg.Turn.Realm, logger),
		Controller: controller,
		Logs:       turn.NewLogReader(cfg.Turn.LogFile),
		Installer:  turn.NewInstallChecker(runner, cfg.Turn.ServerBinary),
		Audit:      adminAudit,
		Logger:     logger,
	})
	if err != nil {
		s.closeStores()
		return nil, fmt.Errorf("creating admin handlers: %w", err)
	}

	sessions := auth.NewSessionHandler(auth.SessionConfig{
		Codec:       codec,
		Cookies:     cookies,
		Credentials: creds,
		Verifier:    verifier,
		Limiter:     auth.NewLoginLimiter(cfg.Auth.LoginAttemptsPerMinute, cfg.Auth.LoginBurst),
		Audit:       sessionAudit,
		Logger:      logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	if cfg.Metrics.Enabled {
		s.registry = metrics.NewRegistry()
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler(s.registry))
	}
	sessions.RegisterRoutes(mux)
	admin.RegisterRoutes(mux)

	gate := auth.NewGate(codec, cookies, auth.WithGateLogger(logger))
	s.handler = logRequests(gate.Middleware(mux), logger)
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server configured",
		"credentials", cfg.Credentials.Backend,
		"password_mode", verifier.Name(),
		"controller", cfg.Turn.Controller,
		"service", controller.ServiceName(),
		"audit", auditStore != nil,
		"metrics", cfg.Metrics.Enabled,
	)
	return s, nil
}

// openAuditStore opens the audit database, or returns nil when none is configured.
func (s *Server) openAuditStore() (*store.SQLiteStore, error) {
	path := s.config.Database.Path
	if path == "" {
		s.logger.Info("database.path not set, audit log disabled")
		return nil, nil
	}
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("initializing audit store: %w", err)
	}
	s.stores = append(s.stores, st)
	return st, nil
}

// openCredentialStore returns the configured administrator credential backend.
// The sqlite backend shares the audit database unless credentials.path names another file.
func (s *Server) openCredentialStore(auditStore *store.SQLiteStore) (credentials.Store, error) {
	cfg := s.config.Credentials
	if cfg.Backend == config.CredentialsBackendFile {
		return credentials.NewFileStore(cfg.Path), nil
	}

	if auditStore != nil && (cfg.Path == "" || cfg.Path == s.config.Database.Path) {
		return auditStore, nil
	}
	st, err := store.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing credential store: %w", err)
	}
	s.stores = append(s.stores, st)
	return st, nil
}

func newController(cfg config.TurnConfig, runner turn.Runner, logger *slog.Logger) turn.Controller {
	if cfg.Controller == config.ControllerSystemctl {
		return turn.NewSystemctlController(runner, cfg.ServiceName, cfg.UseSudo, logger)
	}
	return turn.NewServiceController(cfg.ServiceName, logger)
}

// Handler returns the full handler chain: request logging, the gate, then the mux.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is canceled or the server fails, then shuts down.
// Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.listen(ctx)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	// The run context is already canceled, so shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := s.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.listenTailscale(ctx)
	}

	s.logger.Info("starting turn-admin", "http_addr", s.config.Server.HTTPAddr)
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "turn-admin", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// listenTailscale joins the tailnet and listens on :80, or :443 with tailnet certs.
func (s *Server) listenTailscale(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	if !tsCfg.HTTPS {
		ln, err := s.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}

	s.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := s.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := s.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

func (s *Server) closeStores() []error {
	var errs []error
	for _, st := range s.stores {
		errs = appendCloseError(errs, "store close", st.Close())
	}
	s.stores = nil
	return errs
}

// Shutdown stops the HTTP server and releases the tailnet node and stores.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down turn-admin")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))
	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	errs = append(errs, s.closeStores()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once every configured database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	for _, st := range s.stores {
		if err := st.Ping(); err != nil {
			s.logger.Warn("readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
