// Package server assembles turn-admin from its configuration.
//
// New builds the session token codec, cookie manager, credential store and
// verifier, login limiter, audit store, relay tooling, and metrics registry,
// then mounts the session and admin handlers on one mux behind the
// authentication gate. Run serves on a TCP address or, when tailscale is
// enabled, on a tsnet node reachable only from the tailnet.
//
// Routes outside the admin API:
//
//	GET /health        liveness
//	GET /health/ready  every configured database answers
//	GET /metrics       Prometheus exposition, when metrics are enabled
package server
