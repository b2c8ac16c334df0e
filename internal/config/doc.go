// Package config handles configuration loading for turn-admin.
//
// # Overview
//
// Configuration is loaded once at process start from a YAML or TOML file,
// then passed by pointer into every component. Business logic never reads
// the environment directly.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from TURN_ADMIN_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/turn-admin/config.yaml
//  3. ~/.config/turn-admin/config.yaml
//
// When none exists, FromEnv builds a configuration from the environment alone.
//
// # Environment
//
// Values can reference environment variables with ${VAR_NAME}. After parsing,
// the following variables override the file:
//
//	JWT_SECRET         auth.jwt_secret
//	AUTH_COOKIE_NAME   auth.cookie_name
//	TURN_ADMIN_ENV     auth.production (when "production")
//	REALM              turn.realm
//	USER_DB_PATH       credentials.path
//	TURN_ADMIN_DB_PATH database.path
//
// # Example
//
//	server:
//	  http_addr: "0.0.0.0:3000"
//
//	auth:
//	  jwt_secret: "${JWT_SECRET}"
//	  cookie_name: "admin-auth-token"
//	  production: true
//	  password_mode: "bcrypt"        # plaintext, bcrypt
//	  login_attempts_per_minute: 10
//
//	credentials:
//	  backend: "file"                # file, sqlite
//	  path: "data/users.json"
//
//	database:
//	  path: "/var/lib/turn-admin/audit.db"
//
//	turn:
//	  realm: "turn.example.com"
//	  service_name: "coturn"
//	  controller: "service"          # service, systemctl
//	  command_timeout: "15s"
//
//	logging:
//	  level: "info"
//	  format: "text"
//	  file: "/var/log/turn-admin.log"
//
// # Validation
//
// A missing jwt_secret is a configuration error: the server refuses to start
// rather than serving protected routes without a signing key.
package config
