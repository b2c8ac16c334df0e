// Package webadmin provides the turn-admin HTTP API and browser pages.
//
// # API
//
// Every /api route here is protected by the authentication gate, which runs
// in front of the mux:
//
//	GET    /api/users             list relay users in the configured realm
//	POST   /api/users             add a relay user {"username","password"}
//	DELETE /api/users/{username}  delete a relay user
//	GET    /api/status            {"success","output"} from the service manager
//	POST   /api/start|stop|restart
//	POST   /api/control           {"action":"start|stop|restart"}
//	GET    /api/logs?lines=N      tail of the relay log (default 100, max 1000)
//	GET    /api/coturn-check      installation and version probe
//	GET    /api/audit?limit=N     recent administrative actions
//
// Every response is JSON; failures carry a "message" and, where an external
// command failed, its "error" and "stderr".
//
// # Pages
//
// The login, users, status, and setup pages are HTML shells rendered from
// embedded templates. Their script checks /api/me and sends signed-out
// visitors to /login. The setup guide is markdown rendered with goldmark.
//
// # Audit
//
// Relay user changes and service actions are appended to the audit log with
// the acting administrator's identity. A failed audit write is logged and
// never changes the response.
package webadmin
