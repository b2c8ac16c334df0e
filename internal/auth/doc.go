// Package auth provides session authentication for the turn-admin panel.
//
// # Components
//
//   - TokenCodec: issues and verifies HS256 session tokens carrying the
//     administrator's identity and role. Tokens expire TokenLifetime (24h)
//     after issue; there is no refresh.
//   - CookieManager: writes the token into an HttpOnly, SameSite=Strict cookie
//     scoped to "/", clears it with an epoch expiry, and reads it back without
//     validation.
//   - RouteTable: ordered exact/prefix rules classifying paths as public or
//     protected. First match wins; unmatched paths are public.
//   - Gate: middleware that verifies the cookie on protected paths and puts the
//     Claims into the request context (ClaimsFromContext).
//   - SessionHandler: POST /api/login, GET|POST /api/logout, GET /api/me.
//
// # Failure Handling
//
// A missing cookie on a protected path yields 401 without touching cookies. A
// present but expired or tampered token yields the same 401 body for both
// cases and clears the cookie; the log records reason=expired or
// reason=signature_invalid.
//
// Login answers unknown identities and wrong secrets with byte-identical 401
// responses. Secret comparison is delegated to a credentials.Verifier; the
// plaintext verifier exists for legacy users.json files and should be replaced
// by bcrypt in production.
//
// # Authorization
//
// Every verified session has equal access. WithAuthorizer installs a hook that
// runs after verification and can reject with 403 based on Claims.Role.
//
// # Configuration
//
// NewTokenCodec refuses an empty secret with ErrConfigMissing, so the server
// fails at startup instead of serving protected routes without a key.
package auth
