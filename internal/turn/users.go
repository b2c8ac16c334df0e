// ABOUTME: Relay user management through the turnadmin binary
// ABOUTME: Lists, adds, and deletes long-term credential users in the configured realm

package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smherdgn/turn-management/internal/metrics"
)

// MinPasswordLength is the shortest relay user password accepted.
const MinPasswordLength = 6

// User management errors
var (
	ErrRealmMissing     = errors.New("server configuration error: REALM is not set")
	ErrUserExists       = errors.New("user already exists")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
)

// RelayUser is one long-term credential user known to the relay.
type RelayUser struct {
	Username string `json:"username"`
	Realm    string `json:"realm"`
}

// UserManager wraps turnadmin for a single realm.
type UserManager struct {
	runner Runner
	binary string
	realm  string
	logger *slog.Logger
}

// NewUserManager creates a manager invoking binary (usually "turnadmin").
func NewUserManager(runner Runner, binary, realm string, logger *slog.Logger) *UserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserManager{
		runner: runner,
		binary: binary,
		realm:  realm,
		logger: logger.With("component", "relay-users"),
	}
}

// Realm returns the realm users are managed in.
func (m *UserManager) Realm() string {
	return m.realm
}

// List returns every user reported by "turnadmin -L", one per non-empty line.
func (m *UserManager) List(ctx context.Context) (users []RelayUser, err error) {
	if m.realm == "" {
		return nil, ErrRealmMissing
	}
	defer observe("user_list", time.Now(), &err)

	res, err := m.runner.Run(ctx, m.binary, "-L")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users = []RelayUser{}
	for _, line := range strings.Split(res.Stdout, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		users = append(users, RelayUser{Username: name, Realm: m.realm})
	}
	return users, nil
}

// Add creates a user with "turnadmin -a -u U -p P -r REALM -k".
func (m *UserManager) Add(ctx context.Context, username, password string) (err error) {
	if m.realm == "" {
		return ErrRealmMissing
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	defer observe("user_add", time.Now(), &err)

	_, err = m.runner.Run(ctx, m.binary, "-a", "-u", username, "-p", password, "-r", m.realm, "-k")
	if err != nil {
		if strings.Contains(strings.ToLower(Stderr(err)), "already exists") {
			return ErrUserExists
		}
		return fmt.Errorf("adding user %q: %w", username, err)
	}

	m.logger.Info("relay user added", "username", username, "realm", m.realm)
	return nil
}

// Delete removes a user with "turnadmin -d -u U -r REALM".
func (m *UserManager) Delete(ctx context.Context, username string) (err error) {
	if m.realm == "" {
		return ErrRealmMissing
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}
	defer observe("user_delete", time.Now(), &err)

	_, err = m.runner.Run(ctx, m.binary, "-d", "-u", username, "-r", m.realm)
	if err != nil {
		stderr := strings.ToLower(Stderr(err))
		if strings.Contains(stderr, "not found") || strings.Contains(stderr, "does not exist") {
			return ErrUserNotFound
		}
		return fmt.Errorf("deleting user %q: %w", username, err)
	}

	m.logger.Info("relay user deleted", "username", username, "realm", m.realm)
	return nil
}

// ValidateUsername rejects names turnadmin would misread as flags or that
// contain whitespace or control characters.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidUsername)
	}
	if strings.HasPrefix(username, "-") {
		return fmt.Errorf("%w: must not start with '-'", ErrInvalidUsername)
	}
	for _, r := range username {
		if r <= ' ' || r == 0x7f {
			return fmt.Errorf("%w: must not contain whitespace or control characters", ErrInvalidUsername)
		}
	}
	return nil
}

// observe records an operation's outcome and duration.
func observe(operation string, start time.Time, err *error) {
	metrics.ObserveOperation(operation, *err, time.Since(start))
}
