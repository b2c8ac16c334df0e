// ABOUTME: Relay service control through systemctl or the platform service manager
// ABOUTME: Both controllers expose start, stop, restart, and a systemd-style status word

package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kardianos/service"
)

// Action is a service lifecycle verb.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// ErrInvalidAction is returned by ParseAction for anything but start, stop, or restart.
var ErrInvalidAction = errors.New("invalid service action")

// Status words reported by Controller.Status.
const (
	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusNotInstalled = "not-installed"
	StatusUnknown      = "unknown"
)

// ParseAction validates a lifecycle verb.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStart, ActionStop, ActionRestart:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// PastTense returns "started", "stopped", or "restarted".
func (a Action) PastTense() string {
	if a == ActionStop {
		return "stopped"
	}
	return string(a) + "ed"
}

// Controller drives the relay's system service.
type Controller interface {
	// Do runs a lifecycle action and returns whatever the service manager printed.
	Do(ctx context.Context, action Action) (string, error)
	// Status returns a status word such as "active" or "inactive".
	Status(ctx context.Context) (string, error)
	// ServiceName returns the managed unit name.
	ServiceName() string
}

// SystemctlController runs "[sudo] systemctl <action> <name>".
type SystemctlController struct {
	runner  Runner
	name    string
	useSudo bool
	logger  *slog.Logger
}

// NewSystemctlController creates a controller for the named unit.
func NewSystemctlController(runner Runner, name string, useSudo bool, logger *slog.Logger) *SystemctlController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SystemctlController{
		runner:  runner,
		name:    name,
		useSudo: useSudo,
		logger:  logger.With("component", "systemctl", "unit", name),
	}
}

// ServiceName returns the unit name.
func (c *SystemctlController) ServiceName() string {
	return c.name
}

// Do runs the action. Output is stdout, or stderr when stdout is empty.
func (c *SystemctlController) Do(ctx context.Context, action Action) (out string, err error) {
	if _, err := ParseAction(string(action)); err != nil {
		return "", err
	}
	defer observe("service_"+string(action), time.Now(), &err)

	name, args := "systemctl", []string{string(action), c.name}
	if c.useSudo {
		name, args = "sudo", append([]string{"systemctl"}, args...)
	}

	res, err := c.runner.Run(ctx, name, args...)
	out = strings.TrimSpace(res.Stdout)
	if out == "" {
		out = strings.TrimSpace(res.Stderr)
	}
	if err != nil {
		c.logger.Warn("service action failed", "action", action, "error", err)
		return out, fmt.Errorf("%s %s: %w", action, c.name, err)
	}
	c.logger.Info("service action completed", "action", action)
	return out, nil
}

// Status runs "systemctl is-active <name>". is-active exits non-zero for any
// state but active, so stdout is trusted whenever it is present.
func (c *SystemctlController) Status(ctx context.Context) (status string, err error) {
	defer observe("service_status", time.Now(), &err)

	res, err := c.runner.Run(ctx, "systemctl", "is-active", c.name)
	if out := strings.TrimSpace(res.Stdout); out != "" {
		return out, nil
	}
	if err != nil {
		return StatusUnknown, fmt.Errorf("querying %s status: %w", c.name, err)
	}
	return StatusUnknown, fmt.Errorf("querying %s status: empty output", c.name)
}

// serviceHandle is the subset of service.Service the controller drives.
type serviceHandle interface {
	Start() error
	Stop() error
	Restart() error
	Status() (service.Status, error)
}

// ServiceController drives the unit through github.com/kardianos/service,
// which picks systemd, SysV, upstart, launchd, or the Windows SCM.
type ServiceController struct {
	name   string
	open   func(name string) (serviceHandle, error)
	logger *slog.Logger
}

// NewServiceController creates a controller for an existing service by name.
func NewServiceController(name string, logger *slog.Logger) *ServiceController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceController{
		name:   name,
		open:   openService,
		logger: logger.With("component", "service", "unit", name),
	}
}

func openService(name string) (serviceHandle, error) {
	return service.New(nil, &service.Config{Name: name})
}

// ServiceName returns the unit name.
func (c *ServiceController) ServiceName() string {
	return c.name
}

// Do runs the action. The service manager prints nothing on success.
func (c *ServiceController) Do(ctx context.Context, action Action) (out string, err error) {
	if _, err := ParseAction(string(action)); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	defer observe("service_"+string(action), time.Now(), &err)

	s, err := c.open(c.name)
	if err != nil {
		return "", fmt.Errorf("opening service %s: %w", c.name, err)
	}

	switch action {
	case ActionStart:
		err = s.Start()
	case ActionStop:
		err = s.Stop()
	case ActionRestart:
		err = s.Restart()
	}
	if err != nil {
		c.logger.Warn("service action failed", "action", action, "error", err)
		return err.Error(), fmt.Errorf("%s %s: %w", action, c.name, err)
	}

	c.logger.Info("service action completed", "action", action)
	return "", nil
}

// Status maps the service manager state onto systemd's is-active words.
func (c *ServiceController) Status(ctx context.Context) (status string, err error) {
	if err := ctx.Err(); err != nil {
		return StatusUnknown, err
	}
	defer observe("service_status", time.Now(), &err)

	s, err := c.open(c.name)
	if err != nil {
		return StatusUnknown, fmt.Errorf("opening service %s: %w", c.name, err)
	}

	st, err := s.Status()
	if err != nil {
		if errors.Is(err, service.ErrNotInstalled) {
			return StatusNotInstalled, nil
		}
		return StatusUnknown, fmt.Errorf("querying %s status: %w", c.name, err)
	}

	switch st {
	case service.StatusRunning:
		return StatusActive, nil
	case service.StatusStopped:
		return StatusInactive, nil
	default:
		return StatusUnknown, nil
	}
}
