// ABOUTME: Detects whether the relay server binary is installed and which version
// ABOUTME: Asks the binary for its version, falling back to a PATH lookup

package turn

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var versionPattern = regexp.MustCompile(`(?i)version\s*([\d\w.-]+(?:'[^']+')?)`)

// InstallStatus reports what the install check found.
type InstallStatus struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version,omitempty"`
	Message   string `json:"message,omitempty"`
	Details   string `json:"details,omitempty"`
}

// InstallChecker runs the server binary with -V.
type InstallChecker struct {
	runner   Runner
	binary   string
	lookPath func(file string) (string, error)
}

// NewInstallChecker creates a checker for binary (usually "turnserver").
func NewInstallChecker(runner Runner, binary string) *InstallChecker {
	return &InstallChecker{
		runner:   runner,
		binary:   binary,
		lookPath: exec.LookPath,
	}
}

// Check never fails; problems are reported in the returned status.
func (c *InstallChecker) Check(ctx context.Context) InstallStatus {
	var err error
	defer observe("install_check", time.Now(), &err)

	var res Result
	res, err = c.runner.Run(ctx, c.binary, "-V")
	if err == nil {
		out := strings.TrimSpace(res.Stderr)
		if out == "" {
			out = strings.TrimSpace(res.Stdout)
		}
		if m := versionPattern.FindStringSubmatch(out); m != nil {
			return InstallStatus{Installed: true, Version: m[1]}
		}
		return InstallStatus{
			Installed: true,
			Version:   "Unknown (installed)",
			Details:   "Output: " + firstLine(out),
		}
	}

	path, lookErr := c.lookPath(c.binary)
	if lookErr == nil && path != "" {
		return InstallStatus{
			Installed: true,
			Version:   "Unknown (executable found, but -V failed)",
			Details:   err.Error(),
		}
	}

	return InstallStatus{
		Installed: false,
		Message:   "coturn not found or " + c.binary + " command failed.",
		Details:   err.Error(),
	}
}
