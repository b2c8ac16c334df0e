// ABOUTME: Tests for the relay install and version check
// ABOUTME: Covers version extraction and the PATH lookup fallback

package turn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallChecker_Version(t *testing.T) {
	runner := newFakeRunner()
	runner.on("turnserver -V", Result{Stderr: "0: : Coturn Version Coturn-4.6.2 'Gorst'\n0: : Max number of open files/sockets allowed for this process: 1024\n"}, nil)
	c := NewInstallChecker(runner, "turnserver")

	got := c.Check(context.Background())
	assert.True(t, got.Installed)
	assert.Equal(t, "Coturn-4.6.2", got.Version)
}

func TestInstallChecker_VersionWithCodename(t *testing.T) {
	runner := newFakeRunner()
	runner.on("turnserver -V", Result{Stdout: "Version 4.5.2'dan Eider'"}, nil)
	c := NewInstallChecker(runner, "turnserver")

	got := c.Check(context.Background())
	assert.Equal(t, "4.5.2'dan Eider'", got.Version)
}

func TestInstallChecker_NoVersionInOutput(t *testing.T) {
	runner := newFakeRunner()
	runner.on("turnserver -V", Result{Stdout: "coturn ready\nsecond line"}, nil)
	c := NewInstallChecker(runner, "turnserver")

	got := c.Check(context.Background())
	assert.Equal(t, InstallStatus{
		Installed: true,
		Version:   "Unknown (installed)",
		Details:   "Output: coturn ready",
	}, got)
}

func TestInstallChecker_FallbackFound(t *testing.T) {
	runner := newFakeRunner()
	runner.fail("turnserver -V", "", "unrecognized option")
	c := NewInstallChecker(runner, "turnserver")
	c.lookPath = func(string) (string, error) { return "/usr/bin/turnserver", nil }

	got := c.Check(context.Background())
	assert.True(t, got.Installed)
	assert.Equal(t, "Unknown (executable found, but -V failed)", got.Version)
	assert.NotEmpty(t, got.Details)
}

func TestInstallChecker_NotInstalled(t *testing.T) {
	runner := newFakeRunner()
	runner.on("turnserver -V", Result{ExitCode: -1}, errors.New("executable file not found"))
	c := NewInstallChecker(runner, "turnserver")
	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	got := c.Check(context.Background())
	assert.False(t, got.Installed)
	assert.Contains(t, got.Message, "coturn not found")
	assert.Contains(t, got.Details, "executable file not found")
}
