// Package turn wraps the coturn tooling the panel drives.
//
// Relay users are managed with turnadmin, the service with systemctl or the
// platform service manager, and the installation is probed with turnserver -V.
// Every external program goes through a Runner, so arguments reach the binary
// as argv and never pass through a shell.
package turn
