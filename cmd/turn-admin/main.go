// ABOUTME: Entry point for the turn-admin web panel
// ABOUTME: Dispatches serve, init, admin, hash-password, health, and version commands

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/smherdgn/turn-management/internal/config"
	"github.com/smherdgn/turn-management/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _                                _           _
| |_ _   _ _ __ _ __         __ _| |_ __ ___ (_)_ __
| __| | | | '__| '_ \ _____ / _' | '_ ' _ \| | '_ \
| |_| |_| | |  | | | |_____| (_| | | | | | | | | | |
 \__|\__,_|_|  |_| |_|      \__,_|_| |_| |_|_|_| |_|
`

// getConfigPath returns the path to the config file.
// Priority: TURN_ADMIN_CONFIG env var > XDG_CONFIG_HOME/turn-admin/config.yaml > ~/.config/turn-admin/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("TURN_ADMIN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "turn-admin.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "turn-admin", "config.yaml")
}

// getDataPath returns the path to the turn-admin data directory.
// Priority: XDG_DATA_HOME/turn-admin > ~/.local/share/turn-admin
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "turn-admin")
}

// loadConfig reads the config file, or builds one from the environment when
// no file exists at the default location.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) && os.Getenv("TURN_ADMIN_CONFIG") == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, "", fmt.Errorf("no config file at %s and environment is incomplete: %w", configPath, err)
		}
		return cfg, "(environment)", nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

func usage() {
	fmt.Println("Usage: turn-admin <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                    Start the admin panel")
	fmt.Println("  init                     Create a config file and first administrator interactively")
	fmt.Println("  admin add EMAIL [ROLE]   Add or update an administrator (password read from stdin)")
	fmt.Println("  admin list               List administrators")
	fmt.Println("  hash-password            Print a bcrypt hash of a password read from stdin")
	fmt.Println("  health                   Check panel health")
	fmt.Println("  version                  Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(ctx)
	case "admin":
		err = runAdmin(ctx, os.Args[2:])
	case "hash-password":
		err = runHashPassword()
	case "health":
		err = runHealth(ctx)
	case "version", "--version", "-v":
		fmt.Println(version)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog := setupLogger(cfg.Logging)
	defer closeLog()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Realm:     %s\n", valueOr(cfg.Turn.Realm, "(not set)"))
	green.Print("    ▶ ")
	fmt.Printf("Service:   %s via %s\n", cfg.Turn.ServiceName, cfg.Turn.Controller)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.HTTPS {
			yellow.Print(" [https]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Auth.PasswordMode == config.PasswordModePlaintext {
		yellow.Println("    ! administrator passwords are stored in plaintext")
	}

	fmt.Println()

	logger.Info("starting turn-admin",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"version", version,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
