// ABOUTME: Commands that manage administrator credentials and bootstrap a config
// ABOUTME: Covers init, admin add/list, and hash-password

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/smherdgn/turn-management/internal/config"
	"github.com/smherdgn/turn-management/internal/credentials"
	"github.com/smherdgn/turn-management/internal/store"
)

// credentialBackend is the write side of an administrator credential store.
type credentialBackend interface {
	Put(ctx context.Context, cred credentials.Credential) error
	List(ctx context.Context) ([]credentials.Credential, error)
	Close() error
}

type fileBackend struct {
	*credentials.FileStore
}

func (fileBackend) Close() error { return nil }

type sqliteBackend struct {
	st *store.SQLiteStore
}

func (b sqliteBackend) Put(ctx context.Context, cred credentials.Credential) error {
	return b.st.PutCredential(ctx, cred)
}

func (b sqliteBackend) List(ctx context.Context) ([]credentials.Credential, error) {
	return b.st.ListCredentials(ctx)
}

func (b sqliteBackend) Close() error {
	return b.st.Close()
}

func openCredentialBackend(cfg *config.Config) (credentialBackend, error) {
	if cfg.Credentials.Backend == config.CredentialsBackendFile {
		return fileBackend{credentials.NewFileStore(cfg.Credentials.Path)}, nil
	}

	path := cfg.Credentials.Path
	if path == "" {
		path = cfg.Database.Path
	}
	st, err := store.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening credential database: %w", err)
	}
	return sqliteBackend{st: st}, nil
}

// prepareSecret hashes the password when the config compares bcrypt hashes.
func prepareSecret(mode, password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	if mode != config.PasswordModeBcrypt {
		return password, nil
	}
	return credentials.HashSecret(password)
}

func runAdmin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: turn-admin admin add EMAIL [ROLE] | turn-admin admin list")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	backend, err := openCredentialBackend(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return errors.New("usage: turn-admin admin add EMAIL [ROLE]")
		}
		role := "admin"
		if len(args) > 2 {
			role = args[2]
		}
		password, err := readPassword(bufio.NewReader(os.Stdin), "Password")
		if err != nil {
			return err
		}
		return addAdmin(ctx, backend, cfg.Auth.PasswordMode, args[1], password, role)
	case "list":
		creds, err := backend.List(ctx)
		if err != nil {
			return fmt.Errorf("listing administrators: %w", err)
		}
		for _, c := range creds {
			fmt.Printf("%s\t%s\n", c.Identity, c.Role)
		}
		return nil
	default:
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func addAdmin(ctx context.Context, backend credentialBackend, mode, email, password, role string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}
	secret, err := prepareSecret(mode, password)
	if err != nil {
		return err
	}
	if err := backend.Put(ctx, credentials.Credential{Identity: email, Secret: secret, Role: role}); err != nil {
		return fmt.Errorf("saving administrator: %w", err)
	}
	color.New(color.FgGreen).Printf("  ✓ Saved administrator %s (%s)\n", email, role)
	return nil
}

func runHashPassword() error {
	password, err := readPassword(bufio.NewReader(os.Stdin), "Password")
	if err != nil {
		return err
	}
	hash, err := prepareSecret(config.PasswordModeBcrypt, password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// readPassword reads one line. Input is not hidden, so prefer piping it in.
func readPassword(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runInit(ctx context.Context) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("turn-admin configuration setup")
	fmt.Println("==============================")
	fmt.Println()

	defaultDataPath := getDataPath()

	outputFile := prompt(reader, "Config file path", getConfigPath())
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)
	production := isYes(prompt(reader, "Served over HTTPS (secure cookies)?", "yes"))

	fmt.Println("\n--- Relay Configuration ---")
	realm := prompt(reader, "TURN realm", "")
	serviceName := prompt(reader, "Service name", config.DefaultServiceName)
	controller := prompt(reader, "Service controller (service/systemctl)", config.ControllerService)
	useSudo := false
	if controller == config.ControllerSystemctl {
		useSudo = isYes(prompt(reader, "Run systemctl through sudo?", "yes"))
	}

	fmt.Println("\n--- Storage ---")
	dbPath := prompt(reader, "Audit database path", filepath.Join(defaultDataPath, "audit.db"))
	usersPath := prompt(reader, "Administrator credential file", filepath.Join(defaultDataPath, "users.json"))

	fmt.Println("\n--- First Administrator ---")
	email := prompt(reader, "Email", "admin@localhost")
	password, err := readPassword(reader, "Password (min 8 characters)")
	if err != nil {
		return err
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating JWT secret: %w", err)
	}
	jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

	var cfg strings.Builder
	cfg.WriteString("# turn-admin configuration\n")
	cfg.WriteString("# Generated by turn-admin init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n\n", httpAddr))

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n\n", dbPath))

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", jwtSecret))
	cfg.WriteString(fmt.Sprintf("  production: %t\n", production))
	cfg.WriteString(fmt.Sprintf("  password_mode: %q\n", config.PasswordModeBcrypt))
	cfg.WriteString("  login_attempts_per_minute: 10\n\n")

	cfg.WriteString("credentials:\n")
	cfg.WriteString(fmt.Sprintf("  backend: %q\n", config.CredentialsBackendFile))
	cfg.WriteString(fmt.Sprintf("  path: %q\n\n", usersPath))

	cfg.WriteString("turn:\n")
	cfg.WriteString(fmt.Sprintf("  realm: %q\n", realm))
	cfg.WriteString(fmt.Sprintf("  service_name: %q\n", serviceName))
	cfg.WriteString(fmt.Sprintf("  controller: %q\n", controller))
	cfg.WriteString(fmt.Sprintf("  use_sudo: %t\n\n", useSudo))

	cfg.WriteString("logging:\n")
	cfg.WriteString("  level: \"info\"\n")
	cfg.WriteString("  format: \"text\"\n\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	// The file holds the signing key.
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("\n  ✓ Config written to %s\n", outputFile)

	backend := fileBackend{credentials.NewFileStore(usersPath)}
	if err := addAdmin(ctx, backend, config.PasswordModeBcrypt, email, password, "admin"); err != nil {
		return err
	}

	fmt.Println("\nTo start the panel:")
	fmt.Printf("  TURN_ADMIN_CONFIG=%s turn-admin serve\n", outputFile)
	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
