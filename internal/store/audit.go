// ABOUTME: Audit log entity and store methods for tracking administrative actions
// ABOUTME: Records who logged in and which relay users and service actions they touched

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateAuditEntry is returned when an entry ID is reused
var ErrDuplicateAuditEntry = errors.New("audit entry already exists")

// tsLayout is fixed width so lexical order in SQLite matches time order.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditLogin           AuditAction = "login"
	AuditLogout          AuditAction = "logout"
	AuditAddRelayUser    AuditAction = "add_relay_user"
	AuditDeleteRelayUser AuditAction = "delete_relay_user"
	AuditServiceStart    AuditAction = "service_start"
	AuditServiceStop     AuditAction = "service_stop"
	AuditServiceRestart  AuditAction = "service_restart"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditLogin,
	AuditLogout,
	AuditAddRelayUser,
	AuditDeleteRelayUser,
	AuditServiceStart,
	AuditServiceStop,
	AuditServiceRestart,
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID         string         `json:"id"`          // UUID v4
	Actor      string         `json:"actor"`       // administrator identity, or the attempted one for failed logins
	Action     AuditAction    `json:"action"`      // what action was performed
	TargetType string         `json:"target_type"` // "session", "relay_user", "service"
	TargetID   string         `json:"target_id"`   // affected resource
	Success    bool           `json:"success"`
	RemoteAddr string         `json:"remote_addr,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since  *time.Time   // entries after this time
	Actor  *string      // filter by actor
	Action *AuditAction // filter by action type
	Limit  int          // max results (default 100, max 1000)
}

// AppendAuditLog appends a new entry to the audit log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	var remoteAddr *string
	if e.RemoteAddr != "" {
		remoteAddr = &e.RemoteAddr
	}

	query := `
		INSERT INTO audit_log (audit_id, actor, action, target_type, target_id, success, ts, detail_json, remote_addr)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Actor,
		e.Action,
		e.TargetType,
		e.TargetID,
		e.Success,
		e.Timestamp.UTC().Format(tsLayout),
		detailJSON,
		remoteAddr,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateAuditEntry
		}
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log",
		"id", e.ID,
		"actor", e.Actor,
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// scanAuditEntry scans a row into an AuditEntry.
func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (AuditEntry, error) {
	var e AuditEntry
	var actionStr, tsStr string
	var detailJSON, remoteAddr *string

	if err := scanner.Scan(
		&e.ID,
		&e.Actor,
		&actionStr,
		&e.TargetType,
		&e.TargetID,
		&e.Success,
		&tsStr,
		&detailJSON,
		&remoteAddr,
	); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Action = AuditAction(actionStr)
	var err error
	e.Timestamp, err = time.Parse(tsLayout, tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if remoteAddr != nil {
		e.RemoteAddr = *remoteAddr
	}
	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

const auditLogQuery = `
	SELECT audit_id, actor, action, target_type, target_id, success, ts, detail_json, remote_addr
	FROM audit_log
	WHERE (? IS NULL OR ts >= ?)
	  AND (? IS NULL OR actor = ?)
	  AND (? IS NULL OR action = ?)
	ORDER BY ts DESC
	LIMIT ?
`

// ListAuditLog returns audit entries matching the filter criteria.
// Results are returned newest first (DESC by timestamp).
func (s *SQLiteStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	limit := normalizeAuditLimit(f.Limit)

	var sinceStr, actionStr *string
	if f.Since != nil {
		v := f.Since.UTC().Format(tsLayout)
		sinceStr = &v
	}
	if f.Action != nil {
		v := string(*f.Action)
		actionStr = &v
	}

	rows, err := s.db.QueryContext(ctx, auditLogQuery,
		sinceStr, sinceStr,
		f.Actor, f.Actor,
		actionStr, actionStr,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}
