// Package compliance keeps an append-only audit trail of patient record access.
package compliance

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// EventRecordViewed is logged when a patient's records are served.
	EventRecordViewed AuditEventType = "audit.record_viewed"
	// EventSignedIn is logged after a successful signup or login.
	EventSignedIn AuditEventType = "audit.signed_in"
	// EventSignedOut is logged after logout.
	EventSignedOut AuditEventType = "audit.signed_out"
	// EventLoginFailed is logged when credentials are rejected.
	EventLoginFailed AuditEventType = "audit.login_failed"
)

// AuditEvent represents an immutable audit record.
type AuditEvent struct {
	ID        string          `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	SessionID string          `json:"session_id"`
	PatientID string          `json:"patient_id,omitempty"`
	Resource  string          `json:"resource,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditDetails contains event-specific details.
type AuditDetails struct {
	// For record views
	Source string `json:"source,omitempty"`

	// For auth events
	Operation   string `json:"operation,omitempty"`
	EmailDomain string `json:"email_domain,omitempty"`
}

// AuditService writes and queries the audit_events table.
type AuditService struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		panic("compliance: db cannot be nil")
	}
	return &AuditService{db: db, now: time.Now}
}

// LogEvent records an audit event.
func (s *AuditService) LogEvent(ctx context.Context, event AuditEvent) error {
	if event.EventType == "" {
		return fmt.Errorf("compliance: event type required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if len(event.Details) == 0 {
		event.Details = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, session_id, patient_id, resource, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.SessionID,
		nullString(event.PatientID),
		nullString(event.Resource),
		[]byte(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// LogRecordViewed records that resource was served to the patient, and
// whether it came from the store or the sample set.
func (s *AuditService) LogRecordViewed(ctx context.Context, sessionID, patientID, resource, source string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Source: source})
	return s.LogEvent(ctx, AuditEvent{
		EventType: EventRecordViewed,
		SessionID: sessionID,
		PatientID: patientID,
		Resource:  resource,
		Details:   detailsJSON,
	})
}

// LogAuth records an auth outcome. Only the email domain is kept.
func (s *AuditService) LogAuth(ctx context.Context, eventType AuditEventType, op, sessionID, patientID, email string) error {
	detailsJSON, _ := json.Marshal(AuditDetails{Operation: op, EmailDomain: emailDomain(email)})
	return s.LogEvent(ctx, AuditEvent{
		EventType: eventType,
		SessionID: sessionID,
		PatientID: patientID,
		Details:   detailsJSON,
	})
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	PatientID string
	SessionID string
	EventType AuditEventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// QueryEvents retrieves audit events matching the filter, newest first.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, session_id, patient_id, resource, details, created_at
		FROM audit_events
		WHERE 1=1
	`
	args := []any{}
	argNum := 1

	add := func(clause string, v any) {
		query += fmt.Sprintf(" AND %s $%d", clause, argNum)
		args = append(args, v)
		argNum++
	}
	if filter.PatientID != "" {
		add("patient_id =", filter.PatientID)
	}
	if filter.SessionID != "" {
		add("session_id =", filter.SessionID)
	}
	if filter.EventType != "" {
		add("event_type =", filter.EventType)
	}
	if !filter.StartTime.IsZero() {
		add("created_at >=", filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		add("created_at <=", filter.EndTime)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT $%d", argNum)
	args = append(args, limit)
	argNum++
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var patientID, resource sql.NullString
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.SessionID, &patientID, &resource, &details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.PatientID = patientID.String
		e.Resource = resource.String
		e.Details = details
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: audit rows: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}
