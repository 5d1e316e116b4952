package handlers

import (
	"context"

	"github.com/wolfman30/prescription-ai-portal/internal/compliance"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// Auditor records record access and auth outcomes. Satisfied by
// *compliance.AuditService.
type Auditor interface {
	LogRecordViewed(ctx context.Context, sessionID, patientID, resource, source string) error
	LogAuth(ctx context.Context, eventType compliance.AuditEventType, op, sessionID, patientID, email string) error
}

// auditTrail wraps an optional Auditor. Write failures are logged and never
// fail the request.
type auditTrail struct {
	auditor Auditor
	logger  *logging.Logger
}

func (a auditTrail) recordViewed(ctx context.Context, sessionID, patientID, resource, source string) {
	if a.auditor == nil {
		return
	}
	if err := a.auditor.LogRecordViewed(context.WithoutCancel(ctx), sessionID, patientID, resource, source); err != nil {
		a.logger.Error("audit write failed", "event", compliance.EventRecordViewed, "resource", resource, "session_id", sessionID, "error", err)
	}
}

func (a auditTrail) auth(ctx context.Context, eventType compliance.AuditEventType, op, sessionID, patientID, email string) {
	if a.auditor == nil {
		return
	}
	if err := a.auditor.LogAuth(context.WithoutCancel(ctx), eventType, op, sessionID, patientID, email); err != nil {
		a.logger.Error("audit write failed", "event", eventType, "op", op, "session_id", sessionID, "error", err)
	}
}
