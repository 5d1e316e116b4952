package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/prescription-ai-portal/internal/compliance"
	"github.com/wolfman30/prescription-ai-portal/internal/portal"
)

type auditEntry struct {
	eventType compliance.AuditEventType
	sessionID string
	patientID string
	resource  string
	source    string
	email     string
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

func (a *recordingAuditor) LogRecordViewed(_ context.Context, sessionID, patientID, resource, source string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{eventType: compliance.EventRecordViewed, sessionID: sessionID, patientID: patientID, resource: resource, source: source})
	return a.err
}

func (a *recordingAuditor) LogAuth(_ context.Context, eventType compliance.AuditEventType, _, sessionID, patientID, email string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{eventType: eventType, sessionID: sessionID, patientID: patientID, email: email})
	return a.err
}

func TestPortalHandlerAuditsRecordViews(t *testing.T) {
	env := newTestEnv(t)
	auditor := &recordingAuditor{}
	h := NewPortalHandler(portal.NewService(env.store, nil, env.logger), 0, env.logger).WithAuditor(auditor)
	m := signedIn(t, env)
	require.NoError(t, m.Settled(context.Background()))
	patient := m.Snapshot().Identity.ID

	rec := httptest.NewRecorder()
	h.GetMedications(rec, request(m, http.MethodGet, "/api/medications", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.GetDoctors(rec, request(m, http.MethodGet, "/api/doctors", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, auditor.entries, 1)
	got := auditor.entries[0]
	assert.Equal(t, "medications", got.resource)
	assert.Equal(t, "sample", got.source)
	assert.Equal(t, patient, got.patientID)
	assert.Equal(t, m.ID(), got.sessionID)
}

func TestPortalHandlerAuditFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	auditor := &recordingAuditor{err: errors.New("db down")}
	h := NewPortalHandler(portal.NewService(env.store, nil, env.logger), 0, env.logger).WithAuditor(auditor)
	m := signedIn(t, env)

	rec := httptest.NewRecorder()
	h.GetDashboard(rec, request(m, http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, auditor.entries, 2)
}

func TestAuthHandlerAuditsLoginOutcomes(t *testing.T) {
	env := newTestEnv(t)
	auditor := &recordingAuditor{}
	h := NewAuthHandler(0, env.logger).WithAuditor(auditor)

	m := env.session(t)
	rec := httptest.NewRecorder()
	h.Signup(rec, request(m, http.MethodPost, "/api/auth/signup", SignupRequest{Email: "audit@x.com", Password: "secret-pw", Name: "Audit"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.Logout(rec, request(m, http.MethodPost, "/api/auth/logout", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, request(m, http.MethodPost, "/api/auth/login", LoginRequest{Email: "audit@x.com", Password: "wrong-pw"}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Len(t, auditor.entries, 3)
	assert.Equal(t, compliance.EventSignedIn, auditor.entries[0].eventType)
	assert.NotEmpty(t, auditor.entries[0].patientID)
	assert.Equal(t, compliance.EventSignedOut, auditor.entries[1].eventType)
	assert.Equal(t, auditor.entries[0].patientID, auditor.entries[1].patientID)
	assert.Equal(t, compliance.EventLoginFailed, auditor.entries[2].eventType)
	assert.Empty(t, auditor.entries[2].patientID)
}
