package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/prescription-ai-portal/internal/events"
)

type recordingPublisher struct {
	types []string
	err   error
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	p.types = append(p.types, eventType)
	return p.err
}

type failingSender struct{ err error }

func (f failingSender) Send(ctx context.Context, msg EmailMessage) error { return f.err }

func TestService_PatientRegisteredSendsWelcomeAndPublishes(t *testing.T) {
	sender := NewStubEmailSender(nil)
	pub := &recordingPublisher{}
	svc := NewService(sender, pub, "https://portal.example.com", nil)

	err := svc.PatientRegistered(context.Background(), events.PatientRegisteredV1{
		PatientID: "u1", Email: "alice@x.com", Name: "Alice <b>",
	})
	require.NoError(t, err)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@x.com", sent[0].To)
	assert.Equal(t, "Welcome to Prescription AI", sent[0].Subject)
	assert.True(t, strings.Contains(sent[0].Body, "https://portal.example.com"))
	assert.False(t, strings.Contains(sent[0].HTML, "<b>"), "html body must escape the name")
	assert.Equal(t, []string{events.TypePatientRegisteredV1}, pub.types)
}

func TestService_PatientRegisteredReportsFirstFailure(t *testing.T) {
	mailErr := errors.New("smtp down")
	pub := &recordingPublisher{err: errors.New("queue down")}
	svc := NewService(failingSender{err: mailErr}, pub, "", nil)

	err := svc.PatientRegistered(context.Background(), events.PatientRegisteredV1{PatientID: "u1", Email: "a@x.com"})
	assert.ErrorIs(t, err, mailErr)
	assert.Len(t, pub.types, 1, "publish still attempted after email failure")
}

func TestService_NilCollaborators(t *testing.T) {
	svc := NewService(nil, nil, "", nil)
	assert.NoError(t, svc.PatientRegistered(context.Background(), events.PatientRegisteredV1{PatientID: "u1"}))
	assert.NoError(t, svc.PatientSignedIn(context.Background(), events.PatientSignedInV1{PatientID: "u1"}))
}

func TestWelcomeEmailFallsBackToGenericGreeting(t *testing.T) {
	msg := welcomeEmail(events.PatientRegisteredV1{Email: "a@x.com"}, "")
	assert.True(t, strings.HasPrefix(msg.Body, "Hi there,"))
}
