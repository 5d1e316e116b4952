package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/wolfman30/prescription-ai-portal/internal/events"
	"github.com/wolfman30/prescription-ai-portal/pkg/logging"
)

// Service fans patient lifecycle events out to email and the event bus.
type Service struct {
	email     EmailSender
	publisher events.Publisher
	portalURL string
	logger    *logging.Logger
}

// NewService creates a notification service. email and publisher may be nil.
func NewService(email EmailSender, publisher events.Publisher, portalURL string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, publisher: publisher, portalURL: portalURL, logger: logger}
}

// PatientRegistered sends the welcome email and publishes the event. Both
// are attempted; the first failure is returned.
func (s *Service) PatientRegistered(ctx context.Context, evt events.PatientRegisteredV1) error {
	var firstErr error
	if s.email != nil {
		if err := s.email.Send(ctx, welcomeEmail(evt, s.portalURL)); err != nil {
			s.logger.Error("notify: welcome email failed", "error", err, "patient_id", evt.PatientID)
			firstErr = fmt.Errorf("notify: welcome email: %w", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.TypePatientRegisteredV1, evt); err != nil {
			s.logger.Error("notify: publish registration failed", "error", err, "patient_id", evt.PatientID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// PatientSignedIn publishes the sign-in event.
func (s *Service) PatientSignedIn(ctx context.Context, evt events.PatientSignedInV1) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(ctx, events.TypePatientSignedInV1, evt); err != nil {
		s.logger.Error("notify: publish sign-in failed", "error", err, "patient_id", evt.PatientID)
		return err
	}
	return nil
}

func welcomeEmail(evt events.PatientRegisteredV1, portalURL string) EmailMessage {
	name := strings.TrimSpace(evt.Name)
	if name == "" {
		name = "there"
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nYour Prescription AI account has been created.", name)
	body.WriteString(" You can now review your medications, appointments and care team in one place.")
	if portalURL != "" {
		fmt.Fprintf(&body, "\n\nSign in at %s", portalURL)
	}
	body.WriteString("\n\nThe Prescription AI team")

	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(body.String()), "\n\n", "</p><p>") + "</p>"
	return EmailMessage{
		To:       evt.Email,
		ToName:   evt.Name,
		Subject:  "Welcome to Prescription AI",
		Body:     body.String(),
		HTML:     htmlBody,
		Category: "welcome",
	}
}
