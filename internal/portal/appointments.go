package portal

import (
	"context"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
)

// AppointmentList is the appointments page split into upcoming and past.
type AppointmentList struct {
	Source   Source        `json:"source"`
	Upcoming []Appointment `json:"upcoming"`
	Past     []Appointment `json:"past"`
}

// Appointments returns the patient's appointments.
func (s *Service) Appointments(ctx context.Context, patientID string) (AppointmentList, error) {
	filters, err := patientFilter(patientID)
	if err != nil {
		return AppointmentList{}, err
	}
	appts, source, err := fetch(ctx, s, "appointments", documents.CollectionAppointments, filters, 0, sampleAppointments)
	if err != nil {
		return AppointmentList{}, err
	}
	upcoming, past := SplitAppointments(appts)
	return AppointmentList{Source: source, Upcoming: upcoming, Past: past}, nil
}

// SplitAppointments puts upcoming visits in one list and completed or
// cancelled visits in the other. Unknown statuses are dropped.
func SplitAppointments(appts []Appointment) (upcoming, past []Appointment) {
	upcoming = []Appointment{}
	past = []Appointment{}
	for _, a := range appts {
		switch a.Status {
		case AppointmentUpcoming:
			upcoming = append(upcoming, a)
		case AppointmentCompleted, AppointmentCancelled:
			past = append(past, a)
		}
	}
	return upcoming, past
}
