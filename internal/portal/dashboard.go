package portal

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
)

const (
	// DashboardLimit caps each dashboard card list.
	DashboardLimit = 3
	// RefillWindow is how far ahead a refill counts as due.
	RefillWindow = 30 * 24 * time.Hour
	dateLayout   = "2006-01-02"
)

// Summary holds the dashboard stat cards.
type Summary struct {
	CurrentMedications   int    `json:"currentMedications"`
	UpcomingAppointments int    `json:"upcomingAppointments"`
	NextAppointment      string `json:"nextAppointment,omitempty"`
	RefillsDue           int    `json:"refillsDue"`
	Doctors              int    `json:"doctors"`
}

// Dashboard is the landing page: greeting, summary cards and the first few
// medications and appointments.
type Dashboard struct {
	Greeting           string        `json:"greeting"`
	Summary            Summary       `json:"summary"`
	Medications        []Medication  `json:"medications"`
	MedicationsSource  Source        `json:"medicationsSource"`
	Appointments       []Appointment `json:"appointments"`
	AppointmentsSource Source        `json:"appointmentsSource"`
}

// Dashboard builds the landing page for a patient. displayName falls back
// to "Patient".
func (s *Service) Dashboard(ctx context.Context, patientID, displayName string) (Dashboard, error) {
	filters, err := patientFilter(patientID)
	if err != nil {
		return Dashboard{}, err
	}
	meds, medSource, err := fetch(ctx, s, "dashboard_medications", documents.CollectionMedications, filters, DashboardLimit, dashboardSampleMedications)
	if err != nil {
		return Dashboard{}, err
	}
	appts, apptSource, err := fetch(ctx, s, "dashboard_appointments", documents.CollectionAppointments, filters, DashboardLimit, dashboardSampleAppointments)
	if err != nil {
		return Dashboard{}, err
	}

	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "Patient"
	}
	return Dashboard{
		Greeting:           "Welcome back, " + name,
		Summary:            summarize(meds, appts, s.now()),
		Medications:        meds,
		MedicationsSource:  medSource,
		Appointments:       appts,
		AppointmentsSource: apptSource,
	}, nil
}

func summarize(meds []Medication, appts []Appointment, now time.Time) Summary {
	sum := Summary{CurrentMedications: len(meds)}

	dueBy := now.Add(RefillWindow)
	for _, m := range meds {
		refill, err := time.Parse(dateLayout, m.RefillDate)
		if err != nil {
			continue
		}
		if !refill.After(dueBy) {
			sum.RefillsDue++
		}
	}

	doctors := make(map[string]struct{})
	var upcoming []string
	for _, a := range appts {
		if a.DoctorName != "" {
			doctors[a.DoctorName] = struct{}{}
		}
		if a.Status == AppointmentUpcoming {
			upcoming = append(upcoming, a.Date)
		}
	}
	sum.Doctors = len(doctors)
	sum.UpcomingAppointments = len(upcoming)
	if len(upcoming) > 0 {
		// ISO dates sort lexically.
		sort.Strings(upcoming)
		sum.NextAppointment = upcoming[0]
	}
	return sum
}
