// Package portal serves the read-only patient views: dashboard,
// medications, appointments and doctors.
package portal

// MedicationStatus is a prescription lifecycle stage.
type MedicationStatus string

const (
	MedicationActive       MedicationStatus = "active"
	MedicationCompleted    MedicationStatus = "completed"
	MedicationDiscontinued MedicationStatus = "discontinued"
)

// Medication is one prescription on a patient record.
type Medication struct {
	ID           string           `json:"id"`
	PatientID    string           `json:"patientId,omitempty"`
	Name         string           `json:"name"`
	Dosage       string           `json:"dosage"`
	Frequency    string           `json:"frequency,omitempty"`
	StartDate    string           `json:"startDate,omitempty"`
	EndDate      string           `json:"endDate,omitempty"`
	PrescribedBy string           `json:"prescribedBy,omitempty"`
	Status       MedicationStatus `json:"status,omitempty"`
	Instructions string           `json:"instructions"`
	RefillDate   string           `json:"refillDate,omitempty"`
}

// AppointmentStatus splits appointments into upcoming and past.
type AppointmentStatus string

const (
	AppointmentUpcoming  AppointmentStatus = "upcoming"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// AppointmentType is how the visit takes place.
type AppointmentType string

const (
	AppointmentVirtual  AppointmentType = "virtual"
	AppointmentInPerson AppointmentType = "in-person"
	AppointmentPhone    AppointmentType = "phone"
)

// Appointment is a booked visit with a doctor.
type Appointment struct {
	ID              string            `json:"id"`
	PatientID       string            `json:"patientId,omitempty"`
	DoctorID        string            `json:"doctorId,omitempty"`
	DoctorName      string            `json:"doctorName"`
	DoctorSpecialty string            `json:"doctorSpecialty"`
	DoctorImage     string            `json:"doctorImage,omitempty"`
	Date            string            `json:"date"`
	Time            string            `json:"time"`
	Status          AppointmentStatus `json:"status"`
	Type            AppointmentType   `json:"type,omitempty"`
	Location        string            `json:"location,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

// Doctor is a directory entry.
type Doctor struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Specialty      string   `json:"specialty"`
	Hospital       string   `json:"hospital"`
	Rating         float64  `json:"rating"`
	ReviewCount    int      `json:"reviewCount"`
	Experience     int      `json:"experience"`
	Image          string   `json:"image"`
	AvailableSlots []string `json:"availableSlots,omitempty"`
	About          string   `json:"about,omitempty"`
}

// Source says where a view's records came from.
type Source string

const (
	SourceStore  Source = "store"
	SourceSample Source = "sample"
)
