package events

import "time"

const (
	TypePatientRegisteredV1 = "patient.registered.v1"
	TypePatientSignedInV1   = "patient.signed_in.v1"
)

// PatientRegisteredV1 is published once per completed signup.
type PatientRegisteredV1 struct {
	EventID      string    `json:"event_id"`
	PatientID    string    `json:"patient_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// PatientSignedInV1 is published after each successful login.
type PatientSignedInV1 struct {
	EventID    string    `json:"event_id"`
	PatientID  string    `json:"patient_id"`
	SessionID  string    `json:"session_id"`
	SignedInAt time.Time `json:"signed_in_at"`
}
