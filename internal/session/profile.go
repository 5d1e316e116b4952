package session

import (
	"time"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
	"github.com/wolfman30/prescription-ai-portal/internal/identity"
)

// Role of a portal user.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Profile is the users/{id} document written at signup.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Session is a point-in-time copy of a manager's state.
type Session struct {
	Identity *identity.User `json:"identity"`
	Profile  *Profile       `json:"profile"`
	Loading  bool           `json:"loading"`
}

// DisplayName prefers the provider display name, then the profile name.
func (s Session) DisplayName() string {
	if s.Identity != nil && s.Identity.DisplayName != "" {
		return s.Identity.DisplayName
	}
	if s.Profile != nil {
		return s.Profile.Name
	}
	return ""
}

func newPatientProfile(user identity.User, name string, now time.Time) Profile {
	return Profile{
		ID:        user.ID,
		Name:      name,
		Email:     user.Email,
		Role:      RolePatient,
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

func profileFromRecord(rec documents.Record) (*Profile, error) {
	var p Profile
	if err := documents.Decode(rec, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = rec.ID()
	}
	return &p, nil
}
