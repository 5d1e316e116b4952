package portal

import (
	"context"
	"errors"
	"strings"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
)

// ErrDoctorNotFound is returned by Doctor for an unknown id.
var ErrDoctorNotFound = errors.New("portal: doctor not found")

// AllSpecialties disables the specialty filter.
const AllSpecialties = "all"

// DoctorQuery narrows the doctor directory.
type DoctorQuery struct {
	Search    string
	Specialty string
}

// DoctorList is the doctor directory. Specialties covers the whole
// directory, not just the filtered page.
type DoctorList struct {
	Source      Source   `json:"source"`
	Doctors     []Doctor `json:"doctors"`
	Specialties []string `json:"specialties"`
}

// Doctors lists the directory. The doctors collection is shared by all
// patients, so no owner filter applies.
func (s *Service) Doctors(ctx context.Context, q DoctorQuery) (DoctorList, error) {
	docs, source, err := fetch(ctx, s, "doctors", documents.CollectionDoctors, nil, 0, SampleDoctors)
	if err != nil {
		return DoctorList{}, err
	}
	return DoctorList{
		Source:      source,
		Doctors:     FilterDoctors(docs, q),
		Specialties: Specialties(docs),
	}, nil
}

// Doctor returns one directory entry, looked up the same way Doctors lists
// them so sample doctors resolve too.
func (s *Service) Doctor(ctx context.Context, id string) (Doctor, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Doctor{}, ErrDoctorNotFound
	}
	docs, _, err := fetch(ctx, s, "doctor", documents.CollectionDoctors, nil, 0, SampleDoctors)
	if err != nil {
		return Doctor{}, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return Doctor{}, ErrDoctorNotFound
}

// FilterDoctors applies the search term (name or specialty) and the exact
// specialty filter.
func FilterDoctors(docs []Doctor, q DoctorQuery) []Doctor {
	specialty := strings.TrimSpace(q.Specialty)
	out := make([]Doctor, 0, len(docs))
	for _, d := range docs {
		if !containsFold(q.Search, d.Name, d.Specialty) {
			continue
		}
		if specialty != "" && !strings.EqualFold(specialty, AllSpecialties) && !strings.EqualFold(specialty, d.Specialty) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Specialties returns the distinct specialties in first-seen order.
func Specialties(docs []Doctor) []string {
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Specialty == "" {
			continue
		}
		if _, ok := seen[d.Specialty]; ok {
			continue
		}
		seen[d.Specialty] = struct{}{}
		out = append(out, d.Specialty)
	}
	return out
}
