package portal

import (
	"context"

	"github.com/wolfman30/prescription-ai-portal/internal/documents"
)

// MedicationList is the medications page: the filtered records split into
// active and past prescriptions.
type MedicationList struct {
	Source Source       `json:"source"`
	Active []Medication `json:"active"`
	Past   []Medication `json:"past"`
}

// Medications returns the patient's medications. search narrows by name or
// prescribing doctor.
func (s *Service) Medications(ctx context.Context, patientID, search string) (MedicationList, error) {
	filters, err := patientFilter(patientID)
	if err != nil {
		return MedicationList{}, err
	}
	meds, source, err := fetch(ctx, s, "medications", documents.CollectionMedications, filters, 0, sampleMedications)
	if err != nil {
		return MedicationList{}, err
	}
	active, past := SplitMedications(FilterMedications(meds, search))
	return MedicationList{Source: source, Active: active, Past: past}, nil
}

// FilterMedications keeps medications whose name or prescriber contains search.
func FilterMedications(meds []Medication, search string) []Medication {
	out := make([]Medication, 0, len(meds))
	for _, m := range meds {
		if containsFold(search, m.Name, m.PrescribedBy) {
			out = append(out, m)
		}
	}
	return out
}

// SplitMedications partitions by status: active versus everything else.
func SplitMedications(meds []Medication) (active, past []Medication) {
	active = []Medication{}
	past = []Medication{}
	for _, m := range meds {
		if m.Status == MedicationActive {
			active = append(active, m)
		} else {
			past = append(past, m)
		}
	}
	return active, past
}
