package portal

// Sample records shown when a patient has no data yet. Each call returns a
// fresh copy so callers may modify the result.

func sampleMedications() []Medication {
	return []Medication{
		{
			ID:           "1",
			Name:         "Lisinopril",
			Dosage:       "10mg",
			Frequency:    "Once daily",
			StartDate:    "2024-12-01",
			PrescribedBy: "Dr. Sarah Johnson",
			Status:       MedicationActive,
			Instructions: "Take once daily with food",
			RefillDate:   "2025-05-15",
		},
		{
			ID:           "2",
			Name:         "Metformin",
			Dosage:       "500mg",
			Frequency:    "Twice daily",
			StartDate:    "2024-11-15",
			PrescribedBy: "Dr. Michael Chen",
			Status:       MedicationActive,
			Instructions: "Take twice daily with meals",
			RefillDate:   "2025-05-01",
		},
		{
			ID:           "3",
			Name:         "Atorvastatin",
			Dosage:       "20mg",
			Frequency:    "Once daily",
			StartDate:    "2024-10-10",
			PrescribedBy: "Dr. Sarah Johnson",
			Status:       MedicationActive,
			Instructions: "Take once daily in the evening",
			RefillDate:   "2025-05-20",
		},
		{
			ID:           "4",
			Name:         "Amoxicillin",
			Dosage:       "500mg",
			Frequency:    "Three times daily",
			StartDate:    "2024-02-01",
			EndDate:      "2024-02-10",
			PrescribedBy: "Dr. David Wilson",
			Status:       MedicationCompleted,
			Instructions: "Take with food every 8 hours until completed",
		},
		{
			ID:           "5",
			Name:         "Prednisone",
			Dosage:       "10mg",
			Frequency:    "Once daily",
			StartDate:    "2024-01-15",
			EndDate:      "2024-01-30",
			PrescribedBy: "Dr. Sarah Johnson",
			Status:       MedicationDiscontinued,
			Instructions: "Take in the morning with food, taper as directed",
		},
	}
}

// dashboardSampleMedications is the short card list: name, dosage,
// instructions and refill date only.
func dashboardSampleMedications() []Medication {
	all := sampleMedications()[:3]
	out := make([]Medication, len(all))
	for i, m := range all {
		out[i] = Medication{ID: m.ID, Name: m.Name, Dosage: m.Dosage, Instructions: m.Instructions, RefillDate: m.RefillDate}
	}
	return out
}

func sampleAppointments() []Appointment {
	return []Appointment{
		{
			ID:              "1",
			DoctorID:        "1",
			DoctorName:      "Dr. Sarah Johnson",
			DoctorSpecialty: "Cardiologist",
			DoctorImage:     "https://randomuser.me/api/portraits/women/44.jpg",
			Date:            "2025-04-18",
			Time:            "10:00 AM",
			Status:          AppointmentUpcoming,
			Type:            AppointmentVirtual,
			Notes:           "Annual heart checkup and medication review",
		},
		{
			ID:              "2",
			DoctorID:        "2",
			DoctorName:      "Dr. Michael Chen",
			DoctorSpecialty: "Endocrinologist",
			DoctorImage:     "https://randomuser.me/api/portraits/men/35.jpg",
			Date:            "2025-04-25",
			Time:            "2:30 PM",
			Status:          AppointmentUpcoming,
			Type:            AppointmentInPerson,
			Location:        "Metro Medical Center, Suite 305",
			Notes:           "Follow-up on lab results and diabetes management",
		},
		{
			ID:              "3",
			DoctorID:        "3",
			DoctorName:      "Dr. David Wilson",
			DoctorSpecialty: "Family Medicine",
			DoctorImage:     "https://randomuser.me/api/portraits/men/67.jpg",
			Date:            "2025-03-15",
			Time:            "11:15 AM",
			Status:          AppointmentCompleted,
			Type:            AppointmentPhone,
			Notes:           "Discussed medication side effects and adjusted dosage",
		},
		{
			ID:              "4",
			DoctorID:        "4",
			DoctorName:      "Dr. Emily Rodriguez",
			DoctorSpecialty: "Neurologist",
			DoctorImage:     "https://randomuser.me/api/portraits/women/28.jpg",
			Date:            "2025-03-05",
			Time:            "3:45 PM",
			Status:          AppointmentCompleted,
			Type:            AppointmentInPerson,
			Location:        "Neuroscience Institute, Room 210",
			Notes:           "Initial consultation for recurring migraines",
		},
		{
			ID:              "5",
			DoctorID:        "5",
			DoctorName:      "Dr. Robert Kim",
			DoctorSpecialty: "Dermatologist",
			DoctorImage:     "https://randomuser.me/api/portraits/men/42.jpg",
			Date:            "2025-02-20",
			Time:            "1:00 PM",
			Status:          AppointmentCancelled,
			Type:            AppointmentVirtual,
			Notes:           "Rescheduled due to doctor's unavailability",
		},
	}
}

func dashboardSampleAppointments() []Appointment {
	return []Appointment{
		{ID: "1", DoctorName: "Dr. Sarah Johnson", DoctorSpecialty: "Cardiologist", Date: "2025-04-18", Time: "10:00 AM", Status: AppointmentUpcoming},
		{ID: "2", DoctorName: "Dr. Michael Chen", DoctorSpecialty: "Endocrinologist", Date: "2025-04-25", Time: "2:30 PM", Status: AppointmentUpcoming},
	}
}

// SampleDoctors is also the seed set loaded by cmd/seed.
func SampleDoctors() []Doctor {
	return []Doctor{
		{
			ID:             "1",
			Name:           "Dr. Sarah Johnson",
			Specialty:      "Cardiologist",
			Hospital:       "Heart & Vascular Institute",
			Rating:         4.8,
			ReviewCount:    124,
			Experience:     12,
			Image:          "https://randomuser.me/api/portraits/women/44.jpg",
			AvailableSlots: []string{"2025-04-18 10:00 AM", "2025-04-20 2:30 PM", "2025-04-22 9:15 AM"},
			About:          "Dr. Johnson is a board-certified cardiologist with over 12 years of experience in treating complex cardiovascular conditions. She specializes in preventive cardiology and heart disease management.",
		},
		{
			ID:             "2",
			Name:           "Dr. Michael Chen",
			Specialty:      "Endocrinologist",
			Hospital:       "Metro Medical Center",
			Rating:         4.9,
			ReviewCount:    89,
			Experience:     15,
			Image:          "https://randomuser.me/api/portraits/men/35.jpg",
			AvailableSlots: []string{"2025-04-19 11:30 AM", "2025-04-21 3:00 PM", "2025-04-23 10:45 AM"},
			About:          "Dr. Chen is an endocrinologist with expertise in diabetes management, thyroid disorders, and hormonal imbalances. He takes a holistic approach to treatment, focusing on lifestyle modifications alongside medication management.",
		},
		{
			ID:             "3",
			Name:           "Dr. David Wilson",
			Specialty:      "Family Medicine",
			Hospital:       "Community Health Partners",
			Rating:         4.7,
			ReviewCount:    156,
			Experience:     8,
			Image:          "https://randomuser.me/api/portraits/men/67.jpg",
			AvailableSlots: []string{"2025-04-18 9:00 AM", "2025-04-19 1:00 PM", "2025-04-20 4:15 PM"},
			About:          "Dr. Wilson is a compassionate family physician who believes in building long-term relationships with his patients. He provides comprehensive care for patients of all ages, from pediatrics to geriatrics.",
		},
		{
			ID:             "4",
			Name:           "Dr. Emily Rodriguez",
			Specialty:      "Neurologist",
			Hospital:       "Neuroscience Institute",
			Rating:         4.9,
			ReviewCount:    78,
			Experience:     10,
			Image:          "https://randomuser.me/api/portraits/women/28.jpg",
			AvailableSlots: []string{"2025-04-22 1:30 PM", "2025-04-23 10:00 AM", "2025-04-25 3:45 PM"},
			About:          "Dr. Rodriguez specializes in treating neurological disorders including migraines, epilepsy, and movement disorders. She integrates the latest research and technology into her practice to provide optimal patient care.",
		},
		{
			ID:             "5",
			Name:           "Dr. Robert Kim",
			Specialty:      "Dermatologist",
			Hospital:       "Skin & Wellness Center",
			Rating:         4.6,
			ReviewCount:    112,
			Experience:     14,
			Image:          "https://randomuser.me/api/portraits/men/42.jpg",
			AvailableSlots: []string{"2025-04-19 2:00 PM", "2025-04-21 11:30 AM", "2025-04-24 9:45 AM"},
			About:          "Dr. Kim is a board-certified dermatologist with expertise in both medical and cosmetic dermatology. He treats conditions ranging from acne and eczema to skin cancer, and is known for his attention to detail and patient education.",
		},
		{
			ID:             "6",
			Name:           "Dr. Lisa Patel",
			Specialty:      "Psychiatrist",
			Hospital:       "Behavioral Health Services",
			Rating:         4.8,
			ReviewCount:    95,
			Experience:     11,
			Image:          "https://randomuser.me/api/portraits/women/63.jpg",
			AvailableSlots: []string{"2025-04-18 3:30 PM", "2025-04-20 12:00 PM", "2025-04-22 2:15 PM"},
			About:          "Dr. Patel is a psychiatrist who specializes in mood disorders, anxiety, and PTSD. She takes a personalized approach to mental health treatment, combining medication management with therapeutic interventions.",
		},
	}
}
