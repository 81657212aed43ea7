package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a chart within one organization. All lookups are scoped by
// organization id; a patient is never visible across practices.
type Patient struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	MiddleInitial  string     `json:"middle_initial,omitempty"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	Street         string     `json:"street,omitempty"`
	City           string     `json:"city,omitempty"`
	State          string     `json:"state,omitempty"`
	Zip            string     `json:"zip,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FullName renders "Last, First" for chart headers and artifact names.
func (p *Patient) FullName() string {
	return p.LastName + ", " + p.FirstName
}

// CityState renders "City, ST" for receipt address blocks.
func (p *Patient) CityState() string {
	if p.City == "" {
		return p.State
	}
	if p.State == "" {
		return p.City
	}
	return p.City + ", " + p.State
}

// Allergy is one entry on the patient's allergy list.
type Allergy struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Substance string    `json:"substance"`
	Reaction  string    `json:"reaction,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Condition is one problem list entry.
type Condition struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	Name       string     `json:"name"`
	Code       string     `json:"code,omitempty"`
	CodeSystem string     `json:"code_system,omitempty"`
	OnsetDate  *time.Time `json:"onset_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Medication is one active medication.
type Medication struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage,omitempty"`
	Frequency string    `json:"frequency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DME is one durable medical equipment item issued to the patient.
type DME struct {
	ID             uuid.UUID  `json:"id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	Name           string     `json:"name"`
	Status         string     `json:"status,omitempty"`
	PrescribedDate *time.Time `json:"prescribed_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Lab is one recorded lab result.
type Lab struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	TestName   string     `json:"test_name"`
	Result     string     `json:"result,omitempty"`
	ResultedAt *time.Time `json:"resulted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
