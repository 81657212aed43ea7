package encounter

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Encounter is one visit note: SOAP documentation plus its billing lines,
// diagnoses, and vitals.
type Encounter struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	PatientID      uuid.UUID  `json:"patient_id"`
	ProviderID     uuid.UUID  `json:"provider_id"`
	AppointmentID  *uuid.UUID `json:"appointment_id,omitempty"`
	VisitDate      time.Time  `json:"visit_date"`
	Status         Status     `json:"status"`

	Subjective string `json:"subjective,omitempty"`
	Objective  string `json:"objective,omitempty"`
	Assessment string `json:"assessment,omitempty"`
	Plan       string `json:"plan,omitempty"`

	SignedAt  *time.Time `json:"signed_at,omitempty"`
	SignedBy  string     `json:"signed_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SOAPComplete reports whether all four note sections are documented.
func (e *Encounter) SOAPComplete() bool {
	return e.Subjective != "" && e.Objective != "" && e.Assessment != "" && e.Plan != ""
}

// CanBeSigned reports whether the note is ready for attestation: fully
// documented and through the completed state.
func (e *Encounter) CanBeSigned() bool {
	return e.Status == StatusCompleted && e.SOAPComplete()
}

// LineItem is one billed procedure on the visit. ChargeAmount nil means the
// fee schedule price applies; an explicit value, including zero, overrides
// it.
type LineItem struct {
	ID           uuid.UUID `json:"id"`
	EncounterID  uuid.UUID `json:"encounter_id"`
	ProcedureID  uuid.UUID `json:"procedure_id"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
	ChargeAmount *float64  `json:"charge_amount,omitempty"`
	Units        int       `json:"units"`
	Modifiers    string    `json:"modifiers,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Charge is the effective per-unit charge after fee schedule defaulting.
func (li *LineItem) Charge() float64 {
	if li.ChargeAmount == nil {
		return 0
	}
	return *li.ChargeAmount
}

// TotalCharge is the line total: charge times units.
func (li *LineItem) TotalCharge() float64 {
	units := li.Units
	if units <= 0 {
		units = 1
	}
	return li.Charge() * float64(units)
}

// ModifierList splits the stored modifier CSV into individual billing
// modifiers, trimmed, blanks dropped.
func (li *LineItem) ModifierList() []string {
	if li.Modifiers == "" {
		return nil
	}
	var mods []string
	for _, m := range strings.Split(li.Modifiers, ",") {
		if m = strings.TrimSpace(m); m != "" {
			mods = append(mods, m)
		}
	}
	return mods
}

// Display returns the line as it reads on a superbill row.
func (li *LineItem) Display() string {
	if li.Description == "" {
		return li.Code
	}
	return li.Code + " - " + li.Description
}

// Diagnosis is one ICD code attached to the visit.
type Diagnosis struct {
	ID          uuid.UUID `json:"id"`
	EncounterID uuid.UUID `json:"encounter_id"`
	ICDCode     string    `json:"icd_code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Vitals is the measurement set recorded during the visit. One row per
// encounter; re-recording replaces it.
type Vitals struct {
	ID              uuid.UUID `json:"id"`
	EncounterID     uuid.UUID `json:"encounter_id"`
	HeightInches    *float64  `json:"height_inches,omitempty"`
	WeightPounds    *float64  `json:"weight_pounds,omitempty"`
	BMI             *float64  `json:"bmi,omitempty"`
	SystolicBP      *int      `json:"systolic_bp,omitempty"`
	DiastolicBP     *int      `json:"diastolic_bp,omitempty"`
	PulseBPM        *int      `json:"pulse_bpm,omitempty"`
	TemperatureF    *float64  `json:"temperature_f,omitempty"`
	RespiratoryRate *int      `json:"respiratory_rate,omitempty"`
	O2Sat           *int      `json:"o2_sat,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ComputeBMI derives body mass index from imperial height and weight,
// rounded to one decimal. Both measurements must be present and positive.
func ComputeBMI(heightInches, weightPounds float64) (float64, bool) {
	if heightInches <= 0 || weightPounds <= 0 {
		return 0, false
	}
	bmi := weightPounds * 703 / (heightInches * heightInches)
	return math.Round(bmi*10) / 10, true
}
