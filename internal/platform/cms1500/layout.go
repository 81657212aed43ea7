// Package cms1500 renders CMS-1500 professional claim forms.
//
// Field positions are expressed in points from the bottom-left corner of a
// US Letter page (612x792), matching how the paper form is calibrated
// against pre-printed stock. The drawing code converts to the renderer's
// top-left origin.
package cms1500

// Field names a box on the CMS-1500 form.
type Field string

const (
	FieldInsuranceType       Field = "insurance_type"        // box 1
	FieldPatientLastName     Field = "patient_last_name"     // box 2
	FieldPatientFirstName    Field = "patient_first_name"    // box 2
	FieldPatientMiddle       Field = "patient_middle"        // box 2
	FieldBirthMonth          Field = "birth_month"           // box 3
	FieldBirthDay            Field = "birth_day"             // box 3
	FieldBirthYear           Field = "birth_year"            // box 3
	FieldPatientStreet       Field = "patient_street"        // box 5
	FieldPatientCity         Field = "patient_city"          // box 5
	FieldPatientState        Field = "patient_state"         // box 5
	FieldPatientZip          Field = "patient_zip"           // box 5
	FieldFederalTaxID        Field = "federal_tax_id"        // box 25
	FieldSignature           Field = "signature"             // box 31
	FieldSignatureDate       Field = "signature_date"        // box 31
	FieldBillingName         Field = "billing_name"          // box 33
	FieldBillingStreet       Field = "billing_street"        // box 33
	FieldBillingCityStateZip Field = "billing_city_state_zip" // box 33
	FieldBillingNPI          Field = "billing_npi"           // box 33
)

// Position locates a field on the page, bottom-left origin.
type Position struct {
	X float64
	Y float64
}

// layout is the declarative coordinate table for fixed (non-repeating)
// fields. Calibration changes happen here, never in the drawing code.
var layout = map[Field]Position{
	FieldInsuranceType:       {X: 50, Y: 700},
	FieldPatientLastName:     {X: 50, Y: 680},
	FieldPatientFirstName:    {X: 150, Y: 680},
	FieldPatientMiddle:       {X: 250, Y: 680},
	FieldBirthMonth:          {X: 300, Y: 680},
	FieldBirthDay:            {X: 330, Y: 680},
	FieldBirthYear:           {X: 360, Y: 680},
	FieldPatientStreet:       {X: 50, Y: 650},
	FieldPatientCity:         {X: 50, Y: 630},
	FieldPatientState:        {X: 200, Y: 630},
	FieldPatientZip:          {X: 250, Y: 630},
	FieldFederalTaxID:        {X: 50, Y: 100},
	FieldSignature:           {X: 50, Y: 50},
	FieldSignatureDate:       {X: 150, Y: 50},
	FieldBillingName:         {X: 400, Y: 100},
	FieldBillingStreet:       {X: 400, Y: 90},
	FieldBillingCityStateZip: {X: 400, Y: 80},
	FieldBillingNPI:          {X: 400, Y: 60},
}

// Box 21 diagnosis grid and box 24 service line geometry.
const (
	diagnosisBaseX   = 50.0
	diagnosisSpacing = 150.0
	diagnosisY       = 450.0
	maxDiagnoses     = 4

	serviceLineStartY    = 380.0
	serviceLineRowHeight = 24.0

	colServiceDate      = 50.0  // 24a
	colPlaceOfService   = 150.0 // 24b
	colProcedureCode    = 200.0 // 24d
	colModifiers        = 260.0 // 24d modifiers
	colDiagnosisPointer = 300.0 // 24e
	colCharge           = 350.0 // 24f
	colUnits            = 450.0 // 24g
	colRenderingNPI     = 500.0 // 24j
)

const (
	placeOfServiceOffice    = "11"
	diagnosisPointerPrimary = "A"
	federalTaxID            = "12-3456789"
)
