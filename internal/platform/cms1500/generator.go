package cms1500

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Mode selects the claim rendering variant.
type Mode string

const (
	// ModePrint draws data only, for pre-printed red-ink form stock.
	ModePrint Mode = "print"
	// ModeDigital overlays data on a scanned form image for payer upload.
	ModeDigital Mode = "digital"
)

const (
	pageWidth  = 612.0
	pageHeight = 792.0

	backgroundImage = "cms1500.jpg"
)

// ServiceLine is one box-24 row on the claim.
type ServiceLine struct {
	Code      string
	Modifiers []string
	Charge    float64
	Units     int
}

// ClaimData carries everything a claim form renders. All text fields are
// optional; blanks are simply left empty on the form.
type ClaimData struct {
	EncounterID uuid.UUID
	VisitDate   time.Time

	PatientFirstName     string
	PatientLastName      string
	PatientMiddleInitial string
	PatientBirthDate     *time.Time
	PatientStreet        string
	PatientCity          string
	PatientState         string
	PatientZip           string

	DiagnosisCodes []string
	Lines          []ServiceLine

	RenderingNPI string

	BillingName         string
	BillingStreet       string
	BillingCityStateZip string
	BillingNPI          string
}

// Placement is a single piece of text resolved to a page position
// (bottom-left origin). Placements are identical across modes; only the
// background differs.
type Placement struct {
	Text string
	X    float64
	Y    float64
}

// Generator renders CMS-1500 claims.
type Generator struct {
	assetsDir string
	now       func() time.Time
}

func NewGenerator(assetsDir string) *Generator {
	return &Generator{assetsDir: assetsDir, now: time.Now}
}

// Filename returns the download name for a claim rendering.
func Filename(encounterID uuid.UUID, mode Mode) string {
	if mode == ModeDigital {
		return fmt.Sprintf("Claim_%s_FULL.pdf", encounterID)
	}
	return fmt.Sprintf("Claim_%s_PRINT.pdf", encounterID)
}

// Generate renders the claim PDF for the given mode.
func (g *Generator) Generate(data *ClaimData, mode Mode) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	if mode == ModeDigital {
		bg := filepath.Join(g.assetsDir, backgroundImage)
		// A missing scan is tolerated; the data renders on a blank page.
		if _, err := os.Stat(bg); err == nil {
			pdf.ImageOptions(bg, 0, 0, pageWidth, pageHeight, false,
				fpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		}
	}

	pdf.SetFont("Courier", "", 10)
	for _, p := range g.placements(data) {
		pdf.Text(p.X, pageHeight-p.Y, p.Text)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render claim %s: %w", data.EncounterID, err)
	}
	return buf.Bytes(), nil
}

// placements resolves claim data against the coordinate layout. The result
// is mode-independent: print and digital renderings place identical text.
func (g *Generator) placements(data *ClaimData) []Placement {
	var out []Placement

	place := func(f Field, text string) {
		pos := layout[f]
		out = appendPlacement(out, text, pos.X, pos.Y)
	}

	// Box 1: insurance type marker
	place(FieldInsuranceType, "X")

	// Box 2: patient name
	place(FieldPatientLastName, data.PatientLastName)
	place(FieldPatientFirstName, data.PatientFirstName)
	place(FieldPatientMiddle, data.PatientMiddleInitial)

	// Box 3: date of birth, split into MM DD YY cells
	if dob := data.PatientBirthDate; dob != nil {
		place(FieldBirthMonth, dob.Format("01"))
		place(FieldBirthDay, dob.Format("02"))
		place(FieldBirthYear, dob.Format("06"))
	}

	// Box 5: patient address
	place(FieldPatientStreet, data.PatientStreet)
	place(FieldPatientCity, data.PatientCity)
	place(FieldPatientState, data.PatientState)
	place(FieldPatientZip, data.PatientZip)

	// Box 21: up to four diagnosis codes across the grid
	for i, code := range data.DiagnosisCodes {
		if i >= maxDiagnoses {
			break
		}
		out = appendPlacement(out, code, diagnosisBaseX+float64(i)*diagnosisSpacing, diagnosisY)
	}

	// Box 24: one row per service line
	for i, line := range data.Lines {
		y := serviceLineStartY - float64(i)*serviceLineRowHeight
		units := line.Units
		if units <= 0 {
			units = 1
		}
		out = appendPlacement(out, data.VisitDate.Format("01 02 06"), colServiceDate, y)
		out = appendPlacement(out, placeOfServiceOffice, colPlaceOfService, y)
		out = appendPlacement(out, line.Code, colProcedureCode, y)
		out = appendPlacement(out, strings.Join(line.Modifiers, " "), colModifiers, y)
		out = appendPlacement(out, diagnosisPointerPrimary, colDiagnosisPointer, y)
		out = appendPlacement(out, fmt.Sprintf("%.2f", line.Charge), colCharge, y)
		out = appendPlacement(out, strconv.Itoa(units), colUnits, y)
		out = appendPlacement(out, data.RenderingNPI, colRenderingNPI, y)
	}

	// Box 25: federal tax id
	place(FieldFederalTaxID, federalTaxID)

	// Box 31: signature on file plus today's date
	place(FieldSignature, "SIGNATURE ON FILE")
	place(FieldSignatureDate, g.now().Format("01/02/2006"))

	// Box 33: billing provider
	place(FieldBillingName, data.BillingName)
	place(FieldBillingStreet, data.BillingStreet)
	place(FieldBillingCityStateZip, data.BillingCityStateZip)
	place(FieldBillingNPI, data.BillingNPI)

	return out
}

// appendPlacement skips blank values and upcases everything, the way the
// paper form expects.
func appendPlacement(out []Placement, text string, x, y float64) []Placement {
	if strings.TrimSpace(text) == "" {
		return out
	}
	return append(out, Placement{Text: strings.ToUpper(text), X: x, Y: y})
}
