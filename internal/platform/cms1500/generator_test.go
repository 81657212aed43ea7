package cms1500

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func testClaim() *ClaimData {
	dob := time.Date(1985, 3, 12, 0, 0, 0, 0, time.UTC)
	return &ClaimData{
		EncounterID:      uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		VisitDate:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		PatientFirstName: "Maria",
		PatientLastName:  "Gonzalez",
		PatientBirthDate: &dob,
		PatientStreet:    "12 Oak Ln",
		PatientCity:      "Austin",
		PatientState:     "TX",
		PatientZip:       "78701",
		DiagnosisCodes:   []string{"I10", "E11.9"},
		Lines: []ServiceLine{
			{Code: "99213", Modifiers: []string{"25"}, Charge: 125, Units: 1},
			{Code: "93000", Charge: 75.5, Units: 2},
		},
		RenderingNPI:        "1234567890",
		BillingName:         "Sunrise Family Practice",
		BillingStreet:       "500 Main St",
		BillingCityStateZip: "Austin, TX 78701",
		BillingNPI:          "9876543210",
	}
}

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	g := NewGenerator(t.TempDir())
	g.now = fixedNow
	return g
}

func findText(placements []Placement, text string) *Placement {
	for i := range placements {
		if placements[i].Text == text {
			return &placements[i]
		}
	}
	return nil
}

func TestPlacements_BlanksSkippedAndUppercased(t *testing.T) {
	g := testGenerator(t)
	data := testClaim()
	data.PatientMiddleInitial = "" // blank, must not appear
	placements := g.placements(data)

	for _, p := range placements {
		if p.Text == "" {
			t.Error("blank placement emitted")
		}
	}
	if findText(placements, "GONZALEZ") == nil {
		t.Error("expected uppercased last name")
	}
	if findText(placements, "Gonzalez") != nil {
		t.Error("expected original-case name to be absent")
	}
}

func TestPlacements_ServiceLineRows(t *testing.T) {
	g := testGenerator(t)
	placements := g.placements(testClaim())

	first := findText(placements, "99213")
	second := findText(placements, "93000")
	if first == nil || second == nil {
		t.Fatal("expected both procedure codes placed")
	}
	if first.Y != serviceLineStartY {
		t.Errorf("first row y = %v, want %v", first.Y, serviceLineStartY)
	}
	if got, want := first.Y-second.Y, float64(serviceLineRowHeight); got != want {
		t.Errorf("row spacing = %v, want %v", got, want)
	}
	if findText(placements, "125.00") == nil {
		t.Error("expected charge formatted with two decimals")
	}
	if mod := findText(placements, "25"); mod == nil || mod.X != colModifiers {
		t.Errorf("modifier placement = %+v, want text at modifier column", mod)
	}
	if findText(placements, "02 10 24") == nil {
		t.Error("expected service date in MM DD YY cells")
	}
}

func TestPlacements_DiagnosisCapAndSignature(t *testing.T) {
	g := testGenerator(t)
	data := testClaim()
	data.DiagnosisCodes = []string{"I10", "E11.9", "Z00.00", "M54.5", "J06.9", "R51"}
	placements := g.placements(data)

	if findText(placements, "M54.5") == nil {
		t.Error("expected fourth diagnosis placed")
	}
	if findText(placements, "J06.9") != nil {
		t.Error("expected fifth diagnosis dropped")
	}
	if findText(placements, "SIGNATURE ON FILE") == nil {
		t.Error("expected signature attestation")
	}
	if findText(placements, "03/15/2024") == nil {
		t.Error("expected signature date from clock")
	}
}

func TestPlacements_IdenticalAcrossModes(t *testing.T) {
	g := testGenerator(t)
	data := testClaim()

	// Placements do not depend on mode; render both to confirm neither
	// path mutates the data.
	before := fmt.Sprintf("%v", g.placements(data))
	if _, err := g.Generate(data, ModePrint); err != nil {
		t.Fatalf("print: %v", err)
	}
	if _, err := g.Generate(data, ModeDigital); err != nil {
		t.Fatalf("digital: %v", err)
	}
	after := fmt.Sprintf("%v", g.placements(data))
	if before != after {
		t.Error("placements changed after rendering")
	}
}

func TestGenerate_ProducesPDF(t *testing.T) {
	g := testGenerator(t)
	out, err := g.Generate(testClaim(), ModePrint)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) < 4 || string(out[:4]) != "%PDF" {
		t.Error("expected PDF magic header")
	}
}

func TestFilename(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	if got := Filename(id, ModeDigital); got != "Claim_11111111-2222-3333-4444-555555555555_FULL.pdf" {
		t.Errorf("digital filename: %q", got)
	}
	if got := Filename(id, ModePrint); got != "Claim_11111111-2222-3333-4444-555555555555_PRINT.pdf" {
		t.Errorf("print filename: %q", got)
	}
}
