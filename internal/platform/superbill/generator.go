// Package superbill renders patient-facing service receipts as flowing PDF
// documents.
package superbill

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const federalTaxID = "12-3456789"

// DiagnosisRow is one entry in the diagnosis codes table.
type DiagnosisRow struct {
	System      string
	Code        string
	Description string
}

// ProcedureRow is one billed procedure with its fee.
type ProcedureRow struct {
	Code        string
	Description string
	Fee         float64
}

// Data carries everything a superbill renders.
type Data struct {
	VisitDate time.Time

	OrganizationName string

	ProviderName      string
	ProviderNPI       string
	ProviderSpecialty string
	ProviderLicense   string

	PatientName      string
	PatientBirthDate *time.Time
	PatientStreet    string
	PatientCityState string

	Diagnoses []DiagnosisRow
	Lines     []ProcedureRow
	Total     float64
}

// Generator renders superbill PDFs.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Filename returns the download name for a superbill.
func Filename(patientLastName string, visitDate time.Time) string {
	return fmt.Sprintf("Superbill_%s_%s.pdf", patientLastName, visitDate.Format("2006-01-02"))
}

var currencyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders a dollar amount with grouping, e.g. "$1,234.50".
func FormatCurrency(amount float64) string {
	return currencyPrinter.Sprintf("$%.2f", amount)
}

// Generate renders the receipt.
func (g *Generator) Generate(data *Data) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(54, 54, 54)
	pdf.SetAutoPageBreak(true, 54)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 108

	// Header, right-aligned
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentWidth, 20, "SUPERBILL / SERVICE RECEIPT", "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, 14, "Date of Service: "+data.VisitDate.Format("01/02/2006"), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Practice block
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentWidth, 18, strings.ToUpper(data.OrganizationName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	npi := data.ProviderNPI
	if npi == "" {
		npi = "Pending"
	}
	pdf.CellFormat(contentWidth, 14, "NPI: "+npi, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth, 14, "Tax ID: "+federalTaxID, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Rule
	x, y := pdf.GetXY()
	pdf.SetLineWidth(0.5)
	pdf.Line(x, y, x+contentWidth, y)
	pdf.Ln(10)

	g.partiesBlock(pdf, data, contentWidth)
	g.diagnosisTable(pdf, data, contentWidth)
	g.procedureTable(pdf, data, contentWidth)

	pdf.Ln(20)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentWidth, 10,
		"This document serves as a receipt for services rendered. Please retain for your records.",
		"", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render superbill: %w", err)
	}
	return buf.Bytes(), nil
}

// partiesBlock draws the patient and provider columns side by side.
func (g *Generator) partiesBlock(pdf *fpdf.Fpdf, data *Data, contentWidth float64) {
	colWidth := contentWidth / 2
	left, top := pdf.GetXY()

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colWidth, 14, "PATIENT", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	patientLines := []string{data.PatientName}
	if data.PatientBirthDate != nil {
		patientLines = append(patientLines, "DOB: "+data.PatientBirthDate.Format("01/02/2006"))
	}
	if data.PatientStreet != "" {
		patientLines = append(patientLines, data.PatientStreet)
	}
	if data.PatientCityState != "" {
		patientLines = append(patientLines, data.PatientCityState)
	}
	for _, line := range patientLines {
		pdf.CellFormat(colWidth, 13, line, "", 1, "L", false, 0, "")
	}
	bottom := pdf.GetY()

	pdf.SetXY(left+colWidth, top)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(colWidth, 14, "PROVIDER", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	providerLines := []string{data.ProviderName}
	if data.ProviderSpecialty != "" {
		providerLines = append(providerLines, data.ProviderSpecialty)
	}
	if data.ProviderLicense != "" {
		providerLines = append(providerLines, "Lic: "+data.ProviderLicense)
	}
	for _, line := range providerLines {
		pdf.SetX(left + colWidth)
		pdf.CellFormat(colWidth, 13, line, "", 1, "L", false, 0, "")
	}
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}
	pdf.SetXY(left, bottom+10)
}

func (g *Generator) diagnosisTable(pdf *fpdf.Fpdf, data *Data, contentWidth float64) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentWidth, 16, "DIAGNOSIS CODES", "", 1, "L", false, 0, "")

	if len(data.Diagnoses) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(contentWidth, 13, "No diagnosis recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(8)
		return
	}

	widths := []float64{contentWidth * 0.2, contentWidth * 0.2, contentWidth * 0.6}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"System", "Code", "Description"} {
		pdf.CellFormat(widths[i], 14, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, d := range data.Diagnoses {
		pdf.CellFormat(widths[0], 13, d.System, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 13, d.Code, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 13, d.Description, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func (g *Generator) procedureTable(pdf *fpdf.Fpdf, data *Data, contentWidth float64) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentWidth, 16, "PROCEDURES (CPT)", "", 1, "L", false, 0, "")

	widths := []float64{contentWidth * 0.2, contentWidth * 0.6, contentWidth * 0.2}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0], 14, "Code", "B", 0, "L", false, 0, "")
	pdf.CellFormat(widths[1], 14, "Description", "B", 0, "L", false, 0, "")
	pdf.CellFormat(widths[2], 14, "Fee", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range data.Lines {
		pdf.CellFormat(widths[0], 13, line.Code, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 13, line.Description, "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 13, FormatCurrency(line.Fee), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1], 15, "TOTAL", "T", 0, "L", false, 0, "")
	pdf.CellFormat(widths[2], 15, FormatCurrency(data.Total), "T", 1, "R", false, 0, "")
}
