package ccda

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// HL7 OIDs used in the document header and section templates.
const (
	oidHL7RIM          = "2.16.840.1.113883.1.3"
	oidUSGeneralHeader = "2.16.840.1.113883.10.20.22.1.1"
	oidCCDDocument     = "2.16.840.1.113883.10.20.22.1.2"
	oidLOINC           = "2.16.840.1.113883.6.1"
	oidGenderCodes     = "2.16.840.1.113883.5.1"
	oidConfidentiality = "2.16.840.1.113883.5.25"
	oidPatientIDRoot   = "2.16.840.1.113883.19.5"

	oidAllergiesSection  = "2.16.840.1.113883.10.20.22.2.6.1"
	oidMedsSection       = "2.16.840.1.113883.10.20.22.2.1.1"
	oidProblemsSection   = "2.16.840.1.113883.10.20.22.2.5.1"
	oidResultsSection    = "2.16.840.1.113883.10.20.22.2.3.1"
	oidEncountersSection = "2.16.840.1.113883.10.20.22.2.22.1"
)

// Generator builds CCD XML documents from patient summaries.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// Filename returns the download name for a patient's CCD.
func Filename(lastName, firstName string, at time.Time) string {
	return fmt.Sprintf("CCDA_%s_%s_%s.xml", lastName, firstName, at.Format("2006-01-02"))
}

// Generate renders the CCD for a patient summary. Sections with no data are
// omitted entirely so sparse charts produce a minimal, valid document.
func (g *Generator) Generate(s *PatientSummary) ([]byte, error) {
	doc := ClinicalDocument{
		RealmCode: CodeValue{Code: "US"},
		TypeID:    TypeID{Root: oidHL7RIM, Extension: "POCD_HD000040"},
		TemplateIDs: []TemplateID{
			{Root: oidUSGeneralHeader},
			{Root: oidCCDDocument},
		},
		ID: InstanceID{Root: uuid.New().String()},
		Code: Code{
			Code: "34133-9", CodeSystem: oidLOINC, CodeSystemName: "LOINC",
			DisplayName: "Summarization of Episode Note",
		},
		Title:               fmt.Sprintf("Continuity of Care Document - %s %s", s.FirstName, s.LastName),
		EffectiveTime:       TimeValue{Value: g.now().UTC().Format("20060102150405")},
		ConfidentialityCode: Code{Code: "N", CodeSystem: oidConfidentiality},
		LanguageCode:        CodeValue{Code: "en-US"},
		RecordTarget:        recordTarget(s),
		Author: Author{
			Time: TimeValue{Value: g.now().UTC().Format("20060102150405")},
			AssignedAuthor: AssignedAuthor{
				ID:             InstanceID{Root: uuid.New().String()},
				RepresentedOrg: &RepresentedOrg{Name: s.OrganizationName},
			},
		},
	}

	var sections []SectionComponent
	if len(s.Allergies) > 0 {
		sections = append(sections, allergiesSection(s.Allergies))
	}
	if len(s.Medications) > 0 {
		sections = append(sections, medicationsSection(s.Medications))
	}
	if len(s.Problems) > 0 {
		sections = append(sections, problemsSection(s.Problems))
	}
	if len(s.Labs) > 0 {
		sections = append(sections, resultsSection(s.Labs))
	}
	if len(s.Encounters) > 0 {
		sections = append(sections, encountersSection(s.Encounters))
	}
	doc.Component.StructuredBody.Components = sections

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render ccda: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func recordTarget(s *PatientSummary) RecordTarget {
	role := PatientRole{
		ID: InstanceID{Root: oidPatientIDRoot, Extension: s.PatientID},
		Patient: PatientInfo{
			Name:       Name{Given: s.FirstName, Family: s.LastName},
			GenderCode: Code{Code: genderCode(s.Gender), CodeSystem: oidGenderCodes},
		},
	}
	if s.BirthDate != nil {
		role.Patient.BirthTime = &TimeValue{Value: s.BirthDate.Format("20060102")}
	}
	if s.Street != "" || s.City != "" {
		role.Addr = &Address{
			Use:        "HP",
			StreetLine: s.Street,
			City:       s.City,
			State:      s.State,
			PostalCode: s.Zip,
		}
	}
	if s.Phone != "" {
		role.Telecom = &Telecom{Use: "HP", Value: "tel:" + s.Phone}
	}
	return RecordTarget{PatientRole: role}
}

// genderCode maps a chart gender to an HL7 administrative gender code.
// Matching ignores case; anything outside male/female is recorded as
// undifferentiated.
func genderCode(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "M"
	case "female":
		return "F"
	default:
		return "UN"
	}
}

func allergiesSection(entries []AllergyEntry) SectionComponent {
	rows := make([]Row, 0, len(entries))
	for _, a := range entries {
		rows = append(rows, Row{Cells: []string{a.Substance, a.Reaction, a.Severity}})
	}
	return SectionComponent{Section: Section{
		TemplateID: TemplateID{Root: oidAllergiesSection},
		Code: Code{
			Code: "48765-2", CodeSystem: oidLOINC, CodeSystemName: "LOINC",
			DisplayName: "Allergies and adverse reactions",
		},
		Title: "Allergies",
		Text:  tableNarrative([]string{"Substance", "Reaction", "Severity"}, rows),
	}}
}

func medicationsSection(entries []MedicationEntry) SectionComponent {
	rows := make([]Row, 0, len(entries))
	for _, m := range entries {
		rows = append(rows, Row{Cells: []string{m.Name, m.Dosage, m.Frequency}})
	}
	return SectionComponent{Section: Section{
		TemplateID: TemplateID{Root: oidMedsSection},
		Code: Code{
			Code: "10160-0", CodeSystem: oidLOINC, CodeSystemName: "LOINC",
			DisplayName: "History of medication use",
		},
		Title: "Active Medications",
		Text:  tableNarrative([]string{"Medication", "Dosage", "Frequency"}, rows),
	}}
}

func problemsSection(entries []ProblemEntry) SectionComponent {
	rows := make([]Row, 0, len(entries))
	for _, p := range entries {
		code := p.Code
		if p.CodeSystem != "" && code != "" {
			code = p.CodeSystem + ": " + code
		}
		onset := ""
		if p.Onset != nil {
			onset = p.Onset.Format("2006-01-02")
		}
		rows = append(rows, Row{Cells: []string{p.Name, code, onset}})
	}
	return SectionComponent{Section: Section{
		TemplateID: TemplateID{Root: oidProblemsSection},
		Code: Code{
			Code: "11450-4", CodeSystem: oidLOINC, CodeSystemName: "LOINC",
			DisplayName: "Problem list",
		},
		Title: "Problem List",
		Text:  tableNarrative([]string{"Condition", "Code", "Onset"}, rows),
	}}
}

func resultsSection(entries []LabEntry) SectionComponent {
	rows := make([]Row, 0, len(entries))
	for _, l := range entries {
		date := ""
		if l.Date != nil {
			date = l.Date.Format("2006-01-02")
		}
		rows = append(rows, Row{Cells: []string{l.Test, l.Result, date}})
	}
	return SectionComponent{Section: Section{
		TemplateID: TemplateID{Root: oidResultsSection},
		Code: Code{
			Code: "30954-2", CodeSystem: oidLOINC, CodeSystemName: "LOINC",
			DisplayName: "Relevant diagnostic tests and laboratory data",
		},
		Title: "Lab Results",
		Text:  tableNarrative([]string{"Test", "Result", "Date"}, rows),
	}}
}

func encountersSection(entries []EncounterNote) SectionComponent {
	paragraphs := make([]Paragraph, 0, len(entries))
	for _, e := range entries {
		contents := []string{
			e.Date.Format("2006-01-02"),
			e.Provider,
		}
		if e.Assessment != "" {
			contents = append(contents, e.Assessment)
		}
		paragraphs = append(paragraphs, Paragraph{Contents: contents})
	}
	return SectionComponent{Section: Section{
		TemplateID: TemplateID{Root: oidEncountersSection},
		Code: Code{
			Code: "46240-8", CodeSystem: oidLOINC, CodeSystemName: "LOINC",
			DisplayName: "History of encounters",
		},
		Title: "Recent Encounters",
		Text:  Narrative{Paragraphs: paragraphs},
	}}
}

func tableNarrative(headers []string, rows []Row) Narrative {
	return Narrative{Table: &Table{
		Border: "1",
		Width:  "100%",
		Head:   Row{Headers: headers},
		Body:   rows,
	}}
}
