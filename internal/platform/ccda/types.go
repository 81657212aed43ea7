// Package ccda generates Continuity of Care Documents (C-CDA R2.1) from
// patient chart data.
package ccda

import (
	"encoding/xml"
	"time"
)

// ClinicalDocument is the root element of a C-CDA document.
type ClinicalDocument struct {
	XMLName             xml.Name     `xml:"urn:hl7-org:v3 ClinicalDocument"`
	RealmCode           CodeValue    `xml:"realmCode"`
	TypeID              TypeID       `xml:"typeId"`
	TemplateIDs         []TemplateID `xml:"templateId"`
	ID                  InstanceID   `xml:"id"`
	Code                Code         `xml:"code"`
	Title               string       `xml:"title"`
	EffectiveTime       TimeValue    `xml:"effectiveTime"`
	ConfidentialityCode Code         `xml:"confidentialityCode"`
	LanguageCode        CodeValue    `xml:"languageCode"`
	RecordTarget        RecordTarget `xml:"recordTarget"`
	Author              Author       `xml:"author"`
	Component           Component    `xml:"component"`
}

type CodeValue struct {
	Code string `xml:"code,attr"`
}

type TypeID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr"`
}

type TemplateID struct {
	Root string `xml:"root,attr"`
}

type InstanceID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

type Code struct {
	Code           string `xml:"code,attr,omitempty"`
	CodeSystem     string `xml:"codeSystem,attr,omitempty"`
	CodeSystemName string `xml:"codeSystemName,attr,omitempty"`
	DisplayName    string `xml:"displayName,attr,omitempty"`
}

type TimeValue struct {
	Value string `xml:"value,attr"`
}

type RecordTarget struct {
	PatientRole PatientRole `xml:"patientRole"`
}

type PatientRole struct {
	ID      InstanceID  `xml:"id"`
	Addr    *Address    `xml:"addr,omitempty"`
	Telecom *Telecom    `xml:"telecom,omitempty"`
	Patient PatientInfo `xml:"patient"`
}

type Address struct {
	Use        string `xml:"use,attr,omitempty"`
	StreetLine string `xml:"streetAddressLine,omitempty"`
	City       string `xml:"city,omitempty"`
	State      string `xml:"state,omitempty"`
	PostalCode string `xml:"postalCode,omitempty"`
}

type Telecom struct {
	Use   string `xml:"use,attr,omitempty"`
	Value string `xml:"value,attr"`
}

type PatientInfo struct {
	Name       Name       `xml:"name"`
	GenderCode Code       `xml:"administrativeGenderCode"`
	BirthTime  *TimeValue `xml:"birthTime,omitempty"`
}

type Name struct {
	Given  string `xml:"given"`
	Family string `xml:"family"`
}

type Author struct {
	Time           TimeValue      `xml:"time"`
	AssignedAuthor AssignedAuthor `xml:"assignedAuthor"`
}

type AssignedAuthor struct {
	ID             InstanceID      `xml:"id"`
	RepresentedOrg *RepresentedOrg `xml:"representedOrganization,omitempty"`
}

type RepresentedOrg struct {
	Name string `xml:"name"`
}

type Component struct {
	StructuredBody StructuredBody `xml:"structuredBody"`
}

type StructuredBody struct {
	Components []SectionComponent `xml:"component"`
}

type SectionComponent struct {
	Section Section `xml:"section"`
}

type Section struct {
	TemplateID TemplateID `xml:"templateId"`
	Code       Code       `xml:"code"`
	Title      string     `xml:"title"`
	Text       Narrative  `xml:"text"`
}

// Narrative is the human-readable body of a section: either a table or a
// list of paragraphs.
type Narrative struct {
	Table      *Table      `xml:"table,omitempty"`
	Paragraphs []Paragraph `xml:"paragraph,omitempty"`
}

type Table struct {
	Border string `xml:"border,attr"`
	Width  string `xml:"width,attr"`
	Head   Row    `xml:"thead>tr"`
	Body   []Row  `xml:"tbody>tr"`
}

type Row struct {
	Headers []string `xml:"th,omitempty"`
	Cells   []string `xml:"td,omitempty"`
}

type Paragraph struct {
	Contents []string `xml:"content"`
}

// PatientSummary is the chart data a CCD is generated from. Collection
// fields left empty suppress their section entirely.
type PatientSummary struct {
	PatientID        string
	FirstName        string
	LastName         string
	Gender           string
	BirthDate        *time.Time
	Phone            string
	Street           string
	City             string
	State            string
	Zip              string
	OrganizationName string

	Allergies   []AllergyEntry
	Medications []MedicationEntry
	Problems    []ProblemEntry
	Labs        []LabEntry
	Encounters  []EncounterNote
}

type AllergyEntry struct {
	Substance string
	Reaction  string
	Severity  string
}

type MedicationEntry struct {
	Name      string
	Dosage    string
	Frequency string
}

type ProblemEntry struct {
	Name       string
	Code       string
	CodeSystem string
	Onset      *time.Time
}

type LabEntry struct {
	Test   string
	Result string
	Date   *time.Time
}

// EncounterNote is one visit in the recent-encounters narrative.
type EncounterNote struct {
	Date       time.Time
	Provider   string
	Assessment string
}
