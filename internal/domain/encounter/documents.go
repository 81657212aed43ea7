package encounter

import (
	"context"

	"github.com/google/uuid"

	"github.com/chartstack/chartstack/internal/platform/cms1500"
	"github.com/chartstack/chartstack/internal/platform/superbill"
)

// SuperbillData assembles the receipt for a visit. The patient's last name
// is returned separately for the download filename.
func (s *Service) SuperbillData(ctx context.Context, orgID, encounterID uuid.UUID) (*superbill.Data, string, error) {
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return nil, "", err
	}
	pat, err := s.patients.Get(ctx, orgID, e.PatientID)
	if err != nil {
		return nil, "", err
	}
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, "", err
	}
	prov, err := s.orgs.GetProvider(ctx, orgID, e.ProviderID)
	if err != nil {
		return nil, "", err
	}

	data := &superbill.Data{
		VisitDate:         e.VisitDate,
		OrganizationName:  org.Name,
		ProviderName:      prov.FullName(),
		ProviderNPI:       prov.NPI,
		ProviderSpecialty: prov.Specialty,
		ProviderLicense:   prov.LicenseNumber,
		PatientName:       pat.FullName(),
		PatientBirthDate:  pat.BirthDate,
		PatientStreet:     pat.Street,
		PatientCityState:  pat.CityState(),
	}

	diags, err := s.repo.ListDiagnoses(ctx, encounterID)
	if err != nil {
		return nil, "", err
	}
	for _, d := range diags {
		data.Diagnoses = append(data.Diagnoses, superbill.DiagnosisRow{
			System:      "ICD-10",
			Code:        d.ICDCode,
			Description: d.Description,
		})
	}

	items, err := s.repo.ListLineItems(ctx, encounterID)
	if err != nil {
		return nil, "", err
	}
	for _, li := range items {
		data.Lines = append(data.Lines, superbill.ProcedureRow{
			Code:        li.Code,
			Description: li.Description,
			Fee:         li.TotalCharge(),
		})
		data.Total += li.TotalCharge()
	}
	return data, pat.LastName, nil
}

// ClaimData assembles the CMS-1500 form for a visit.
func (s *Service) ClaimData(ctx context.Context, orgID, encounterID uuid.UUID) (*cms1500.ClaimData, error) {
	e, err := s.repo.GetByID(ctx, orgID, encounterID)
	if err != nil {
		return nil, err
	}
	pat, err := s.patients.Get(ctx, orgID, e.PatientID)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	prov, err := s.orgs.GetProvider(ctx, orgID, e.ProviderID)
	if err != nil {
		return nil, err
	}

	data := &cms1500.ClaimData{
		EncounterID:          e.ID,
		VisitDate:            e.VisitDate,
		PatientFirstName:     pat.FirstName,
		PatientLastName:      pat.LastName,
		PatientMiddleInitial: pat.MiddleInitial,
		PatientBirthDate:     pat.BirthDate,
		PatientStreet:        pat.Street,
		PatientCity:          pat.City,
		PatientState:         pat.State,
		PatientZip:           pat.Zip,
		RenderingNPI:         prov.NPI,
		BillingName:          org.Name,
		BillingStreet:        org.Street,
		BillingCityStateZip:  org.CityStateZip(),
		BillingNPI:           org.NPI,
	}

	diags, err := s.repo.ListDiagnoses(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	for _, d := range diags {
		data.DiagnosisCodes = append(data.DiagnosisCodes, d.ICDCode)
	}

	items, err := s.repo.ListLineItems(ctx, encounterID)
	if err != nil {
		return nil, err
	}
	for _, li := range items {
		data.Lines = append(data.Lines, cms1500.ServiceLine{
			Code:      li.Code,
			Modifiers: li.ModifierList(),
			Charge:    li.TotalCharge(),
			Units:     li.Units,
		})
	}
	return data, nil
}
