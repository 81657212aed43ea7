package organization

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant practice. Every clinical record hangs off an
// organization, and billing artifacts render its name, address and group NPI.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Phone     string    `json:"phone"`
	NPI       string    `json:"npi"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CityStateZip renders the second address line used on billing documents.
func (o *Organization) CityStateZip() string {
	return fmt.Sprintf("%s, %s %s", o.City, o.State, o.Zip)
}

// Provider is a clinician belonging to an organization.
type Provider struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	NPI            string    `json:"npi"`
	LicenseNumber  string    `json:"license_number"`
	Specialty      string    `json:"specialty"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName returns the display name used on clinical documents.
func (p *Provider) FullName() string {
	return "Dr. " + p.LastName
}
