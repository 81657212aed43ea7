package procedure

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Procedure is a billable service in an organization's fee schedule. The
// (organization_id, code) pair is unique; price is the practice's standard
// charge for the code.
type Procedure struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName is the search-result label: "99213 - Office Visit ($125.00)".
func (p *Procedure) DisplayName() string {
	return fmt.Sprintf("%s - %s ($%.2f)", p.Code, p.Name, p.Price)
}

// CptCode is a row of the shared CPT reference table used to name
// auto-created procedures and to back typeahead search.
type CptCode struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
}
