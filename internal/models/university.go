package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// MoneyRange is a min/max amount in USD. Either bound may be absent.
type MoneyRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// TuitionFees breaks tuition down by student origin.
type TuitionFees struct {
	International *MoneyRange `json:"international,omitempty"`
	Domestic      *MoneyRange `json:"domestic,omitempty"`
}

// AdmissionRequirements mirrors the loosely typed admin-entered thresholds.
// Upstream data stores these as either strings or numbers, so both fields stay
// untyped until the scoring engine coerces them.
type AdmissionRequirements struct {
	MinimumGPA interface{} `json:"minimumGPA,omitempty"`
	IELTSScore interface{} `json:"ieltsScore,omitempty"`
}

// University is a catalog entry managed by admin tooling.
type University struct {
	ID                    string         `db:"id" json:"id"`
	Name                  string         `db:"name" json:"name"`
	Country               string         `db:"country" json:"country"`
	Specialization        string         `db:"specialization" json:"specialization"`
	TuitionFees           types.JSONText `db:"tuition_fees" json:"tuition_fees,omitempty"`
	AcceptanceRate        *string        `db:"acceptance_rate" json:"acceptance_rate,omitempty"`
	AdmissionRequirements types.JSONText `db:"admission_requirements" json:"admission_requirements,omitempty"`
	WorldRanking          *int           `db:"world_ranking" json:"world_ranking,omitempty"`
	Active                bool           `db:"active" json:"active"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// Tuition decodes the stored tuition fees. Returns nil when absent or malformed.
func (u *University) Tuition() *TuitionFees {
	if len(u.TuitionFees) == 0 {
		return nil
	}
	var fees TuitionFees
	if err := json.Unmarshal(u.TuitionFees, &fees); err != nil {
		return nil
	}
	if fees.International == nil && fees.Domestic == nil {
		return nil
	}
	return &fees
}

// Requirements decodes admission thresholds. Returns nil when absent or malformed.
func (u *University) Requirements() *AdmissionRequirements {
	if len(u.AdmissionRequirements) == 0 {
		return nil
	}
	var reqs AdmissionRequirements
	if err := json.Unmarshal(u.AdmissionRequirements, &reqs); err != nil {
		return nil
	}
	if reqs.MinimumGPA == nil && reqs.IELTSScore == nil {
		return nil
	}
	return &reqs
}

// UniversityFilter encapsulates allowed search parameters for listing the catalog.
type UniversityFilter struct {
	Search    string
	Country   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
