package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// BudgetRange bounds what a student can spend per year, in USD.
type BudgetRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// TestScores aggregates standardized test results. All entries are optional.
type TestScores struct {
	IELTS *float64 `json:"ielts,omitempty"`
	TOEFL *float64 `json:"toefl,omitempty"`
	SAT   *float64 `json:"sat,omitempty"`
	ACT   *float64 `json:"act,omitempty"`
	GRE   *float64 `json:"gre,omitempty"`
	GMAT  *float64 `json:"gmat,omitempty"`
}

// StudentProfile captures the academic background a student shares for counseling.
type StudentProfile struct {
	ID                 string         `db:"id" json:"id"`
	UserID             string         `db:"user_id" json:"user_id"`
	AcademicLevel      string         `db:"academic_level" json:"academic_level"`
	GPA                *float64       `db:"gpa" json:"gpa,omitempty"`
	DesiredMajor       *string        `db:"desired_major" json:"desired_major,omitempty"`
	DestinationCountry *string        `db:"destination_country" json:"destination_country,omitempty"`
	BudgetRange        types.JSONText `db:"budget_range" json:"budget_range,omitempty"`
	TestScores         types.JSONText `db:"test_scores" json:"test_scores,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Budget decodes the stored budget range. Returns nil when absent or malformed.
func (p *StudentProfile) Budget() *BudgetRange {
	if len(p.BudgetRange) == 0 {
		return nil
	}
	var budget BudgetRange
	if err := json.Unmarshal(p.BudgetRange, &budget); err != nil {
		return nil
	}
	if budget.Min == nil && budget.Max == nil {
		return nil
	}
	return &budget
}

// Scores decodes the stored test scores. Returns nil when absent or malformed.
func (p *StudentProfile) Scores() *TestScores {
	if len(p.TestScores) == 0 {
		return nil
	}
	var scores TestScores
	if err := json.Unmarshal(p.TestScores, &scores); err != nil {
		return nil
	}
	return &scores
}
