package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// MatchReasoning explains how a compatibility score was assembled.
type MatchReasoning struct {
	Factors []string           `json:"factors"`
	Weights map[string]float64 `json:"weights"`
	Details string             `json:"details"`
}

// MatchResult is a persisted (student, university) compatibility score.
// MatchScore keeps the legacy two-decimal string encoding ("0.00".."1.00");
// the fixed width makes lexicographic and numeric order agree.
type MatchResult struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"user_id"`
	UniversityID string         `db:"university_id" json:"university_id"`
	MatchScore   string         `db:"match_score" json:"match_score"`
	Reasoning    types.JSONText `db:"reasoning" json:"reasoning"`
	ModelVersion string         `db:"model_version" json:"model_version"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Score parses the persisted decimal string. Returns 0 on a malformed value.
func (m *MatchResult) Score() float64 {
	score, err := strconv.ParseFloat(m.MatchScore, 64)
	if err != nil {
		return 0
	}
	return score
}

// ParsedReasoning decodes the reasoning payload. Returns nil when malformed.
func (m *MatchResult) ParsedReasoning() *MatchReasoning {
	if len(m.Reasoning) == 0 {
		return nil
	}
	var reasoning MatchReasoning
	if err := json.Unmarshal(m.Reasoning, &reasoning); err != nil {
		return nil
	}
	return &reasoning
}

// MatchDetail joins a match with display fields from the university catalog.
type MatchDetail struct {
	MatchResult
	UniversityName    string `db:"university_name" json:"university_name"`
	UniversityCountry string `db:"university_country" json:"university_country"`
}
