package matching

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unipath/unipath-api/internal/models"
)

// ModelVersion tags every persisted match with the scoring revision that produced it.
const ModelVersion = "1.0.0"

// Weights distributes the five compatibility factors. Treated as immutable
// configuration; callers inject overrides instead of mutating DefaultWeights.
type Weights struct {
	AcademicFit float64
	Location    float64
	Budget      float64
	Program     float64
	Admission   float64
}

// DefaultWeights is the production weight table.
var DefaultWeights = Weights{
	AcademicFit: 0.30,
	Location:    0.20,
	Budget:      0.25,
	Program:     0.15,
	Admission:   0.10,
}

const (
	// neutralScore is used whenever a factor's inputs are missing on either
	// side. Absent data must not read as a measured extreme.
	neutralScore = 0.5

	// openLocationScore applies when the student states no destination
	// preference and is treated as open to any country.
	openLocationScore = 0.6
)

// Result carries the final score alongside its explanation.
type Result struct {
	Score     float64
	Reasoning models.MatchReasoning
}

// Engine computes student/university compatibility. Pure and deterministic:
// no I/O, no mutation of its inputs.
type Engine struct {
	weights Weights
}

// NewEngine builds an engine with the provided weights, falling back to
// DefaultWeights when all weights are zero.
func NewEngine(weights Weights) *Engine {
	if weights.AcademicFit == 0 && weights.Location == 0 && weights.Budget == 0 && weights.Program == 0 && weights.Admission == 0 {
		weights = DefaultWeights
	}
	return &Engine{weights: weights}
}

// Score blends five sub-scores, each in [0,1], into a weighted compatibility
// score. No computed sub-score is ever exactly zero: a plausible-but-imperfect
// match is never flatly excluded here, filtering belongs to consumers.
func (e *Engine) Score(profile *models.StudentProfile, university *models.University) Result {
	factors := make([]string, 0, 5)

	academic, academicFactors := academicFit(profile, university)
	factors = append(factors, academicFactors...)

	location, locationFactors := locationFit(profile, university)
	factors = append(factors, locationFactors...)

	budget, budgetFactors := budgetFit(profile, university)
	factors = append(factors, budgetFactors...)

	program, programFactors := programFit(profile, university)
	factors = append(factors, programFactors...)

	admission, admissionFactors := admissionFit(university)
	factors = append(factors, admissionFactors...)

	contributions := []struct {
		name   string
		weight float64
		value  float64
	}{
		{"academic fit", e.weights.AcademicFit, academic},
		{"location preference", e.weights.Location, location},
		{"budget compatibility", e.weights.Budget, budget},
		{"program alignment", e.weights.Program, program},
		{"admission chances", e.weights.Admission, admission},
	}

	total := 0.0
	strongest := contributions[0]
	for _, c := range contributions {
		weighted := c.weight * c.value
		total += weighted
		if weighted > strongest.weight*strongest.value {
			strongest = c
		}
	}
	total = clamp(total, 0, 1)

	return Result{
		Score: total,
		Reasoning: models.MatchReasoning{
			Factors: factors,
			Weights: map[string]float64{
				"academicFit": e.weights.AcademicFit,
				"location":    e.weights.Location,
				"budget":      e.weights.Budget,
				"program":     e.weights.Program,
				"admission":   e.weights.Admission,
			},
			Details: fmt.Sprintf("Strongest compatibility driver is %s with an overall match of %.0f%%.", strongest.name, total*100),
		},
	}
}

// academicFit compares the student's GPA, and optionally IELTS, against the
// university's admission thresholds. A near-miss stays above a floor rather
// than dropping to zero.
func academicFit(profile *models.StudentProfile, university *models.University) (float64, []string) {
	reqs := university.Requirements()
	if reqs == nil {
		return neutralScore, nil
	}

	var factors []string
	minGPA := coerceFloat(reqs.MinimumGPA)

	gpaScore := -1.0
	if profile.GPA != nil && minGPA != nil && *minGPA > 0 {
		if *profile.GPA >= *minGPA {
			headroom := (*profile.GPA - *minGPA) / 1.0
			gpaScore = clamp(0.9+0.1*headroom, 0.9, 1.0)
			factors = append(factors, "Strong academic profile match")
		} else {
			gpaScore = clamp(0.75*(*profile.GPA / *minGPA), 0.2, 0.89)
		}
	}

	ieltsScore := -1.0
	minIELTS := coerceFloat(reqs.IELTSScore)
	if scores := profile.Scores(); scores != nil && scores.IELTS != nil && minIELTS != nil && *minIELTS > 0 {
		if *scores.IELTS >= *minIELTS {
			headroom := (*scores.IELTS - *minIELTS) / 1.0
			ieltsScore = clamp(0.9+0.1*headroom, 0.9, 1.0)
			factors = append(factors, "Meets English proficiency requirement")
		} else {
			ieltsScore = clamp(0.75*(*scores.IELTS / *minIELTS), 0.2, 0.89)
		}
	}

	switch {
	case gpaScore >= 0 && ieltsScore >= 0:
		return 0.7*gpaScore + 0.3*ieltsScore, factors
	case gpaScore >= 0:
		return gpaScore, factors
	case ieltsScore >= 0:
		return ieltsScore, factors
	default:
		return neutralScore, nil
	}
}

// locationFit rewards an exact country match and keeps cross-border interest
// above zero. No stated preference reads as open to any location.
func locationFit(profile *models.StudentProfile, university *models.University) (float64, []string) {
	if profile.DestinationCountry == nil || strings.TrimSpace(*profile.DestinationCountry) == "" {
		return openLocationScore, nil
	}
	if strings.EqualFold(strings.TrimSpace(*profile.DestinationCountry), strings.TrimSpace(university.Country)) {
		return 1.0, []string{"Perfect location match"}
	}
	return 0.35, nil
}

// budgetFit measures how much of the international tuition range falls inside
// the student's declared budget.
func budgetFit(profile *models.StudentProfile, university *models.University) (float64, []string) {
	budget := profile.Budget()
	fees := university.Tuition()
	if budget == nil || budget.Max == nil || fees == nil || fees.International == nil {
		return neutralScore, nil
	}

	tuition := fees.International
	tuitionMin, tuitionMax, ok := resolveRange(tuition)
	if !ok {
		return neutralScore, nil
	}

	budgetMin := 0.0
	if budget.Min != nil {
		budgetMin = *budget.Min
	}
	budgetMax := *budget.Max

	if tuitionMin > budgetMax {
		return 0.2, nil
	}
	if tuitionMin >= budgetMin && tuitionMax <= budgetMax {
		return 1.0, []string{"Within declared budget"}
	}

	overlap := minFloat(tuitionMax, budgetMax) - maxFloat(tuitionMin, budgetMin)
	span := tuitionMax - tuitionMin
	if span <= 0 || overlap <= 0 {
		return 0.4, nil
	}
	fraction := clamp(overlap/span, 0, 1)
	score := 0.4 + 0.55*fraction
	if fraction >= 0.5 {
		return score, []string{"Mostly within declared budget"}
	}
	return score, nil
}

// programFit token-matches the desired major against the comma-delimited
// specialization list.
func programFit(profile *models.StudentProfile, university *models.University) (float64, []string) {
	if profile.DesiredMajor == nil || strings.TrimSpace(*profile.DesiredMajor) == "" || strings.TrimSpace(university.Specialization) == "" {
		return neutralScore, nil
	}

	major := strings.ToLower(strings.TrimSpace(*profile.DesiredMajor))
	for _, raw := range strings.Split(university.Specialization, ",") {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}
		lowered := strings.ToLower(field)
		if strings.Contains(lowered, major) || strings.Contains(major, lowered) {
			return 0.95, []string{fmt.Sprintf("Program alignment with %s", field)}
		}
	}
	return 0.3, nil
}

// admissionFit favors easier admission monotonically: a higher acceptance
// rate de-risks the application.
func admissionFit(university *models.University) (float64, []string) {
	rate := parseAcceptanceRate(university.AcceptanceRate)
	if rate == nil {
		return neutralScore, nil
	}
	score := 0.4 + 0.6*(*rate)
	if *rate >= 0.5 {
		return score, []string{"Favorable admission odds"}
	}
	return score, nil
}

// parseAcceptanceRate tolerates both "30%" and bare numbers. Values above 1
// are read as percentages; values at or below 1 as already normalized.
func parseAcceptanceRate(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(*raw), "%"))
	if trimmed == "" {
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || value < 0 {
		return nil
	}
	if value > 1 {
		value = value / 100
	}
	if value > 1 {
		value = 1
	}
	rate := value
	return &rate
}

// coerceFloat extracts a numeric threshold that upstream data may store as a
// JSON number or a string.
func coerceFloat(value interface{}) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		out := v
		return &out
	case float32:
		out := float64(v)
		return &out
	case int:
		out := float64(v)
		return &out
	case int64:
		out := float64(v)
		return &out
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}

// FormatScore renders a score with the legacy two-decimal encoding used at
// the persistence boundary.
func FormatScore(score float64) string {
	return strconv.FormatFloat(clamp(score, 0, 1), 'f', 2, 64)
}

func resolveRange(r *models.MoneyRange) (float64, float64, bool) {
	switch {
	case r.Min != nil && r.Max != nil:
		return *r.Min, *r.Max, *r.Min <= *r.Max
	case r.Min != nil:
		return *r.Min, *r.Min, true
	case r.Max != nil:
		return *r.Max, *r.Max, true
	default:
		return 0, 0, false
	}
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
