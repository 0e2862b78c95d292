package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrMissingOverallAssessment = errors.New("missing overallAssessment")
	ErrMissingESGScore          = errors.New("missing overallAssessment.esgScore")
	ErrInvalidESGScore          = errors.New("overallAssessment.esgScore must be an integer between 0 and 100")
	ErrMissingRiskLevel         = errors.New("missing overallAssessment.riskLevel")
	ErrInvalidRiskLevel         = errors.New("overallAssessment.riskLevel must be LOW, MEDIUM or HIGH")
)

const (
	minESGScore = 0
	maxESGScore = 100
)

var riskLevels = map[string]struct{}{
	"LOW":    {},
	"MEDIUM": {},
	"HIGH":   {},
}

// ValidatedResult is the control data extracted from a remote payload plus
// the untouched payload itself.
type ValidatedResult struct {
	ESGScore          int
	RiskLevel         string
	AnalystSummary    string
	OverallAssessment map[string]any
	Raw               map[string]any
}

// PillarAssessment, KeyIncidents and GovernanceAssessment are audit payload
// and are returned as received.
func (v *ValidatedResult) PillarAssessment() any     { return v.Raw["pillarAssessment"] }
func (v *ValidatedResult) KeyIncidents() any         { return v.Raw["keyIncidents"] }
func (v *ValidatedResult) GovernanceAssessment() any { return v.Raw["governanceAssessment"] }

// ResponseValidator checks the fields downstream code depends on. It never
// substitutes defaults.
type ResponseValidator struct{}

func NewResponseValidator() *ResponseValidator {
	return &ResponseValidator{}
}

// Validate reports the first missing or invalid field as a
// KindMalformedResponse error wrapping one of the ErrMissing*/ErrInvalid*
// sentinels.
func (ResponseValidator) Validate(raw map[string]any) (*ValidatedResult, error) {
	overall, ok := raw["overallAssessment"].(map[string]any)
	if !ok {
		return nil, malformed("overallAssessment", ErrMissingOverallAssessment)
	}

	score, err := extractScore(overall["esgScore"])
	if err != nil {
		return nil, malformed("overallAssessment.esgScore", err)
	}

	risk, err := extractRiskLevel(overall["riskLevel"])
	if err != nil {
		return nil, malformed("overallAssessment.riskLevel", err)
	}

	summary, _ := raw["analystSummary"].(string)

	return &ValidatedResult{
		ESGScore:          score,
		RiskLevel:         risk,
		AnalystSummary:    summary,
		OverallAssessment: overall,
		Raw:               raw,
	}, nil
}

func extractScore(v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, ErrMissingESGScore
	case json.Number:
		if i, err := n.Int64(); err == nil {
			f = float64(i)
			break
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidESGScore, n.String())
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("%w: got %T", ErrInvalidESGScore, v)
	}

	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not integral", ErrInvalidESGScore, f)
	}
	if f < minESGScore || f > maxESGScore {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidESGScore, f)
	}
	return int(f), nil
}

func extractRiskLevel(v any) (string, error) {
	if v == nil {
		return "", ErrMissingRiskLevel
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: got %T", ErrInvalidRiskLevel, v)
	}
	if strings.TrimSpace(s) == "" {
		return "", ErrMissingRiskLevel
	}
	if _, ok := riskLevels[strings.ToUpper(strings.TrimSpace(s))]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRiskLevel, s)
	}
	return s, nil
}

func malformed(field string, err error) *AnalysisError {
	return &AnalysisError{
		Kind:    KindMalformedResponse,
		Field:   field,
		Message: msgIncompleteShape,
		Err:     err,
	}
}
