package services

import (
	"context"
	"errors"
	"time"

	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/metrics"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// CompanyLookup resolves the subject of an analysis. It returns
// repository.ErrNotFound for unknown ids.
type CompanyLookup interface {
	FindByID(ctx context.Context, id uint) (*models.Company, error)
}

// HistoryStore reads audit records newest first.
type HistoryStore interface {
	ListByCompany(ctx context.Context, companyID uint) ([]models.ESGAnalysis, error)
	ListStable(ctx context.Context, companyID uint) ([]models.ESGAnalysisStable, error)
}

// AnalysisResponse is returned to the caller whether or not the audit write
// succeeded; Persisted tells which.
type AnalysisResponse struct {
	Company              string         `json:"company"`
	ESGScore             int            `json:"esgScore"`
	RiskLevel            string         `json:"riskLevel"`
	OverallAssessment    map[string]any `json:"overallAssessment"`
	PillarAssessment     any            `json:"pillarAssessment"`
	KeyIncidents         any            `json:"keyIncidents"`
	GovernanceAssessment any            `json:"governanceAssessment"`
	AnalystSummary       string         `json:"analystSummary"`
	Timestamp            time.Time      `json:"timestamp"`
	Persisted            bool           `json:"persisted"`
}

// AnalysisRecordView is one history row.
type AnalysisRecordView struct {
	AnalysisID      uint           `json:"analysisId"`
	CompanyID       uint           `json:"companyId"`
	CompanyName     string         `json:"companyName"`
	ESGScore        int            `json:"esgScore"`
	RiskLevel       string         `json:"riskLevel"`
	AnalystSummary  string         `json:"analystSummary"`
	AnalysisPayload map[string]any `json:"analysisPayload"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ESGAnalysisService runs one analysis end to end and serves the audit
// history for a company.
type ESGAnalysisService struct {
	companies CompanyLookup
	client    RemoteAnalyzer
	validator *ResponseValidator
	guard     *PersistenceGuard
	history   HistoryStore
	metrics   *metrics.Metrics
}

var errNoAIClient = errors.New("no AI client configured")

// NewESGAnalysisService wires the pipeline. A nil client makes Analyze
// report the AI service as unavailable.
func NewESGAnalysisService(
	companies CompanyLookup,
	client RemoteAnalyzer,
	validator *ResponseValidator,
	guard *PersistenceGuard,
	history HistoryStore,
	m *metrics.Metrics,
) *ESGAnalysisService {
	return &ESGAnalysisService{
		companies: companies,
		client:    client,
		validator: validator,
		guard:     guard,
		history:   history,
		metrics:   m,
	}
}

// Analyze looks up the company, calls the AI service, validates the answer
// and records it. Remote and validation failures come back unchanged as
// *AnalysisError; an audit write failure does not fail the call.
func (s *ESGAnalysisService) Analyze(ctx context.Context, companyID uint, text string) (*AnalysisResponse, error) {
	company, err := s.findCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	log := logger.WithCompany(company.ID, company.Name)

	if s.client == nil {
		log.Error("No AI client configured")
		return nil, &AnalysisError{Kind: KindRemoteUnavailable, Message: msgUnavailable, Err: errNoAIClient}
	}

	raw, err := s.client.AnalyzeText(ctx, text)
	if err != nil {
		log.WithField("kind", KindOf(err)).Warn("ESG analysis failed at AI service")
		return nil, err
	}

	result, err := s.validator.Validate(raw)
	if err != nil {
		var ae *AnalysisError
		if errors.As(err, &ae) {
			log.WithFields(logrus.Fields{"field": ae.Field, "reason": errString(ae.Err)}).Warn("AI response rejected")
		}
		return nil, err
	}

	draft := &models.ESGAnalysis{
		CompanyID:       company.ID,
		NewsText:        text,
		ESGScore:        result.ESGScore,
		RiskLevel:       result.RiskLevel,
		AnalystSummary:  result.AnalystSummary,
		AnalysisPayload: copyPayload(result.Raw),
	}
	saved, ts := s.guard.Persist(ctx, draft)

	log.WithFields(logrus.Fields{
		"esg_score":  result.ESGScore,
		"risk_level": result.RiskLevel,
		"persisted":  saved,
	}).Info("ESG analysis completed")

	return &AnalysisResponse{
		Company:              company.Name,
		ESGScore:             result.ESGScore,
		RiskLevel:            result.RiskLevel,
		OverallAssessment:    result.OverallAssessment,
		PillarAssessment:     result.PillarAssessment(),
		KeyIncidents:         result.KeyIncidents(),
		GovernanceAssessment: result.GovernanceAssessment(),
		AnalystSummary:       result.AnalystSummary,
		Timestamp:            ts,
		Persisted:            saved,
	}, nil
}

// History lists the company's audit records, newest first. When the payload
// column is missing or unreadable the stable columns are served with empty
// payloads.
func (s *ESGAnalysisService) History(ctx context.Context, companyID uint) ([]AnalysisRecordView, error) {
	company, err := s.findCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if s.guard.PayloadEnabled() {
		records, err := s.history.ListByCompany(ctx, companyID)
		if err == nil {
			return fullViews(company, records), nil
		}
		logger.WithError(err, "esg_history").
			WithField("company_id", companyID).
			Warn("Full history query failed, falling back to stable columns")
	}

	s.metrics.RecordHistoryFallback()
	rows, err := s.history.ListStable(ctx, companyID)
	if err != nil {
		return nil, eris.Wrapf(err, "history for company %d", companyID)
	}
	return stableViews(company, rows), nil
}

func (s *ESGAnalysisService) findCompany(ctx context.Context, id uint) (*models.Company, error) {
	company, err := s.companies.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, subjectNotFound(err)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "lookup company %d", id)
	}
	return company, nil
}

// copyPayload deep-copies the raw response so the audit record shares no
// nested maps or slices with the API response.
func copyPayload(raw map[string]any) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(raw))
	for k, v := range raw {
		out[k] = copyJSONValue(v)
	}
	return out
}

func copyJSONValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = copyJSONValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = copyJSONValue(e)
		}
		return s
	default:
		return v
	}
}

func fullViews(company *models.Company, records []models.ESGAnalysis) []AnalysisRecordView {
	views := make([]AnalysisRecordView, 0, len(records))
	for _, r := range records {
		payload := map[string]any(r.AnalysisPayload)
		if payload == nil {
			payload = map[string]any{}
		}
		views = append(views, AnalysisRecordView{
			AnalysisID:      r.ID,
			CompanyID:       r.CompanyID,
			CompanyName:     company.Name,
			ESGScore:        r.ESGScore,
			RiskLevel:       r.RiskLevel,
			AnalystSummary:  r.AnalystSummary,
			AnalysisPayload: payload,
			Timestamp:       r.CreatedAt,
		})
	}
	return views
}

func stableViews(company *models.Company, rows []models.ESGAnalysisStable) []AnalysisRecordView {
	views := make([]AnalysisRecordView, 0, len(rows))
	for _, r := range rows {
		views = append(views, AnalysisRecordView{
			AnalysisID:      r.ID,
			CompanyID:       r.CompanyID,
			CompanyName:     company.Name,
			ESGScore:        r.ESGScore,
			RiskLevel:       r.RiskLevel,
			AnalystSummary:  r.AnalystSummary,
			AnalysisPayload: map[string]any{},
			Timestamp:       r.CreatedAt,
		})
	}
	return views
}
