package repository

import (
	"context"

	"github.com/pulseesg/backend/internal/models"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

const fullHistoryColumns = "id, company_id, news_text, esg_score, risk_level, analyst_summary, analysis_payload, created_at"

const stableHistoryColumns = "id, company_id, esg_score, risk_level, analyst_summary, created_at"

// AnalysisRepository stores ESG audit records.
type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// HasPayloadColumn probes the audit table for the optional payload column.
func (r *AnalysisRepository) HasPayloadColumn(ctx context.Context) bool {
	return r.db.WithContext(ctx).Migrator().HasColumn(&models.ESGAnalysis{}, models.PayloadColumn)
}

// Save inserts rec. A nil payload leaves the payload column out of the
// statement entirely so tables without it still accept the row.
func (r *AnalysisRepository) Save(ctx context.Context, rec *models.ESGAnalysis) error {
	tx := r.db.WithContext(ctx)
	if rec.AnalysisPayload == nil {
		tx = tx.Omit(models.PayloadColumn, "Company")
	} else {
		tx = tx.Omit("Company")
	}

	if err := tx.Create(rec).Error; err != nil {
		if isPayloadColumnError(err) {
			return eris.Wrap(ErrPayloadColumnUnavailable, err.Error())
		}
		return eris.Wrapf(err, "save analysis for company %d", rec.CompanyID)
	}
	return nil
}

// ListByCompany returns every record for companyID, newest first, including
// the payload column.
func (r *AnalysisRepository) ListByCompany(ctx context.Context, companyID uint) ([]models.ESGAnalysis, error) {
	var out []models.ESGAnalysis
	err := r.db.WithContext(ctx).
		Select(fullHistoryColumns).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		if isPayloadColumnError(err) {
			return nil, eris.Wrap(ErrPayloadColumnUnavailable, err.Error())
		}
		return nil, eris.Wrapf(err, "list analyses for company %d", companyID)
	}
	return out, nil
}

// ListStable reads only the columns every deployment of the audit table has.
func (r *AnalysisRepository) ListStable(ctx context.Context, companyID uint) ([]models.ESGAnalysisStable, error) {
	var out []models.ESGAnalysisStable
	err := r.db.WithContext(ctx).
		Select(stableHistoryColumns).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	if err != nil {
		return nil, eris.Wrapf(err, "list stable analyses for company %d", companyID)
	}
	return out, nil
}
