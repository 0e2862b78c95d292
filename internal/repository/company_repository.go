package repository

import (
	"context"
	"errors"

	"github.com/pulseesg/backend/internal/models"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// FindByID returns ErrNotFound when no company has the given id.
func (r *CompanyRepository) FindByID(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	err := r.db.WithContext(ctx).First(&company, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "find company %d", id)
	}
	return &company, nil
}

func (r *CompanyRepository) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&companies).Error; err != nil {
		return nil, eris.Wrap(err, "list companies")
	}
	return companies, nil
}

func (r *CompanyRepository) Create(ctx context.Context, company *models.Company) error {
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return eris.Wrapf(err, "create company %q", company.Name)
	}
	return nil
}

// Delete removes the company and its audit records in one transaction.
// Not every driver enforces the foreign key cascade, so the records are
// removed explicitly.
func (r *CompanyRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", id).Delete(&models.ESGAnalysisStable{}).Error; err != nil {
			return eris.Wrapf(err, "delete analyses of company %d", id)
		}
		res := tx.Delete(&models.Company{}, id)
		if res.Error != nil {
			return eris.Wrapf(res.Error, "delete company %d", id)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
