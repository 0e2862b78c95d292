package services

import (
	"context"
	"errors"
	"strings"

	"github.com/pulseesg/backend/internal/logger"
	"github.com/pulseesg/backend/internal/models"
	"github.com/pulseesg/backend/internal/repository"
)

var (
	ErrCompanyNameRequired = errors.New("company name is required")
	ErrCompanyNotFound     = errors.New("company not found")
)

type CompanyStore interface {
	CompanyLookup
	List(ctx context.Context) ([]models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id uint) error
}

type CompanyService struct {
	companies CompanyStore
}

func NewCompanyService(companies CompanyStore) *CompanyService {
	return &CompanyService{companies: companies}
}

func (s *CompanyService) Create(ctx context.Context, name, sector, country string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrCompanyNameRequired
	}

	company := &models.Company{
		Name:    name,
		Sector:  strings.TrimSpace(sector),
		Country: strings.TrimSpace(country),
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}

	logger.WithCompany(company.ID, company.Name).Info("Company created")
	return company, nil
}

func (s *CompanyService) List(ctx context.Context) ([]models.Company, error) {
	return s.companies.List(ctx)
}

// Delete removes the company together with its audit history.
func (s *CompanyService) Delete(ctx context.Context, id uint) error {
	err := s.companies.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCompanyNotFound
	}
	if err != nil {
		return err
	}
	logger.Info("Company deleted", map[string]interface{}{"company_id": id})
	return nil
}
