package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/pulseesg/backend/internal/models"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
)

type AnalystRepository struct {
	db *gorm.DB
}

func NewAnalystRepository(db *gorm.DB) *AnalystRepository {
	return &AnalystRepository{db: db}
}

// FindByEmail matches case-insensitively; emails are stored lower-cased.
func (r *AnalystRepository) FindByEmail(ctx context.Context, email string) (*models.Analyst, error) {
	var analyst models.Analyst
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&analyst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "find analyst by email")
	}
	return &analyst, nil
}

func (r *AnalystRepository) FindByID(ctx context.Context, id uint) (*models.Analyst, error) {
	var analyst models.Analyst
	err := r.db.WithContext(ctx).First(&analyst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "find analyst %d", id)
	}
	return &analyst, nil
}

// Create returns ErrDuplicate when the email is already registered.
func (r *AnalystRepository) Create(ctx context.Context, analyst *models.Analyst) error {
	analyst.Email = strings.ToLower(strings.TrimSpace(analyst.Email))
	if err := r.db.WithContext(ctx).Create(analyst).Error; err != nil {
		if isDuplicateError(err) {
			return ErrDuplicate
		}
		return eris.Wrapf(err, "create analyst %s", analyst.Email)
	}
	return nil
}

// List pages through analysts ordered by creation time, newest first.
func (r *AnalystRepository) List(ctx context.Context, limit, offset int) ([]models.Analyst, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Analyst{}).Count(&total).Error; err != nil {
		return nil, 0, eris.Wrap(err, "count analysts")
	}

	var analysts []models.Analyst
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&analysts).Error
	if err != nil {
		return nil, 0, eris.Wrap(err, "list analysts")
	}
	return analysts, total, nil
}

func (r *AnalystRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.Analyst{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return eris.Wrapf(res.Error, "update password for analyst %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
