package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

type RFPRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rfp *types.RFP) (*types.RFP, error)
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.RFP, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.RFP, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status string) error
}

type rfpRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRFPRepo(db *gorm.DB, baseLog *logger.Logger) RFPRepo {
	return &rfpRepo{db: db, log: baseLog.With("repo", "RFPRepo")}
}

func (r *rfpRepo) Create(ctx context.Context, tx *gorm.DB, rfp *types.RFP) (*types.RFP, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(rfp).Error; err != nil {
		return nil, err
	}
	return rfp, nil
}

func (r *rfpRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*types.RFP, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.RFP
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *rfpRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.RFP, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.RFP
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *rfpRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id string, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.RFP{}).
		Where("id = ?", id).
		Update("status", status).Error
}
