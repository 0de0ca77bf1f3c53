package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

type ComparisonRepo interface {
	GetByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) (*types.Comparison, error)
	// Upsert writes the cache row for the comparison's RFP, replacing any
	// existing row. The unique index on rfp_id keeps this a single-row swap
	// even under concurrent recomputation.
	Upsert(ctx context.Context, tx *gorm.DB, comparison *types.Comparison) error
	DeleteByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) error
}

type comparisonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComparisonRepo(db *gorm.DB, baseLog *logger.Logger) ComparisonRepo {
	return &comparisonRepo{db: db, log: baseLog.With("repo", "ComparisonRepo")}
}

func (r *comparisonRepo) GetByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) (*types.Comparison, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Comparison
	if err := transaction.WithContext(ctx).
		Where("rfp_id = ?", rfpID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *comparisonRepo) Upsert(ctx context.Context, tx *gorm.DB, comparison *types.Comparison) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "rfp_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"matrix", "recommendation", "justification",
				"proposal_count", "fingerprint", "created_at",
			}),
		}).
		Create(comparison).Error
}

func (r *comparisonRepo) DeleteByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("rfp_id = ?", rfpID).
		Delete(&types.Comparison{}).Error
}
