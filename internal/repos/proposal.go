package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

type ProposalRepo interface {
	// CreateIfAbsent inserts the proposal unless one with the same email UID
	// already exists. It returns the stored proposal and whether this call
	// created it. The insert and the identity check are a single conditional
	// write, so concurrent ingestion of the same message cannot double-insert.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, proposal *types.Proposal) (*types.Proposal, bool, error)
	GetByEmailUID(ctx context.Context, tx *gorm.DB, emailUID string) (*types.Proposal, error)
	GetByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) ([]*types.Proposal, error)
	CountByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) (int64, error)
	UpdateAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, analysis datatypes.JSON) error
}

type proposalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProposalRepo(db *gorm.DB, baseLog *logger.Logger) ProposalRepo {
	return &proposalRepo{db: db, log: baseLog.With("repo", "ProposalRepo")}
}

func (r *proposalRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, proposal *types.Proposal) (*types.Proposal, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email_uid"}},
			DoNothing: true,
		}).
		Create(proposal)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return proposal, true, nil
	}

	// Conflict: another write holds this email UID. Surface the winner.
	existing, err := r.GetByEmailUID(ctx, tx, proposal.EmailUID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *proposalRepo) GetByEmailUID(ctx context.Context, tx *gorm.DB, emailUID string) (*types.Proposal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Proposal
	if err := transaction.WithContext(ctx).
		Where("email_uid = ?", emailUID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *proposalRepo) GetByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) ([]*types.Proposal, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Proposal
	if err := transaction.WithContext(ctx).
		Preload("Vendor").
		Where("rfp_id = ?", rfpID).
		Order("received_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *proposalRepo) CountByRFPID(ctx context.Context, tx *gorm.DB, rfpID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Proposal{}).
		Where("rfp_id = ?", rfpID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *proposalRepo) UpdateAnalysis(ctx context.Context, tx *gorm.DB, id uuid.UUID, analysis datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Proposal{}).
		Where("id = ?", id).
		Update("ai_analysis", analysis).Error
}
