package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

type VendorRepo interface {
	Create(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) (*types.Vendor, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vendor, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Vendor, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Vendor, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Vendor, error)
	Update(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type vendorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVendorRepo(db *gorm.DB, baseLog *logger.Logger) VendorRepo {
	return &vendorRepo{db: db, log: baseLog.With("repo", "VendorRepo")}
}

func (r *vendorRepo) Create(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(vendor).Error; err != nil {
		return nil, err
	}
	return vendor, nil
}

func (r *vendorRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Vendor
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *vendorRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Vendor
	if len(ids) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *vendorRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Vendor
	if err := transaction.WithContext(ctx).
		Where("email = ?", email).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *vendorRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Vendor, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Vendor
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *vendorRepo) Update(ctx context.Context, tx *gorm.DB, vendor *types.Vendor) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Save(vendor).Error
}

func (r *vendorRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Vendor{}).Error
}
