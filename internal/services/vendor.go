package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

var ErrVendorNotFound = errors.New("vendor not found")

type VendorService struct {
	log        *logger.Logger
	vendorRepo repos.VendorRepo
}

func NewVendorService(baseLog *logger.Logger, vendorRepo repos.VendorRepo) *VendorService {
	return &VendorService{
		log:        baseLog.With("service", "VendorService"),
		vendorRepo: vendorRepo,
	}
}

func (s *VendorService) Create(ctx context.Context, vendor *types.Vendor) (*types.Vendor, error) {
	created, err := s.vendorRepo.Create(ctx, nil, vendor)
	if err != nil {
		return nil, err
	}
	s.log.Info("Vendor created", "vendor_id", created.ID, "email", created.Email)
	return created, nil
}

func (s *VendorService) Get(ctx context.Context, id uuid.UUID) (*types.Vendor, error) {
	vendor, err := s.vendorRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return vendor, nil
}

func (s *VendorService) List(ctx context.Context) ([]*types.Vendor, error) {
	return s.vendorRepo.List(ctx, nil)
}

func (s *VendorService) Update(ctx context.Context, vendor *types.Vendor) (*types.Vendor, error) {
	if _, err := s.Get(ctx, vendor.ID); err != nil {
		return nil, err
	}
	if err := s.vendorRepo.Update(ctx, nil, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *VendorService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.vendorRepo.Delete(ctx, nil, id)
}
