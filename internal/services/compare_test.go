package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/complock"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

type compareFixture struct {
	svc          *ComparisonService
	ai           *fakeAI
	rfpRepo      repos.RFPRepo
	proposalRepo repos.ProposalRepo
	compRepo     repos.ComparisonRepo
	gdb          *gorm.DB
}

func newCompareFixture(t *testing.T) *compareFixture {
	t.Helper()
	gdb := openTestDB(t)
	log := nopLog()

	rfpRepo := repos.NewRFPRepo(gdb, log)
	proposalRepo := repos.NewProposalRepo(gdb, log)
	compRepo := repos.NewComparisonRepo(gdb, log)

	ai := newFakeAI()
	svc := NewComparisonService(log, nil, ai, complock.NewLocalLocker(), rfpRepo, proposalRepo, compRepo)
	return &compareFixture{
		svc:          svc,
		ai:           ai,
		rfpRepo:      rfpRepo,
		proposalRepo: proposalRepo,
		compRepo:     compRepo,
		gdb:          gdb,
	}
}

func (f *compareFixture) seedProposal(t *testing.T, rfpID, uid string, price float64) *types.Proposal {
	t.Helper()
	data, _ := json.Marshal(types.ExtractedTerms{TotalPrice: &price})
	proposal, created, err := f.proposalRepo.CreateIfAbsent(context.Background(), nil, &types.Proposal{
		RFPID:            rfpID,
		VendorEmail:      fmt.Sprintf("%s@vendors.test", uid),
		EmailUID:         uid,
		EmailContent:     fmt.Sprintf("Price: $%.0f", price),
		ExtractedData:    data,
		ExtractionStatus: types.ExtractionLive,
	})
	if err != nil || !created {
		t.Fatalf("seed proposal %s: created=%v err=%v", uid, created, err)
	}
	return proposal
}

func TestCompareComputesAndCaches(t *testing.T) {
	f := newCompareFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, f.rfpRepo)
	f.seedProposal(t, rfp.ID, "uid-a", 90000)
	f.seedProposal(t, rfp.ID, "uid-b", 95000)

	first, err := f.svc.Compare(ctx, rfp.ID)
	if err != nil {
		t.Fatalf("first compare: %v", err)
	}
	if first.FromCache {
		t.Fatalf("first compare should not come from cache")
	}
	if first.ProposalCount != 2 {
		t.Fatalf("expected proposal count 2, got %d", first.ProposalCount)
	}
	if len(first.Result.Matrix) != 2 {
		t.Fatalf("expected 2 matrix entries, got %d", len(first.Result.Matrix))
	}
	if first.Result.Recommendation == "" {
		t.Fatalf("expected a recommendation")
	}

	second, err := f.svc.Compare(ctx, rfp.ID)
	if err != nil {
		t.Fatalf("second compare: %v", err)
	}
	if !second.FromCache {
		t.Fatalf("second compare should be served from cache")
	}
	if second.Result.Recommendation != first.Result.Recommendation {
		t.Fatalf("cached recommendation changed: %q vs %q",
			second.Result.Recommendation, first.Result.Recommendation)
	}

	if _, compare := f.ai.calls(); compare != 1 {
		t.Fatalf("expected 1 scoring call, got %d", compare)
	}
}

func TestCompareNewProposalInvalidatesCache(t *testing.T) {
	f := newCompareFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, f.rfpRepo)
	f.seedProposal(t, rfp.ID, "uid-a", 90000)

	if _, err := f.svc.Compare(ctx, rfp.ID); err != nil {
		t.Fatalf("first compare: %v", err)
	}

	f.seedProposal(t, rfp.ID, "uid-b", 80000)

	outcome, err := f.svc.Compare(ctx, rfp.ID)
	if err != nil {
		t.Fatalf("compare after new proposal: %v", err)
	}
	if outcome.FromCache {
		t.Fatalf("stale cache must not be served after a new proposal")
	}
	if outcome.ProposalCount != 2 {
		t.Fatalf("expected recomputed count 2, got %d", outcome.ProposalCount)
	}
	if _, compare := f.ai.calls(); compare != 2 {
		t.Fatalf("expected 2 scoring calls, got %d", compare)
	}

	cached, err := f.compRepo.GetByRFPID(ctx, nil, rfp.ID)
	if err != nil {
		t.Fatalf("load cache row: %v", err)
	}
	if cached.ProposalCount != 2 {
		t.Fatalf("cache row should describe the new set, got count %d", cached.ProposalCount)
	}
}

func TestCompareEditedProposalInvalidatesCacheWithSameCount(t *testing.T) {
	f := newCompareFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, f.rfpRepo)
	proposal := f.seedProposal(t, rfp.ID, "uid-a", 90000)

	if _, err := f.svc.Compare(ctx, rfp.ID); err != nil {
		t.Fatalf("first compare: %v", err)
	}

	// Same proposal count, different content.
	newPrice := 50000.0
	data, _ := json.Marshal(types.ExtractedTerms{TotalPrice: &newPrice})
	if err := f.gdb.Model(&types.Proposal{}).
		Where("id = ?", proposal.ID).
		Update("extracted_data", data).Error; err != nil {
		t.Fatalf("edit proposal: %v", err)
	}

	outcome, err := f.svc.Compare(ctx, rfp.ID)
	if err != nil {
		t.Fatalf("compare after edit: %v", err)
	}
	if outcome.FromCache {
		t.Fatalf("content change must invalidate the cache even at equal count")
	}
	if _, compare := f.ai.calls(); compare != 2 {
		t.Fatalf("expected recompute after edit, got %d scoring calls", compare)
	}
}

func TestCompareRefusesEmptyProposalSet(t *testing.T) {
	f := newCompareFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, f.rfpRepo)

	_, err := f.svc.Compare(ctx, rfp.ID)
	if !errors.Is(err, ErrNoProposals) {
		t.Fatalf("expected ErrNoProposals, got %v", err)
	}

	// Refusal must not write a cache row.
	if _, err := f.compRepo.GetByRFPID(ctx, nil, rfp.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected no cache row, got err=%v", err)
	}
}

func TestCompareUnknownRFP(t *testing.T) {
	f := newCompareFixture(t)

	_, err := f.svc.Compare(context.Background(), "ffffffffffffffffffffffff")
	if !errors.Is(err, ErrRFPNotFound) {
		t.Fatalf("expected ErrRFPNotFound, got %v", err)
	}
}

func TestInvalidateDropsCacheRow(t *testing.T) {
	f := newCompareFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, f.rfpRepo)
	f.seedProposal(t, rfp.ID, "uid-a", 90000)

	if _, err := f.svc.Compare(ctx, rfp.ID); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := f.svc.Invalidate(ctx, rfp.ID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := f.compRepo.GetByRFPID(ctx, nil, rfp.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected cache row gone, got err=%v", err)
	}

	// Next compare recomputes and repopulates.
	outcome, err := f.svc.Compare(ctx, rfp.ID)
	if err != nil {
		t.Fatalf("compare after invalidate: %v", err)
	}
	if outcome.FromCache {
		t.Fatalf("compare after invalidate should recompute")
	}
}
