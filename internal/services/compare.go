package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/complock"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/observability"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

var ErrNoProposals = errors.New("no proposals to compare")

// CompareOutcome is a comparison result plus where it came from.
type CompareOutcome struct {
	Result        types.ComparisonResult `json:"result"`
	FromCache     bool                   `json:"from_cache"`
	ProposalCount int                    `json:"proposal_count"`
	Provenance    AIProvenance           `json:"provenance,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ComparisonService computes and caches the ranked comparison for an RFP.
// A cached row is served only while both the proposal count and the content
// fingerprint still match the live proposal set; anything else is stale and
// recomputed. Transitions for one RFP are serialized by a per-key lock, so
// concurrent requests cannot both recompute or read a half-written row.
type ComparisonService struct {
	log            *logger.Logger
	metrics        *observability.Metrics
	ai             AIService
	locker         complock.Locker
	rfpRepo        repos.RFPRepo
	proposalRepo   repos.ProposalRepo
	comparisonRepo repos.ComparisonRepo
}

func NewComparisonService(
	baseLog *logger.Logger,
	metrics *observability.Metrics,
	ai AIService,
	locker complock.Locker,
	rfpRepo repos.RFPRepo,
	proposalRepo repos.ProposalRepo,
	comparisonRepo repos.ComparisonRepo,
) *ComparisonService {
	return &ComparisonService{
		log:            baseLog.With("service", "ComparisonService"),
		metrics:        metrics,
		ai:             ai,
		locker:         locker,
		rfpRepo:        rfpRepo,
		proposalRepo:   proposalRepo,
		comparisonRepo: comparisonRepo,
	}
}

// Compare returns the ranked comparison for the RFP, from cache when the
// cached row still describes the current proposal set.
func (s *ComparisonService) Compare(ctx context.Context, rfpID string) (*CompareOutcome, error) {
	rfp, err := s.rfpRepo.GetByID(ctx, nil, rfpID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRFPNotFound
		}
		return nil, err
	}

	release, err := s.locker.Lock(ctx, rfp.ID)
	if err != nil {
		return nil, fmt.Errorf("acquire comparison lock: %w", err)
	}
	defer release()

	proposals, err := s.proposalRepo.GetByRFPID(ctx, nil, rfp.ID)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return nil, ErrNoProposals
	}

	fingerprint := proposalFingerprint(proposals)

	cached, err := s.comparisonRepo.GetByRFPID(ctx, nil, rfp.ID)
	switch {
	case err == nil && cached.ProposalCount == len(proposals) && cached.Fingerprint == fingerprint:
		s.metrics.CacheEvent(observability.CacheHit)
		s.log.Debug("Comparison cache hit", "rfp_id", rfp.ID, "proposal_count", cached.ProposalCount)
		return outcomeFromCache(cached)
	case err == nil:
		// Stale: the proposal set changed since this row was written. Remove
		// it before recomputing so a failed recompute cannot leave it behind.
		s.metrics.CacheEvent(observability.CacheInvalidated)
		s.log.Info("Comparison cache invalidated",
			"rfp_id", rfp.ID,
			"cached_count", cached.ProposalCount,
			"live_count", len(proposals))
		if err := s.comparisonRepo.DeleteByRFPID(ctx, nil, rfp.ID); err != nil {
			return nil, fmt.Errorf("drop stale comparison: %w", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	s.metrics.CacheEvent(observability.CacheMiss)

	var structured types.RFPStructured
	_ = json.Unmarshal(rfp.StructuredData, &structured)

	result, provenance := s.ai.CompareProposals(ctx, structured, scoringViews(proposals))

	matrix, err := json.Marshal(result.Matrix)
	if err != nil {
		return nil, fmt.Errorf("encode comparison matrix: %w", err)
	}
	comparison := &types.Comparison{
		RFPID:          rfp.ID,
		Matrix:         matrix,
		Recommendation: result.Recommendation,
		Justification:  result.Justification,
		ProposalCount:  len(proposals),
		Fingerprint:    fingerprint,
		CreatedAt:      time.Now(),
	}
	if err := s.comparisonRepo.Upsert(ctx, nil, comparison); err != nil {
		return nil, fmt.Errorf("cache comparison: %w", err)
	}

	s.log.Info("Comparison computed",
		"rfp_id", rfp.ID, "proposal_count", len(proposals), "scoring", provenance)
	return &CompareOutcome{
		Result:        result,
		FromCache:     false,
		ProposalCount: len(proposals),
		Provenance:    provenance,
		CreatedAt:     comparison.CreatedAt,
	}, nil
}

// Invalidate drops the cached comparison for an RFP, if any.
func (s *ComparisonService) Invalidate(ctx context.Context, rfpID string) error {
	release, err := s.locker.Lock(ctx, rfpID)
	if err != nil {
		return fmt.Errorf("acquire comparison lock: %w", err)
	}
	defer release()

	s.metrics.CacheEvent(observability.CacheInvalidated)
	return s.comparisonRepo.DeleteByRFPID(ctx, nil, rfpID)
}

func outcomeFromCache(cached *types.Comparison) (*CompareOutcome, error) {
	var matrix []types.ComparisonEntry
	if err := json.Unmarshal(cached.Matrix, &matrix); err != nil {
		return nil, fmt.Errorf("decode cached matrix: %w", err)
	}
	return &CompareOutcome{
		Result: types.ComparisonResult{
			Matrix:         matrix,
			Recommendation: cached.Recommendation,
			Justification:  cached.Justification,
		},
		FromCache:     true,
		ProposalCount: cached.ProposalCount,
		CreatedAt:     cached.CreatedAt,
	}, nil
}

// proposalFingerprint hashes the ordered proposal identities and their
// extracted terms. Edits to a proposal's content change the fingerprint even
// when the count is unchanged, so edits invalidate the cache too.
func proposalFingerprint(proposals []*types.Proposal) string {
	h := sha256.New()
	for _, p := range proposals {
		h.Write([]byte(p.ID.String()))
		h.Write([]byte{0})
		h.Write(p.ExtractedData)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// scoringViews flattens stored proposals into the shape the scoring
// capability consumes: structured terms plus the raw email as fallback.
func scoringViews(proposals []*types.Proposal) []types.ProposalForScoring {
	views := make([]types.ProposalForScoring, 0, len(proposals))
	for _, p := range proposals {
		var terms types.ExtractedTerms
		_ = json.Unmarshal(p.ExtractedData, &terms)

		vendor := p.VendorEmail
		if p.Vendor != nil {
			vendor = p.Vendor.Name
		} else if terms.VendorName != nil && *terms.VendorName != "" {
			vendor = *terms.VendorName
		}

		views = append(views, types.ProposalForScoring{
			ID:      p.ID.String(),
			Vendor:  vendor,
			Data:    terms,
			RawText: p.EmailContent,
		})
	}
	return views
}
