package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/clients/mail"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/observability"
	"github.com/bryceadler/procurehub-backend/internal/reftoken"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

// Per-message ingestion outcomes.
const (
	IngestProcessed    = "Processed"
	IngestDuplicate    = "Skipped (Duplicate)"
	IngestUncorrelated = "Skipped (No Ref)"
)

type IngestResult struct {
	UID        string     `json:"uid"`
	Outcome    string     `json:"outcome"`
	ProposalID *uuid.UUID `json:"proposal_id,omitempty"`
}

// IngestSummary is the report for one finite batch. Degraded marks a batch
// whose messages came from the fixture because the live transport failed.
type IngestSummary struct {
	Fetched      int            `json:"fetched"`
	Processed    int            `json:"processed"`
	Duplicates   int            `json:"duplicates"`
	Uncorrelated int            `json:"uncorrelated"`
	Degraded     bool           `json:"degraded"`
	Reason       string         `json:"reason,omitempty"`
	Results      []IngestResult `json:"results"`
}

// IngestionService turns inbound vendor emails into de-duplicated, correlated
// proposals. A batch is processed sequentially; one bad message never aborts
// the rest.
type IngestionService struct {
	log          *logger.Logger
	metrics      *observability.Metrics
	mailClient   mail.Client
	ai           AIService
	rfpRepo      repos.RFPRepo
	vendorRepo   repos.VendorRepo
	proposalRepo repos.ProposalRepo
}

func NewIngestionService(
	baseLog *logger.Logger,
	metrics *observability.Metrics,
	mailClient mail.Client,
	ai AIService,
	rfpRepo repos.RFPRepo,
	vendorRepo repos.VendorRepo,
	proposalRepo repos.ProposalRepo,
) *IngestionService {
	return &IngestionService{
		log:          baseLog.With("service", "IngestionService"),
		metrics:      metrics,
		mailClient:   mailClient,
		ai:           ai,
		rfpRepo:      rfpRepo,
		vendorRepo:   vendorRepo,
		proposalRepo: proposalRepo,
	}
}

// FetchAndIngest pulls one batch from the mail transport and runs each
// message through the pipeline. refHint seeds the fixture subject when the
// transport is mocked or degraded.
func (s *IngestionService) FetchAndIngest(ctx context.Context, refHint string) (*IngestSummary, error) {
	batch, err := s.mailClient.FetchInbound(ctx, refHint)
	if err != nil {
		return nil, err
	}

	summary := s.IngestMessages(ctx, batch.Messages)
	summary.Degraded = batch.Degraded
	summary.Reason = batch.Reason
	return summary, nil
}

// IngestMessages runs the pipeline over an already-fetched batch.
func (s *IngestionService) IngestMessages(ctx context.Context, messages []mail.InboundEmail) *IngestSummary {
	summary := &IngestSummary{
		Fetched: len(messages),
		Results: make([]IngestResult, 0, len(messages)),
	}

	for _, msg := range messages {
		result := s.ingestOne(ctx, msg)
		summary.Results = append(summary.Results, result)
		switch result.Outcome {
		case IngestProcessed:
			summary.Processed++
			s.metrics.IngestOutcome(observability.OutcomeProcessed)
		case IngestDuplicate:
			summary.Duplicates++
			s.metrics.IngestOutcome(observability.OutcomeDuplicate)
		default:
			summary.Uncorrelated++
			s.metrics.IngestOutcome(observability.OutcomeUncorrelated)
		}
	}

	s.log.Info("Ingestion batch complete",
		"fetched", summary.Fetched,
		"processed", summary.Processed,
		"duplicates", summary.Duplicates,
		"uncorrelated", summary.Uncorrelated)
	return summary
}

func (s *IngestionService) ingestOne(ctx context.Context, msg mail.InboundEmail) IngestResult {
	result := IngestResult{UID: msg.UID, Outcome: IngestUncorrelated}

	ref, ok := reftoken.Extract(msg.Subject, msg.Text)
	if !ok {
		s.log.Debug("No reference token in message", "uid", msg.UID, "subject", msg.Subject)
		return result
	}

	rfp, err := s.rfpRepo.GetByID(ctx, nil, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("Reference token matches no RFP", "uid", msg.UID, "ref", ref)
			return result
		}
		s.log.Error("RFP lookup failed", "uid", msg.UID, "ref", ref, "error", err)
		return result
	}

	// Cheap pre-check before the expensive extraction. The authoritative
	// duplicate decision is still the conditional insert below.
	if existing, err := s.proposalRepo.GetByEmailUID(ctx, nil, msg.UID); err == nil {
		result.Outcome = IngestDuplicate
		result.ProposalID = &existing.ID
		return result
	}

	var vendorID *uuid.UUID
	if msg.From != "" {
		if vendor, err := s.vendorRepo.GetByEmail(ctx, nil, msg.From); err == nil {
			vendorID = &vendor.ID
		}
	}

	terms, provenance := s.ai.ParseVendorEmail(ctx, msg.Text)
	extracted, err := json.Marshal(terms)
	if err != nil {
		s.log.Error("Failed to encode extracted terms", "uid", msg.UID, "error", err)
		return result
	}

	proposal := &types.Proposal{
		RFPID:            rfp.ID,
		VendorID:         vendorID,
		VendorEmail:      msg.From,
		EmailUID:         msg.UID,
		EmailContent:     msg.Text,
		ExtractedData:    extracted,
		ExtractionStatus: string(provenance),
		ReceivedAt:       msg.ReceivedAt,
	}

	stored, created, err := s.proposalRepo.CreateIfAbsent(ctx, nil, proposal)
	if err != nil {
		s.log.Error("Proposal insert failed", "uid", msg.UID, "rfp_id", rfp.ID, "error", err)
		return result
	}

	result.ProposalID = &stored.ID
	if !created {
		// Lost the insert race to a concurrent worker. Same terminal state
		// as the pre-check duplicate: exactly one proposal per message.
		result.Outcome = IngestDuplicate
		return result
	}

	s.log.Info("Proposal ingested",
		"uid", msg.UID, "rfp_id", rfp.ID, "proposal_id", stored.ID, "extraction", provenance)
	result.Outcome = IngestProcessed
	return result
}
