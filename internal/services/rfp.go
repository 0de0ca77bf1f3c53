package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/clients/mail"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

var ErrRFPNotFound = errors.New("rfp not found")

// SendReport is the outcome of one invitation round.
type SendReport struct {
	Sent     []SendReceipt `json:"sent"`
	Failed   []string      `json:"failed,omitempty"`
	Degraded bool          `json:"degraded"`
}

type SendReceipt struct {
	VendorID  uuid.UUID `json:"vendor_id"`
	Email     string    `json:"email"`
	MessageID string    `json:"message_id"`
}

// RFPService owns the RFP lifecycle: drafting from natural language, listing,
// and sending correlated invitations out to vendors.
type RFPService struct {
	log          *logger.Logger
	ai           AIService
	mailClient   mail.Client
	rfpRepo      repos.RFPRepo
	vendorRepo   repos.VendorRepo
	proposalRepo repos.ProposalRepo
}

func NewRFPService(
	baseLog *logger.Logger,
	ai AIService,
	mailClient mail.Client,
	rfpRepo repos.RFPRepo,
	vendorRepo repos.VendorRepo,
	proposalRepo repos.ProposalRepo,
) *RFPService {
	return &RFPService{
		log:          baseLog.With("service", "RFPService"),
		ai:           ai,
		mailClient:   mailClient,
		rfpRepo:      rfpRepo,
		vendorRepo:   vendorRepo,
		proposalRepo: proposalRepo,
	}
}

// Create structures the free-text request and stores the RFP as a draft.
func (s *RFPService) Create(ctx context.Context, text string) (*types.RFP, error) {
	structured, provenance := s.ai.GenerateRFPStructure(ctx, text)
	blob, err := json.Marshal(structured)
	if err != nil {
		return nil, fmt.Errorf("encode structured data: %w", err)
	}

	title := structured.Title
	if title == "" {
		title = truncate(text, 60)
	}

	rfp := &types.RFP{
		Title:          title,
		Status:         types.RFPStatusDraft,
		Content:        text,
		StructuredData: blob,
	}
	created, err := s.rfpRepo.Create(ctx, nil, rfp)
	if err != nil {
		return nil, err
	}

	s.log.Info("RFP created", "rfp_id", created.ID, "structuring", provenance)
	return created, nil
}

func (s *RFPService) List(ctx context.Context) ([]*types.RFP, error) {
	return s.rfpRepo.List(ctx, nil)
}

func (s *RFPService) Get(ctx context.Context, id string) (*types.RFP, error) {
	rfp, err := s.rfpRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRFPNotFound
		}
		return nil, err
	}
	return rfp, nil
}

// Proposals lists the proposals received for an RFP, oldest first.
func (s *RFPService) Proposals(ctx context.Context, rfpID string) ([]*types.Proposal, error) {
	if _, err := s.Get(ctx, rfpID); err != nil {
		return nil, err
	}
	return s.proposalRepo.GetByRFPID(ctx, nil, rfpID)
}

// SendInvitations emails the RFP to the given vendors and moves it to Open.
// Every subject carries the [Ref:<id>] token that replies are correlated by.
// Individual send failures are reported, not fatal.
func (s *RFPService) SendInvitations(ctx context.Context, rfpID string, vendorIDs []uuid.UUID) (*SendReport, error) {
	rfp, err := s.Get(ctx, rfpID)
	if err != nil {
		return nil, err
	}

	vendors, err := s.vendorRepo.GetByIDs(ctx, nil, vendorIDs)
	if err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("RFP Invitation: %s [Ref:%s]", rfp.Title, rfp.ID)
	report := &SendReport{Sent: make([]SendReceipt, 0, len(vendors))}

	for _, vendor := range vendors {
		text, html := renderInvitation(rfp, vendor)
		receipt, err := s.mailClient.Send(ctx, vendor.Email, subject, text, html)
		if err != nil {
			s.log.Error("Invitation send failed", "rfp_id", rfp.ID, "vendor_id", vendor.ID, "error", err)
			report.Failed = append(report.Failed, vendor.Email)
			continue
		}
		if receipt.Degraded {
			report.Degraded = true
		}
		report.Sent = append(report.Sent, SendReceipt{
			VendorID:  vendor.ID,
			Email:     vendor.Email,
			MessageID: receipt.MessageID,
		})
	}

	if len(report.Sent) > 0 && rfp.Status == types.RFPStatusDraft {
		if err := s.rfpRepo.UpdateStatus(ctx, nil, rfp.ID, types.RFPStatusOpen); err != nil {
			return nil, fmt.Errorf("open rfp %s: %w", rfp.ID, err)
		}
	}

	s.log.Info("Invitations sent",
		"rfp_id", rfp.ID, "sent", len(report.Sent), "failed", len(report.Failed))
	return report, nil
}

func renderInvitation(rfp *types.RFP, vendor *types.Vendor) (text string, html string) {
	var structured types.RFPStructured
	_ = json.Unmarshal(rfp.StructuredData, &structured)

	var items strings.Builder
	var itemsHTML strings.Builder
	for _, item := range structured.Items {
		fmt.Fprintf(&items, "- %s x%d (%s)\n", item.Name, item.Quantity, item.Specs)
		fmt.Fprintf(&itemsHTML, "<li>%s x%d (%s)</li>", item.Name, item.Quantity, item.Specs)
	}

	text = fmt.Sprintf(`Dear %s,

You are invited to submit a proposal for: %s

Requested items:
%s
Budget: %s
Timeline: %s
Warranty: %s
Terms: %s

Please reply to this email with your proposal. Keep the reference in the
subject line so we can match your reply.

Regards,
Procurement Team`,
		vendor.ContactPerson, rfp.Title, items.String(),
		structured.Budget, structured.Timeline, structured.Warranty, structured.Terms)

	html = fmt.Sprintf(`<p>Dear %s,</p>
<p>You are invited to submit a proposal for: <strong>%s</strong></p>
<ul>%s</ul>
<p>Budget: %s<br>Timeline: %s<br>Warranty: %s<br>Terms: %s</p>
<p>Please reply to this email with your proposal. Keep the reference in the
subject line so we can match your reply.</p>
<p>Regards,<br>Procurement Team</p>`,
		vendor.ContactPerson, rfp.Title, itemsHTML.String(),
		structured.Budget, structured.Timeline, structured.Warranty, structured.Terms)

	return text, html
}
