package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bryceadler/procurehub-backend/internal/clients/mail"
	"github.com/bryceadler/procurehub-backend/internal/repos"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

func newIngestFixture(t *testing.T) (*IngestionService, *fakeAI, *fakeMail, repos.RFPRepo, repos.VendorRepo, repos.ProposalRepo) {
	t.Helper()
	gdb := openTestDB(t)
	log := nopLog()

	rfpRepo := repos.NewRFPRepo(gdb, log)
	vendorRepo := repos.NewVendorRepo(gdb, log)
	proposalRepo := repos.NewProposalRepo(gdb, log)

	ai := newFakeAI()
	mailClient := &fakeMail{}
	svc := NewIngestionService(log, nil, mailClient, ai, rfpRepo, vendorRepo, proposalRepo)
	return svc, ai, mailClient, rfpRepo, vendorRepo, proposalRepo
}

func seedRFP(t *testing.T, rfpRepo repos.RFPRepo) *types.RFP {
	t.Helper()
	structured, _ := json.Marshal(types.RFPStructured{Title: "Test RFP"})
	rfp, err := rfpRepo.Create(context.Background(), nil, &types.RFP{
		Title:          "Test RFP",
		Content:        "50 laptops",
		StructuredData: structured,
	})
	if err != nil {
		t.Fatalf("seed rfp: %v", err)
	}
	return rfp
}

func TestIngestCorrelatedMessageCreatesProposal(t *testing.T) {
	svc, _, mailClient, rfpRepo, _, proposalRepo := newIngestFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, rfpRepo)

	mailClient.batch = []mail.InboundEmail{inboundReply("uid-1", rfp.ID, "sales@techworld.com")}

	summary, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("FetchAndIngest: %v", err)
	}
	if summary.Processed != 1 || summary.Duplicates != 0 || summary.Uncorrelated != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	stored, err := proposalRepo.GetByRFPID(ctx, nil, rfp.ID)
	if err != nil {
		t.Fatalf("GetByRFPID: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 proposal, got %d", len(stored))
	}
	if stored[0].EmailUID != "uid-1" {
		t.Fatalf("expected email uid uid-1, got %q", stored[0].EmailUID)
	}
	if stored[0].ExtractionStatus != types.ExtractionFallbackUnconfigured {
		t.Fatalf("expected fallback provenance, got %q", stored[0].ExtractionStatus)
	}
	var terms types.ExtractedTerms
	if err := json.Unmarshal(stored[0].ExtractedData, &terms); err != nil {
		t.Fatalf("decode extracted data: %v", err)
	}
	if terms.TotalPrice == nil || *terms.TotalPrice != 95000 {
		t.Fatalf("expected extracted price 95000, got %+v", terms.TotalPrice)
	}
}

func TestIngestDuplicateMessageSkipsExtraction(t *testing.T) {
	svc, ai, mailClient, rfpRepo, _, proposalRepo := newIngestFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, rfpRepo)

	mailClient.batch = []mail.InboundEmail{inboundReply("uid-1", rfp.ID, "sales@techworld.com")}

	first, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Processed != 1 {
		t.Fatalf("expected first ingest to process, got %+v", first)
	}

	second, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Duplicates != 1 || second.Processed != 0 {
		t.Fatalf("expected duplicate skip, got %+v", second)
	}

	// The duplicate must be detected before extraction runs again.
	parse, _ := ai.calls()
	if parse != 1 {
		t.Fatalf("expected 1 extraction call, got %d", parse)
	}

	count, err := proposalRepo.CountByRFPID(ctx, nil, rfp.ID)
	if err != nil {
		t.Fatalf("CountByRFPID: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored proposal, got %d", count)
	}

	// The duplicate result still points at the winning proposal.
	if second.Results[0].ProposalID == nil {
		t.Fatalf("duplicate result should reference the stored proposal")
	}
	if *second.Results[0].ProposalID != *first.Results[0].ProposalID {
		t.Fatalf("duplicate should reference the original proposal")
	}
}

func TestIngestMessageWithoutRefIsUncorrelated(t *testing.T) {
	svc, ai, mailClient, rfpRepo, _, _ := newIngestFixture(t)
	ctx := context.Background()
	seedRFP(t, rfpRepo)

	mailClient.batch = []mail.InboundEmail{
		{UID: "uid-2", Subject: "General inquiry", From: "someone@example.com", Text: "Hello"},
	}

	summary, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("FetchAndIngest: %v", err)
	}
	if summary.Uncorrelated != 1 || summary.Processed != 0 {
		t.Fatalf("expected uncorrelated skip, got %+v", summary)
	}
	if parse, _ := ai.calls(); parse != 0 {
		t.Fatalf("uncorrelated message should not be extracted, got %d calls", parse)
	}
}

func TestIngestUnknownRefIsUncorrelated(t *testing.T) {
	svc, _, mailClient, _, _, _ := newIngestFixture(t)
	ctx := context.Background()

	mailClient.batch = []mail.InboundEmail{inboundReply("uid-3", "aaaaaaaaaaaaaaaaaaaaaaaa", "x@y.com")}

	summary, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("FetchAndIngest: %v", err)
	}
	if summary.Uncorrelated != 1 {
		t.Fatalf("expected unknown ref to be uncorrelated, got %+v", summary)
	}
}

func TestIngestMatchesVendorByExactEmail(t *testing.T) {
	svc, _, mailClient, rfpRepo, vendorRepo, proposalRepo := newIngestFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, rfpRepo)

	vendor, err := vendorRepo.Create(ctx, nil, &types.Vendor{
		Name:  "TechWorld",
		Email: "sales@techworld.com",
	})
	if err != nil {
		t.Fatalf("seed vendor: %v", err)
	}

	mailClient.batch = []mail.InboundEmail{
		inboundReply("uid-4", rfp.ID, "sales@techworld.com"),
		inboundReply("uid-5", rfp.ID, "unknown@nowhere.com"),
	}

	summary, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("FetchAndIngest: %v", err)
	}
	if summary.Processed != 2 {
		t.Fatalf("expected both messages processed, got %+v", summary)
	}

	stored, err := proposalRepo.GetByRFPID(ctx, nil, rfp.ID)
	if err != nil {
		t.Fatalf("GetByRFPID: %v", err)
	}
	byUID := map[string]*types.Proposal{}
	for _, p := range stored {
		byUID[p.EmailUID] = p
	}
	matched := byUID["uid-4"]
	if matched.VendorID == nil || *matched.VendorID != vendor.ID {
		t.Fatalf("expected uid-4 matched to vendor %s, got %+v", vendor.ID, matched.VendorID)
	}
	unmatched := byUID["uid-5"]
	if unmatched.VendorID != nil {
		t.Fatalf("unknown sender should stay unmatched, got vendor %v", unmatched.VendorID)
	}
	if unmatched.VendorEmail != "unknown@nowhere.com" {
		t.Fatalf("unmatched proposal should keep the sender address, got %q", unmatched.VendorEmail)
	}
}

func TestIngestOneBadMessageDoesNotAbortBatch(t *testing.T) {
	svc, _, mailClient, rfpRepo, _, _ := newIngestFixture(t)
	ctx := context.Background()
	rfp := seedRFP(t, rfpRepo)

	mailClient.batch = []mail.InboundEmail{
		{UID: "uid-6", Subject: "no token here", Text: "nothing"},
		inboundReply("uid-7", rfp.ID, "sales@techworld.com"),
	}

	summary, err := svc.FetchAndIngest(ctx, "")
	if err != nil {
		t.Fatalf("FetchAndIngest: %v", err)
	}
	if summary.Processed != 1 || summary.Uncorrelated != 1 {
		t.Fatalf("expected 1 processed and 1 uncorrelated, got %+v", summary)
	}
}
