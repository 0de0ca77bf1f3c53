package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bryceadler/procurehub-backend/internal/clients/mail"
	"github.com/bryceadler/procurehub-backend/internal/db"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/scoring"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection: sqlite serializes writers, and the pool must not
	// outlive the shared in-memory database.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// fakeAI is a deterministic capability that counts invocations, so tests can
// assert how often extraction and scoring actually ran.
type fakeAI struct {
	mu           sync.Mutex
	parseCalls   int
	compareCalls int
	terms        types.ExtractedTerms
}

func newFakeAI() *fakeAI {
	price := 95000.0
	warranty := "3 years"
	delivery := "2 weeks"
	return &fakeAI{
		terms: types.ExtractedTerms{
			TotalPrice:       &price,
			WarrantyOffered:  &warranty,
			DeliveryTimeline: &delivery,
		},
	}
}

func (f *fakeAI) GenerateRFPStructure(ctx context.Context, text string) (types.RFPStructured, AIProvenance) {
	return types.RFPStructured{Title: "Test RFP", Budget: "$100,000"}, ProvenanceFallbackUnconfigured
}

func (f *fakeAI) ParseVendorEmail(ctx context.Context, body string) (types.ExtractedTerms, AIProvenance) {
	f.mu.Lock()
	f.parseCalls++
	f.mu.Unlock()
	return f.terms, ProvenanceFallbackUnconfigured
}

func (f *fakeAI) CompareProposals(ctx context.Context, req types.RFPStructured, proposals []types.ProposalForScoring) (types.ComparisonResult, AIProvenance) {
	f.mu.Lock()
	f.compareCalls++
	f.mu.Unlock()
	return scoring.Compare(req, proposals), ProvenanceFallbackUnconfigured
}

func (f *fakeAI) calls() (parse, compare int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.parseCalls, f.compareCalls
}

// fakeMail serves a scripted inbound batch and records outbound sends.
type fakeMail struct {
	mu    sync.Mutex
	batch []mail.InboundEmail
	sent  []sentMail
}

type sentMail struct {
	To      string
	Subject string
	Text    string
}

func (f *fakeMail) FetchInbound(ctx context.Context, refHint string) (*mail.InboundBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &mail.InboundBatch{Messages: append([]mail.InboundEmail(nil), f.batch...)}, nil
}

func (f *fakeMail) Send(ctx context.Context, to, subject, text, html string) (mail.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Text: text})
	return mail.Receipt{MessageID: fmt.Sprintf("fake-%d", len(f.sent))}, nil
}

func (f *fakeMail) sentMails() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

func nopLog() *logger.Logger { return logger.NewNop() }

func inboundReply(uid, ref, from string) mail.InboundEmail {
	return mail.InboundEmail{
		UID:        uid,
		Subject:    fmt.Sprintf("Re: RFP Invitation: Test RFP [Ref:%s]", ref),
		From:       from,
		Text:       "Hi,\nPrice: $95,000\nWarranty: 3 years\nDelivery: 2 weeks\nThanks",
		ReceivedAt: time.Now(),
	}
}
