package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bryceadler/procurehub-backend/internal/clients/ai"
	"github.com/bryceadler/procurehub-backend/internal/logger"
	"github.com/bryceadler/procurehub-backend/internal/observability"
	"github.com/bryceadler/procurehub-backend/internal/scoring"
	"github.com/bryceadler/procurehub-backend/internal/types"
)

// AIProvenance reports how a capability answer was produced. Callers and
// operators can tell a live judgment from the deterministic fallback, and an
// unconfigured capability from one that failed at call time.
type AIProvenance string

const (
	ProvenanceLive                 AIProvenance = types.ExtractionLive
	ProvenanceFallbackUnconfigured AIProvenance = types.ExtractionFallbackUnconfigured
	ProvenanceFallbackError        AIProvenance = types.ExtractionFallbackError
)

// AIService is the extraction/scoring capability. Failures never propagate:
// every method returns a usable value plus its provenance.
type AIService interface {
	GenerateRFPStructure(ctx context.Context, text string) (types.RFPStructured, AIProvenance)
	ParseVendorEmail(ctx context.Context, body string) (types.ExtractedTerms, AIProvenance)
	CompareProposals(ctx context.Context, req types.RFPStructured, proposals []types.ProposalForScoring) (types.ComparisonResult, AIProvenance)
}

// NewAIService decides mock-vs-live once, at construction. Call sites never
// re-check configuration.
func NewAIService(log *logger.Logger, metrics *observability.Metrics) AIService {
	client, err := ai.NewClient(log)
	if err != nil {
		log.Warn("AI capability unconfigured, using deterministic fallback service", "error", err)
		return &mockAIService{log: log.With("service", "MockAIService"), metrics: metrics}
	}
	log.Info("AI capability configured, using live service")
	return &liveAIService{log: log.With("service", "AIService"), metrics: metrics, client: client}
}

// ---- deterministic fallback values ----

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func fallbackRFPStructure(text string) types.RFPStructured {
	return types.RFPStructured{
		Title: "Mock RFP: " + truncate(text, 20),
		Items: []types.RFPItem{
			{Name: "High-performance Laptop", Quantity: 50, Specs: "i7, 32GB RAM, 1TB SSD"},
			{Name: "Docking Station", Quantity: 50, Specs: "USB-C, Dual HDMI"},
		},
		Budget:   "$100,000",
		Timeline: "4 weeks",
		Warranty: "3 years onsite",
		Terms:    "Net 30",
	}
}

func fallbackEmailParse() types.ExtractedTerms {
	name := "Mock Vendor Inc"
	price := 95000.0
	currency := "USD"
	laptopPrice, dockPrice := 1800.0, 100.0
	qty := 50
	delivery := "3 weeks"
	warranty := "3 years"
	terms := "Net 45"
	return types.ExtractedTerms{
		VendorName: &name,
		TotalPrice: &price,
		Currency:   &currency,
		LineItems: []types.LineItem{
			{Name: "Laptop", Price: &laptopPrice, Quantity: &qty},
			{Name: "Dock", Price: &dockPrice, Quantity: &qty},
		},
		DeliveryTimeline: &delivery,
		WarrantyOffered:  &warranty,
		PaymentTerms:     &terms,
	}
}

// ---- mock service ----

type mockAIService struct {
	log     *logger.Logger
	metrics *observability.Metrics
}

func (s *mockAIService) GenerateRFPStructure(ctx context.Context, text string) (types.RFPStructured, AIProvenance) {
	return fallbackRFPStructure(text), ProvenanceFallbackUnconfigured
}

func (s *mockAIService) ParseVendorEmail(ctx context.Context, body string) (types.ExtractedTerms, AIProvenance) {
	s.metrics.ExtractionFallback(string(ProvenanceFallbackUnconfigured))
	return fallbackEmailParse(), ProvenanceFallbackUnconfigured
}

func (s *mockAIService) CompareProposals(ctx context.Context, req types.RFPStructured, proposals []types.ProposalForScoring) (types.ComparisonResult, AIProvenance) {
	s.metrics.ScoringCall(string(ProvenanceFallbackUnconfigured))
	return scoring.Compare(req, proposals), ProvenanceFallbackUnconfigured
}

// ---- live service ----

type liveAIService struct {
	log     *logger.Logger
	metrics *observability.Metrics
	client  ai.Client
}

const structurePrompt = "You are an expert procurement assistant. Your goal is to extract structured data from a natural language RFP description. Output strictly valid JSON."

func (s *liveAIService) GenerateRFPStructure(ctx context.Context, text string) (types.RFPStructured, AIProvenance) {
	user := fmt.Sprintf(`Analyze the following request and extract:
- items (name, quantity, specs)
- budget
- timeline
- warranty
- terms

Request: %s

Output JSON format:
{
  "title": "Short descriptive title",
  "items": [{ "name": "...", "quantity": 0, "specs": "..." }],
  "budget": "...",
  "timeline": "...",
  "warranty": "...",
  "terms": "..."
}`, text)

	var out types.RFPStructured
	if err := s.client.ChatJSON(ctx, structurePrompt, user, &out); err != nil {
		s.log.Error("RFP structuring failed, using fallback structure", "error", err)
		return fallbackRFPStructure(text), ProvenanceFallbackError
	}
	return out, ProvenanceLive
}

const extractionPrompt = "You are a data extraction engine. Extract commercial details from the following vendor email text. If data is missing, mark as null."

func (s *liveAIService) ParseVendorEmail(ctx context.Context, body string) (types.ExtractedTerms, AIProvenance) {
	user := fmt.Sprintf(`Email Content:
%s

Extract the following in JSON:
- vendor_name (if apparent)
- total_price (numeric)
- currency
- line_items (name, price, quantity)
- delivery_timeline
- warranty_offered
- payment_terms`, body)

	var out types.ExtractedTerms
	if err := s.client.ChatJSON(ctx, extractionPrompt, user, &out); err != nil {
		s.log.Error("Email extraction failed, using fallback terms", "error", err)
		s.metrics.ExtractionFallback(string(ProvenanceFallbackError))
		return fallbackEmailParse(), ProvenanceFallbackError
	}
	return out, ProvenanceLive
}

const comparisonPrompt = "You are a procurement decision support AI. Compare the following proposals against the original RFP requirements."

func (s *liveAIService) CompareProposals(ctx context.Context, req types.RFPStructured, proposals []types.ProposalForScoring) (types.ComparisonResult, AIProvenance) {
	reqJSON, _ := json.Marshal(req)
	propJSON, _ := json.Marshal(proposals)

	user := fmt.Sprintf(`RFP Requirements: %s

Proposals:
%s

Task:
1. Analyze both 'data' (structured) and 'raw_text' (original email).
2. If 'data' is missing fields, infer them from 'raw_text'.
3. Score should be 0 if the proposal does not contain the required items/products; skip the weighted criteria for it.
4. Score each proposal (0-100) based on Price (30%%), Timeline (20%%), Specs (20%%), Warranty (10%%), Terms (10%%), Delivery (10%%).
5. Recommend the best vendor.
6. Provide a justification.
7. List Pros/Cons for each.
8. Provide a short 'analysis' for each vendor explaining their score.

Output JSON:
{
  "comparison_matrix": [
    { "vendor_id": "...", "score": 85, "analysis": "...", "pros": [], "cons": [] }
  ],
  "recommendation": "Vendor X",
  "justification": "..."
}`, reqJSON, propJSON)

	var out types.ComparisonResult
	if err := s.client.ChatJSON(ctx, comparisonPrompt, user, &out); err != nil {
		s.log.Error("Comparison failed, using deterministic scorer", "error", err)
		s.metrics.ScoringCall(string(ProvenanceFallbackError))
		return scoring.Compare(req, proposals), ProvenanceFallbackError
	}
	s.metrics.ScoringCall(string(ProvenanceLive))
	// The weighting rule and zero-score gate are contractual no matter who
	// produced the judgment.
	return scoring.Normalize(out, req, proposals), ProvenanceLive
}
