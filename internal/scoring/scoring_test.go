package scoring

import (
	"strings"
	"testing"

	"github.com/bryceadler/procurehub-backend/internal/types"
)

func f64(v float64) *float64 { return &v }
func str(s string) *string   { return &s }

func laptopRequest() types.RFPStructured {
	return types.RFPStructured{
		Items: []types.RFPItem{
			{Name: "High-performance Laptop", Quantity: 50, Specs: "i7, 32GB RAM"},
			{Name: "Docking Station", Quantity: 50, Specs: "USB-C"},
		},
		Budget:   "$100,000",
		Timeline: "4 weeks",
		Warranty: "3 years",
		Terms:    "Net 30",
	}
}

func TestWeightsSumToOne(t *testing.T) {
	sum := WeightPrice + WeightTimeline + WeightSpecs + WeightWarranty + WeightTerms + WeightDelivery
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("criterion weights sum to %v, want 1", sum)
	}
}

func TestZeroScoreGateOverridesFavorableTerms(t *testing.T) {
	p := types.ProposalForScoring{
		Vendor: "sales@offtopic.example",
		Data: types.ExtractedTerms{
			TotalPrice:       f64(10),
			DeliveryTimeline: str("1 day"),
			WarrantyOffered:  str("10 years"),
			PaymentTerms:     str("Net 90"),
		},
		RawText: "We sell excellent office chairs and standing desks.",
	}

	entry := Score(laptopRequest(), p)
	if entry.Score != 0 {
		t.Fatalf("score=%d, want 0 for proposal omitting all requested items", entry.Score)
	}
	if !strings.Contains(entry.Analysis, "not evidence") {
		t.Fatalf("analysis %q should state the gate tripped", entry.Analysis)
	}
}

func TestGatePassesWhenOneItemEvidenced(t *testing.T) {
	p := types.ProposalForScoring{
		Vendor:  "sales@techworld.example",
		RawText: "We can supply 50 laptops at $1,800 each.",
	}
	if !PassesItemGate(laptopRequest(), p) {
		t.Fatal("gate should pass when at least one requested item is evidenced")
	}
}

func TestGateTrivialWithoutRequiredItems(t *testing.T) {
	req := types.RFPStructured{Budget: "$5,000"}
	p := types.ProposalForScoring{Vendor: "v", RawText: "anything"}
	if !PassesItemGate(req, p) {
		t.Fatal("gate must not trip when the request names no items")
	}
}

func TestRawTextFallbackWhenStructuredFieldsAbsent(t *testing.T) {
	structured := types.ProposalForScoring{
		Vendor: "a@example.com",
		Data: types.ExtractedTerms{
			TotalPrice:       f64(95000),
			DeliveryTimeline: str("2 weeks"),
			LineItems:        []types.LineItem{{Name: "Laptop"}, {Name: "Docking Station"}},
		},
		RawText: "see structured data",
	}
	rawOnly := types.ProposalForScoring{
		Vendor:  "b@example.com",
		RawText: "Laptops and docking stations.\nPrice: $95,000\nDelivery: 2 weeks",
	}

	req := laptopRequest()
	sEntry := Score(req, structured)
	rEntry := Score(req, rawOnly)
	if rEntry.Score == 0 {
		t.Fatal("raw-text-only proposal must not score 0 when terms are inferable")
	}
	if sEntry.Score == 0 {
		t.Fatal("structured proposal must not score 0")
	}
	if priceLevel(req, rawOnly) != 100 {
		t.Fatalf("price inferred from raw text should be within budget, got level %d", priceLevel(req, rawOnly))
	}
}

func TestScoreWithinBounds(t *testing.T) {
	req := laptopRequest()
	p := types.ProposalForScoring{
		Vendor: "v@example.com",
		Data: types.ExtractedTerms{
			TotalPrice:       f64(250000),
			DeliveryTimeline: str("26 weeks"),
		},
		RawText: "Laptop proposal",
	}
	entry := Score(req, p)
	if entry.Score < 0 || entry.Score > 100 {
		t.Fatalf("score %d outside [0,100]", entry.Score)
	}
}

func TestCompareRecommendsExactlyOne(t *testing.T) {
	req := laptopRequest()
	proposals := []types.ProposalForScoring{
		{
			Vendor: "cheap@example.com",
			Data: types.ExtractedTerms{
				TotalPrice:       f64(90000),
				DeliveryTimeline: str("3 weeks"),
				WarrantyOffered:  str("3 years"),
				PaymentTerms:     str("Net 45"),
				LineItems:        []types.LineItem{{Name: "Laptop"}, {Name: "Docking Station"}},
			},
			RawText: "Full bid, laptops and docks, shipping included",
		},
		{
			Vendor:  "pricey@example.com",
			Data:    types.ExtractedTerms{TotalPrice: f64(180000)},
			RawText: "Laptops only, premium pricing",
		},
	}

	res := Compare(req, proposals)
	if len(res.Matrix) != 2 {
		t.Fatalf("matrix has %d entries, want 2", len(res.Matrix))
	}
	if res.Recommendation != "cheap@example.com" {
		t.Fatalf("recommendation=%q, want the stronger proposal", res.Recommendation)
	}
	if res.Justification == "" {
		t.Fatal("justification must accompany the recommendation")
	}
}

func TestCompareIsDeterministic(t *testing.T) {
	req := laptopRequest()
	proposals := []types.ProposalForScoring{
		{Vendor: "a@example.com", RawText: "Laptops, $99,000, 4 weeks"},
		{Vendor: "b@example.com", RawText: "Docking stations, $20,000"},
	}
	first := Compare(req, proposals)
	second := Compare(req, proposals)
	if first.Recommendation != second.Recommendation || len(first.Matrix) != len(second.Matrix) {
		t.Fatal("deterministic comparison produced differing results")
	}
	for i := range first.Matrix {
		if first.Matrix[i].Score != second.Matrix[i].Score {
			t.Fatalf("entry %d scores differ: %d vs %d", i, first.Matrix[i].Score, second.Matrix[i].Score)
		}
	}
}

func TestNormalizeClampsAndRepairsRecommendation(t *testing.T) {
	req := laptopRequest()
	proposals := []types.ProposalForScoring{
		{Vendor: "a@example.com", RawText: "Laptops at $95,000"},
		{Vendor: "b@example.com", RawText: "Laptops at $99,000"},
	}
	res := types.ComparisonResult{
		Matrix: []types.ComparisonEntry{
			{VendorID: "a@example.com", Score: 250},
			{VendorID: "ghost@example.com", Score: -10},
		},
		Recommendation: "nobody@example.com",
	}

	got := Normalize(res, req, proposals)
	for _, entry := range got.Matrix {
		if entry.Score < 0 || entry.Score > 100 {
			t.Fatalf("entry %q score %d outside [0,100]", entry.VendorID, entry.Score)
		}
		if entry.Pros == nil || entry.Cons == nil {
			t.Fatalf("entry %q has nil pros/cons", entry.VendorID)
		}
	}
	found := false
	for _, entry := range got.Matrix {
		if entry.VendorID == "b@example.com" {
			found = true
		}
	}
	if !found {
		t.Fatal("proposal missing from the matrix was not backfilled")
	}
	if got.Recommendation == "nobody@example.com" || got.Recommendation == "" {
		t.Fatalf("unknown recommendation %q was not repaired", got.Recommendation)
	}
}

func TestNormalizeEnforcesGateOnExternalResult(t *testing.T) {
	req := laptopRequest()
	proposals := []types.ProposalForScoring{
		{Vendor: "offtopic@example.com", RawText: "We sell chairs."},
		{Vendor: "ontopic@example.com", RawText: "Laptops at $95,000"},
	}
	res := types.ComparisonResult{
		Matrix: []types.ComparisonEntry{
			{VendorID: "offtopic@example.com", Score: 92},
			{VendorID: "ontopic@example.com", Score: 75},
		},
		Recommendation: "offtopic@example.com",
	}

	got := Normalize(res, req, proposals)
	for _, entry := range got.Matrix {
		if entry.VendorID == "offtopic@example.com" && entry.Score != 0 {
			t.Fatalf("gate not enforced on external result: score=%d", entry.Score)
		}
	}
	if got.Recommendation != "ontopic@example.com" {
		t.Fatalf("recommendation=%q, want re-pick after gate zeroed the original", got.Recommendation)
	}
}

func TestParseHelpers(t *testing.T) {
	if v, ok := parseMoney("$100,000"); !ok || v != 100000 {
		t.Fatalf("parseMoney($100,000)=(%v,%v)", v, ok)
	}
	if v, ok := parseMoney("around 95000 USD total"); !ok || v != 95000 {
		t.Fatalf("parseMoney(95000 USD)=(%v,%v)", v, ok)
	}
	if _, ok := parseMoney("no numbers here"); ok {
		t.Fatal("parseMoney should fail without a money phrase")
	}
	if v, ok := parseDurationDays("4 weeks"); !ok || v != 28 {
		t.Fatalf("parseDurationDays(4 weeks)=(%v,%v)", v, ok)
	}
	if v, ok := parseDurationDays("3 years onsite"); !ok || v != 1095 {
		t.Fatalf("parseDurationDays(3 years)=(%v,%v)", v, ok)
	}
	if v, ok := parseNetDays("Net 45"); !ok || v != 45 {
		t.Fatalf("parseNetDays(Net 45)=(%v,%v)", v, ok)
	}
}
