// Package scoring owns the comparison contract: the criterion weights, the
// zero-score gate for proposals that do not evidence the requested items,
// and the normalization applied to every comparison result no matter which
// capability produced it. The deterministic scorer here is also the fallback
// judgment when the external capability is unavailable.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bryceadler/procurehub-backend/internal/types"
)

// Criterion weights. These sum to 1 and are an observable business rule.
const (
	WeightPrice    = 0.30
	WeightTimeline = 0.20
	WeightSpecs    = 0.20
	WeightWarranty = 0.10
	WeightTerms    = 0.10
	WeightDelivery = 0.10
)

// Neutral criterion levels when a signal is present but unjudgeable, or
// absent entirely. Absence is never an automatic failure.
const (
	levelPartial = 65
	levelUnknown = 40
)

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true,
	"unit": true, "units": true, "per": true,
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokensOf(s string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) < 3 || stopwords[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// proposalCorpus is the text an item match is searched in: structured line
// item names first, raw email text as the fallback signal source.
func proposalCorpus(p types.ProposalForScoring) []string {
	var sb strings.Builder
	for _, li := range p.Data.LineItems {
		sb.WriteString(li.Name)
		sb.WriteString(" ")
	}
	sb.WriteString(p.RawText)
	return tokensOf(sb.String())
}

func tokenMatches(a, b string) bool {
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}

// ItemEvidenced reports whether the proposal gives any evidence of the
// requested item. The matching policy is deliberately explicit and
// deterministic: an item counts as evidenced when at least one of its name
// tokens (lowercased, alphanumeric, length >= 3, stopwords removed) matches
// a token of the proposal's line items or raw text, where "matches" means
// one token is a prefix of the other (laptop/laptops, dock/docking).
func ItemEvidenced(item types.RFPItem, corpus []string) bool {
	for _, want := range tokensOf(item.Name) {
		for _, have := range corpus {
			if tokenMatches(want, have) {
				return true
			}
		}
	}
	return false
}

// PassesItemGate reports whether the proposal clears the zero-score gate.
// The gate trips only when the request names items and the proposal
// evidences none of them.
func PassesItemGate(req types.RFPStructured, p types.ProposalForScoring) bool {
	if len(req.Items) == 0 {
		return true
	}
	corpus := proposalCorpus(p)
	for _, item := range req.Items {
		if ItemEvidenced(item, corpus) {
			return true
		}
	}
	return false
}

var moneyPattern = regexp.MustCompile(`[$€£]\s*([0-9][0-9,]*(?:\.[0-9]+)?)|([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:usd|eur|gbp|dollars)`)

func parseMoney(s string) (float64, bool) {
	m := moneyPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var durationPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(day|week|month|year)s?`)

// parseDurationDays reads the first "<n> days/weeks/months/years" phrase.
func parseDurationDays(s string) (float64, bool) {
	m := durationPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	switch m[2] {
	case "week":
		v *= 7
	case "month":
		v *= 30
	case "year":
		v *= 365
	}
	return v, true
}

var netTermsPattern = regexp.MustCompile(`net\s*-?\s*([0-9]+)`)

func parseNetDays(s string) (float64, bool) {
	m := netTermsPattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func clampLevel(v float64) int {
	return int(math.Round(math.Min(100, math.Max(0, v))))
}

func strOrRaw(field *string, raw string) string {
	if field != nil && strings.TrimSpace(*field) != "" {
		return *field
	}
	return raw
}

func priceLevel(req types.RFPStructured, p types.ProposalForScoring) int {
	var offered float64
	var ok bool
	if p.Data.TotalPrice != nil {
		offered, ok = *p.Data.TotalPrice, true
	} else {
		offered, ok = parseMoney(p.RawText)
	}
	if !ok {
		return levelUnknown
	}
	budget, ok := parseMoney(req.Budget)
	if !ok || offered <= 0 {
		return levelPartial
	}
	if offered <= budget {
		return 100
	}
	return clampLevel(budget / offered * 100)
}

func timelineLevel(req types.RFPStructured, p types.ProposalForScoring) int {
	offered, ok := parseDurationDays(strOrRaw(p.Data.DeliveryTimeline, p.RawText))
	if !ok {
		return levelUnknown
	}
	required, ok := parseDurationDays(req.Timeline)
	if !ok || offered <= 0 {
		return levelPartial
	}
	if offered <= required {
		return 100
	}
	return clampLevel(required / offered * 100)
}

func specsLevel(req types.RFPStructured, p types.ProposalForScoring) (int, int, int) {
	if len(req.Items) == 0 {
		return 60, 0, 0
	}
	corpus := proposalCorpus(p)
	matched := 0
	for _, item := range req.Items {
		if ItemEvidenced(item, corpus) {
			matched++
		}
	}
	return clampLevel(float64(matched) / float64(len(req.Items)) * 100), matched, len(req.Items)
}

func warrantyLevel(req types.RFPStructured, p types.ProposalForScoring) int {
	source := strOrRaw(p.Data.WarrantyOffered, warrantyContext(p.RawText))
	offered, ok := parseDurationDays(source)
	if !ok {
		return levelUnknown
	}
	required, ok := parseDurationDays(req.Warranty)
	if !ok || required <= 0 {
		return levelPartial
	}
	if offered >= required {
		return 100
	}
	return clampLevel(offered / required * 100)
}

// warrantyContext narrows raw text to lines mentioning warranty so a
// delivery figure is not mistaken for a warranty period.
func warrantyContext(raw string) string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.Contains(strings.ToLower(line), "warrant") {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func termsLevel(req types.RFPStructured, p types.ProposalForScoring) int {
	offered, ok := parseNetDays(strOrRaw(p.Data.PaymentTerms, p.RawText))
	if !ok {
		return levelUnknown
	}
	required, ok := parseNetDays(req.Terms)
	if !ok || required <= 0 {
		return levelPartial
	}
	// Longer payment terms favor the buyer.
	if offered >= required {
		return 100
	}
	return clampLevel(offered / required * 100)
}

var logisticsStrong = []string{"free shipping", "shipping included", "delivery included", "onsite", "on-site", "installation"}

func deliveryLevel(p types.ProposalForScoring) int {
	text := strings.ToLower(p.RawText)
	if p.Data.DeliveryTimeline != nil {
		text += " " + strings.ToLower(*p.Data.DeliveryTimeline)
	}
	for _, kw := range logisticsStrong {
		if strings.Contains(text, kw) {
			return 85
		}
	}
	if strings.Contains(text, "shipping") || strings.Contains(text, "deliver") {
		return 60
	}
	return 45
}

// Score evaluates one proposal against the request. If the proposal does not
// evidence any requested item the score is 0 and the weighted criteria are
// skipped entirely.
func Score(req types.RFPStructured, p types.ProposalForScoring) types.ComparisonEntry {
	entry := types.ComparisonEntry{
		VendorID: p.Vendor,
		Pros:     []string{},
		Cons:     []string{},
	}

	if !PassesItemGate(req, p) {
		entry.Score = 0
		entry.Analysis = "Proposal does not evidence any of the requested items; remaining criteria were not evaluated."
		entry.Cons = append(entry.Cons, "None of the requested items appear in the proposal")
		return entry
	}

	price := priceLevel(req, p)
	timeline := timelineLevel(req, p)
	specs, matched, total := specsLevel(req, p)
	warranty := warrantyLevel(req, p)
	terms := termsLevel(req, p)
	delivery := deliveryLevel(p)

	composite := WeightPrice*float64(price) +
		WeightTimeline*float64(timeline) +
		WeightSpecs*float64(specs) +
		WeightWarranty*float64(warranty) +
		WeightTerms*float64(terms) +
		WeightDelivery*float64(delivery)
	entry.Score = clampLevel(composite)

	if price >= 100 {
		entry.Pros = append(entry.Pros, "Within budget")
	} else if price < 50 {
		entry.Cons = append(entry.Cons, "Priced well above budget")
	}
	if timeline >= 100 {
		entry.Pros = append(entry.Pros, "Meets the requested timeline")
	} else if timeline < 50 {
		entry.Cons = append(entry.Cons, "Delivery slower than requested")
	}
	if total > 0 && matched == total {
		entry.Pros = append(entry.Pros, "Covers all requested items")
	} else if total > 0 {
		entry.Cons = append(entry.Cons, fmt.Sprintf("Covers %d of %d requested items", matched, total))
	}
	if warranty >= 100 {
		entry.Pros = append(entry.Pros, "Warranty meets requirements")
	} else if warranty < 50 {
		entry.Cons = append(entry.Cons, "Warranty below requirements or unstated")
	}
	if terms >= 100 {
		entry.Pros = append(entry.Pros, "Favorable payment terms")
	}

	entry.Analysis = fmt.Sprintf(
		"Weighted %d/100 (price %d, timeline %d, specs %d, warranty %d, terms %d, delivery %d).",
		entry.Score, price, timeline, specs, warranty, terms, delivery,
	)
	return entry
}

// Compare produces a full deterministic comparison: every proposal scored,
// exactly one recommendation, and a justification referencing the margin.
func Compare(req types.RFPStructured, proposals []types.ProposalForScoring) types.ComparisonResult {
	result := types.ComparisonResult{Matrix: make([]types.ComparisonEntry, 0, len(proposals))}

	best := -1
	for i, p := range proposals {
		entry := Score(req, p)
		result.Matrix = append(result.Matrix, entry)
		if best < 0 || entry.Score > result.Matrix[best].Score {
			best = i
		}
	}
	if best < 0 {
		return result
	}

	winner := result.Matrix[best]
	result.Recommendation = winner.VendorID
	if len(proposals) == 1 {
		result.Justification = fmt.Sprintf("%s is the only proposal received, scoring %d/100 on the weighted criteria.", winner.VendorID, winner.Score)
	} else {
		result.Justification = fmt.Sprintf(
			"%s ranked first at %d/100 across %d proposals, with the strongest balance of price, delivery timeline and specification match.",
			winner.VendorID, winner.Score, len(proposals),
		)
	}
	return result
}

// Normalize repairs a comparison result so the contract holds regardless of
// which capability produced it: the zero-score gate is enforced, scores are
// clamped to [0,100], every proposal has a matrix entry, and exactly one
// recommendation is present.
func Normalize(res types.ComparisonResult, req types.RFPStructured, proposals []types.ProposalForScoring) types.ComparisonResult {
	byVendor := make(map[string]int, len(res.Matrix))
	for i := range res.Matrix {
		entry := &res.Matrix[i]
		if entry.Score < 0 {
			entry.Score = 0
		}
		if entry.Score > 100 {
			entry.Score = 100
		}
		if entry.Pros == nil {
			entry.Pros = []string{}
		}
		if entry.Cons == nil {
			entry.Cons = []string{}
		}
		byVendor[entry.VendorID] = i
	}

	for _, p := range proposals {
		idx, ok := byVendor[p.Vendor]
		if !ok {
			res.Matrix = append(res.Matrix, Score(req, p))
			byVendor[p.Vendor] = len(res.Matrix) - 1
			continue
		}
		if !PassesItemGate(req, p) && res.Matrix[idx].Score != 0 {
			res.Matrix[idx].Score = 0
			res.Matrix[idx].Analysis = "Proposal does not evidence any of the requested items; score forced to 0."
		}
	}

	best := -1
	for i, entry := range res.Matrix {
		if best < 0 || entry.Score > res.Matrix[best].Score {
			best = i
		}
	}

	recIdx, recKnown := byVendor[res.Recommendation]
	repick := res.Recommendation == "" || !recKnown
	// A recommendation zeroed by the gate cannot stand while a scoring
	// proposal exists.
	if recKnown && best >= 0 && res.Matrix[recIdx].Score == 0 && res.Matrix[best].Score > 0 {
		repick = true
	}
	if repick && best >= 0 {
		res.Recommendation = res.Matrix[best].VendorID
		res.Justification = fmt.Sprintf("%s holds the highest weighted score of %d/100.", res.Matrix[best].VendorID, res.Matrix[best].Score)
	}
	return res
}
