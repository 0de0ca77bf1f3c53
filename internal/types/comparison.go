package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Comparison is the cached ranking for one RFP. It is a derived artifact:
// valid only while Fingerprint matches the live proposal set, and safe to
// delete and recompute at any time.
type Comparison struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RFPID          string         `gorm:"column:rfp_id;type:char(24);not null;uniqueIndex" json:"rfp_id"`
	Matrix         datatypes.JSON `gorm:"column:matrix;type:jsonb" json:"matrix"`
	Recommendation string         `gorm:"column:recommendation" json:"recommendation"`
	Justification  string         `gorm:"column:justification" json:"justification"`
	ProposalCount  int            `gorm:"column:proposal_count;not null" json:"proposal_count"`
	Fingerprint    string         `gorm:"column:fingerprint;not null" json:"fingerprint"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Comparison) TableName() string { return "comparison" }

func (c *Comparison) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type ComparisonEntry struct {
	VendorID string   `json:"vendor_id"`
	Score    int      `json:"score"`
	Analysis string   `json:"analysis"`
	Pros     []string `json:"pros"`
	Cons     []string `json:"cons"`
}

// ComparisonResult is the ranked comparison returned to callers.
type ComparisonResult struct {
	Matrix         []ComparisonEntry `json:"comparison_matrix"`
	Recommendation string            `json:"recommendation"`
	Justification  string            `json:"justification"`
}

// ProposalForScoring is the view of a proposal handed to the scoring
// capability: structured terms plus the raw email as a fallback signal.
type ProposalForScoring struct {
	ID      string         `json:"id"`
	Vendor  string         `json:"vendor"`
	Data    ExtractedTerms `json:"data"`
	RawText string         `json:"raw_text"`
}
