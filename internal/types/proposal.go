package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Extraction provenance recorded on every proposal. "live" means the
// extraction capability produced the terms; the fallback values distinguish
// a capability that was never configured from one that failed at call time.
const (
	ExtractionLive                 = "live"
	ExtractionFallbackUnconfigured = "fallback_unconfigured"
	ExtractionFallbackError        = "fallback_error"
)

// Proposal is a vendor's parsed reply to an RFP. EmailUID is the inbound
// message identity and must be unique across all proposals; it is the
// idempotency key that prevents the same message from being ingested twice.
type Proposal struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RFPID            string         `gorm:"column:rfp_id;type:char(24);not null;index" json:"rfp_id"`
	VendorID         *uuid.UUID     `gorm:"type:uuid;index" json:"vendor_id,omitempty"`
	Vendor           *Vendor        `gorm:"foreignKey:VendorID;references:ID" json:"vendor,omitempty"`
	VendorEmail      string         `gorm:"column:vendor_email" json:"vendor_email"`
	EmailUID         string         `gorm:"column:email_uid;not null;uniqueIndex" json:"email_uid"`
	EmailContent     string         `gorm:"column:email_content" json:"email_content"`
	ExtractedData    datatypes.JSON `gorm:"column:extracted_data;type:jsonb" json:"extracted_data"`
	ExtractionStatus string         `gorm:"column:extraction_status;not null;default:'live'" json:"extraction_status"`
	AIAnalysis       datatypes.JSON `gorm:"column:ai_analysis;type:jsonb" json:"ai_analysis,omitempty"`
	ReceivedAt       time.Time      `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Proposal) TableName() string { return "proposal" }

func (p *Proposal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.ReceivedAt.IsZero() {
		p.ReceivedAt = time.Now()
	}
	return nil
}

type LineItem struct {
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *int     `json:"quantity"`
}

// ExtractedTerms are the structured commercial terms pulled out of a vendor
// email. Every field is independently nullable; a sparse reply is normal.
type ExtractedTerms struct {
	VendorName       *string    `json:"vendor_name"`
	TotalPrice       *float64   `json:"total_price"`
	Currency         *string    `json:"currency"`
	LineItems        []LineItem `json:"line_items"`
	DeliveryTimeline *string    `json:"delivery_timeline"`
	WarrantyOffered  *string    `json:"warranty_offered"`
	PaymentTerms     *string    `json:"payment_terms"`
}
