package types

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RFPStatusDraft  = "Draft"
	RFPStatusOpen   = "Open"
	RFPStatusClosed = "Closed"
)

// RFP is a structured purchase request sent out to vendors. Its primary key
// is the 24-hex reference token embedded in invitation subjects, so vendor
// replies can be correlated back to it.
type RFP struct {
	ID             string         `gorm:"type:char(24);primaryKey" json:"id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Status         string         `gorm:"column:status;not null;default:'Draft'" json:"status"`
	Content        string         `gorm:"column:content;not null" json:"content"`
	StructuredData datatypes.JSON `gorm:"column:structured_data;type:jsonb" json:"structured_data"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RFP) TableName() string { return "rfp" }

func (r *RFP) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewRFPRef()
	}
	return nil
}

// NewRFPRef generates a 24-character lowercase hex reference.
func NewRFPRef() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

type RFPItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Specs    string `json:"specs"`
}

// RFPStructured is the structured requirements blob stored on an RFP.
type RFPStructured struct {
	Title    string    `json:"title,omitempty"`
	Items    []RFPItem `json:"items"`
	Budget   string    `json:"budget"`
	Timeline string    `json:"timeline"`
	Warranty string    `json:"warranty"`
	Terms    string    `json:"terms"`
}
