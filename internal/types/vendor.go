package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is an address-book entry. Email is the matching key used to link
// inbound proposals to a vendor record.
type Vendor struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	Email         string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	ContactPerson string    `gorm:"column:contact_person" json:"contact_person"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Vendor) TableName() string { return "vendor" }

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
