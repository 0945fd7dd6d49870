package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a deduplicated business entity, keyed conceptually by
// normalized name. Created lazily by the task processor when an extracted
// vendor name matches no existing vendor.
type Vendor struct {
	ID   uuid.UUID `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name string    `gorm:"column:name;type:varchar(200);index;not null" json:"name"`

	Email   string `gorm:"column:email;type:varchar(254)" json:"email,omitempty"`
	Phone   string `gorm:"column:phone;type:varchar(20)" json:"phone,omitempty"`
	Website string `gorm:"column:website;type:varchar(200)" json:"website,omitempty"`

	AddressLine1 string `gorm:"column:address_line_1;type:varchar(255)" json:"address_line_1,omitempty"`
	AddressLine2 string `gorm:"column:address_line_2;type:varchar(255)" json:"address_line_2,omitempty"`
	City         string `gorm:"column:city;type:varchar(100)" json:"city,omitempty"`
	State        string `gorm:"column:state;type:varchar(100)" json:"state,omitempty"`
	PostalCode   string `gorm:"column:postal_code;type:varchar(20)" json:"postal_code,omitempty"`
	Country      string `gorm:"column:country;type:varchar(100)" json:"country,omitempty"`

	TaxID                string `gorm:"column:tax_id;type:varchar(50)" json:"tax_id,omitempty"`
	BusinessRegistration string `gorm:"column:business_registration;type:varchar(100)" json:"business_registration,omitempty"`

	IsAIVerified    bool    `gorm:"column:is_ai_verified;default:false" json:"is_ai_verified"`
	ConfidenceScore float64 `gorm:"column:confidence_score;default:0" json:"confidence_score"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vendor) TableName() string { return "vendors" }

func (v *Vendor) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// FullAddress joins the populated address parts with commas.
func (v *Vendor) FullAddress() string {
	parts := []string{
		v.AddressLine1,
		v.AddressLine2,
		v.City,
		v.State,
		v.PostalCode,
		v.Country,
	}
	populated := parts[:0]
	for _, p := range parts {
		if p != "" {
			populated = append(populated, p)
		}
	}
	return strings.Join(populated, ", ")
}
