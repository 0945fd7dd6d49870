package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kynth65/ai-invoice-management/constants"
)

// Invoice is the subject record of all AI processing.
type Invoice struct {
	ID       uuid.UUID  `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	UserID   uuid.UUID  `gorm:"column:user_id;index:idx_invoices_user_status;not null" json:"user_id"`
	VendorID *uuid.UUID `gorm:"column:vendor_id;index" json:"vendor_id,omitempty"`
	Vendor   *Vendor    `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`

	InvoiceNumber string     `gorm:"column:invoice_number;type:varchar(100)" json:"invoice_number,omitempty"`
	InvoiceDate   *time.Time `gorm:"column:invoice_date;index" json:"invoice_date,omitempty"`
	DueDate       *time.Time `gorm:"column:due_date" json:"due_date,omitempty"`

	Subtotal    decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);default:0" json:"subtotal"`
	TaxAmount   decimal.Decimal `gorm:"column:tax_amount;type:decimal(12,2);default:0" json:"tax_amount"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);default:0" json:"total_amount"`
	Currency    string          `gorm:"column:currency;type:varchar(3);default:'USD'" json:"currency"`

	FilePath string `gorm:"column:file_path;type:varchar(500)" json:"file_path,omitempty"`
	FileType string `gorm:"column:file_type;type:varchar(10)" json:"file_type,omitempty"`
	FileSize int64  `gorm:"column:file_size;default:0" json:"file_size"`

	ExtractedData      datatypes.JSON `gorm:"column:extracted_data" json:"extracted_data,omitempty"`
	AIConfidenceScore  float64        `gorm:"column:ai_confidence_score;default:0" json:"ai_confidence_score"`
	IsAIProcessed      bool           `gorm:"column:is_ai_processed;default:false" json:"is_ai_processed"`
	AIProcessingStatus string         `gorm:"column:ai_processing_status;type:varchar(20);default:'pending'" json:"ai_processing_status"`

	Status        constants.InvoiceStatus `gorm:"column:status;type:varchar(20);default:'pending';index:idx_invoices_user_status" json:"status"`
	IsDuplicate   bool                    `gorm:"column:is_duplicate;default:false" json:"is_duplicate"`
	DuplicateOfID *uuid.UUID              `gorm:"column:duplicate_of_id" json:"duplicate_of_id,omitempty"`

	Notes     string `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Tags      string `gorm:"column:tags;type:varchar(500)" json:"tags,omitempty"`
	AISummary string `gorm:"column:ai_summary;type:text" json:"ai_summary,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

func (i *Invoice) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Currency == "" {
		i.Currency = "USD"
	}
	if i.Status == "" {
		i.Status = constants.InvoicePending
	}
	if i.AIProcessingStatus == "" {
		i.AIProcessingStatus = constants.AIStatusPending
	}
	return nil
}

// IsOverdue reports whether the invoice is past its due date and not in a
// terminal payment state.
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.DueDate == nil {
		return false
	}
	if i.Status == constants.InvoicePaid || i.Status == constants.InvoiceRejected {
		return false
	}
	return now.After(*i.DueDate)
}

// InvoiceItem is a line item owned by exactly one invoice. TotalPrice is
// derived from quantity and unit price on every save; it is never trusted
// from input.
type InvoiceItem struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	InvoiceID uuid.UUID `gorm:"column:invoice_id;index;not null" json:"invoice_id"`

	Description string          `gorm:"column:description;type:varchar(500);not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:decimal(10,2);default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:decimal(10,2);default:0" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"column:total_price;type:decimal(12,2);default:0" json:"total_price"`

	ProductCode   string `gorm:"column:product_code;type:varchar(100)" json:"product_code,omitempty"`
	UnitOfMeasure string `gorm:"column:unit_of_measure;type:varchar(20)" json:"unit_of_measure,omitempty"`

	AIConfidence float64 `gorm:"column:ai_confidence;default:0" json:"ai_confidence"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

func (it *InvoiceItem) BeforeCreate(_ *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// BeforeSave recomputes the derived line total.
func (it *InvoiceItem) BeforeSave(_ *gorm.DB) error {
	it.TotalPrice = it.Quantity.Mul(it.UnitPrice)
	return nil
}
