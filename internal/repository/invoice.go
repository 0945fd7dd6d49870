package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
)

// InvoiceFilter narrows List results. Zero values mean "no constraint".
type InvoiceFilter struct {
	UserID uuid.UUID
	Status string
	Limit  int
	Offset int
}

// InvoiceRepository persists invoices and their line items.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error)
	Save(ctx context.Context, inv *entity.Invoice) error
	RecentForComparison(ctx context.Context, userID, excludeID uuid.UUID, since time.Time, limit int) ([]*entity.Invoice, error)
	CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	CreateItems(ctx context.Context, items []*entity.InvoiceItem) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	if err := r.db.WithContext(ctx).Create(inv).Error; err != nil {
		return common.WrapError(err, "create invoice")
	}
	return nil
}

func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Vendor").
		First(&inv, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get invoice")
	}
	return &inv, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error) {
	q := r.db.WithContext(ctx).Preload("Vendor").Order("created_at desc")
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var invoices []*entity.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, common.WrapError(err, "list invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) Save(ctx context.Context, inv *entity.Invoice) error {
	if err := r.db.WithContext(ctx).Save(inv).Error; err != nil {
		return common.WrapError(err, "save invoice")
	}
	return nil
}

// RecentForComparison returns the same owner's invoices created since the
// given time, newest first, excluding the candidate itself. This is the
// comparison window for duplicate detection.
func (r *invoiceRepository) RecentForComparison(ctx context.Context, userID, excludeID uuid.UUID, since time.Time, limit int) ([]*entity.Invoice, error) {
	var invoices []*entity.Invoice
	err := r.db.WithContext(ctx).
		Preload("Vendor").
		Where("user_id = ? AND id <> ? AND created_at >= ?", userID, excludeID, since).
		Order("created_at desc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, common.WrapError(err, "list comparison invoices")
	}
	return invoices, nil
}

func (r *invoiceRepository) CountItems(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&entity.InvoiceItem{}).
		Where("invoice_id = ?", invoiceID).
		Count(&n).Error
	if err != nil {
		return 0, common.WrapError(err, "count invoice items")
	}
	return n, nil
}

func (r *invoiceRepository) CreateItems(ctx context.Context, items []*entity.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(items).Error; err != nil {
		return common.WrapError(err, "create invoice items")
	}
	return nil
}
