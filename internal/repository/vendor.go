package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
)

// VendorSpend is one row of the top-vendors aggregate.
type VendorSpend struct {
	VendorID     uuid.UUID `json:"vendor_id"`
	Name         string    `json:"name"`
	InvoiceCount int64     `json:"invoice_count"`
	TotalSpend   float64   `json:"total_spend"`
}

// VendorRepository persists vendors. Name matching is case-insensitive
// throughout; the fuzzy normalization itself lives in the llm package.
type VendorRepository interface {
	Create(ctx context.Context, v *entity.Vendor) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error)
	List(ctx context.Context) ([]*entity.Vendor, error)
	ListNames(ctx context.Context) ([]string, error)
	FindByNameExact(ctx context.Context, name string) (*entity.Vendor, error)
	FindByNameContains(ctx context.Context, name string) (*entity.Vendor, error)
	TopByInvoiceTotal(ctx context.Context, limit int) ([]VendorSpend, error)
}

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, v *entity.Vendor) error {
	if strings.TrimSpace(v.Name) == "" {
		return common.NewAppError("VENDOR_NAME_REQUIRED", "vendor name must not be empty", common.ErrInvalidInput)
	}
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return common.WrapError(err, "create vendor")
	}
	return nil
}

func (r *vendorRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "get vendor")
	}
	return &v, nil
}

func (r *vendorRepository) List(ctx context.Context) ([]*entity.Vendor, error) {
	var vendors []*entity.Vendor
	if err := r.db.WithContext(ctx).Order("name asc").Find(&vendors).Error; err != nil {
		return nil, common.WrapError(err, "list vendors")
	}
	return vendors, nil
}

func (r *vendorRepository) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&entity.Vendor{}).
		Order("name asc").
		Pluck("name", &names).Error
	if err != nil {
		return nil, common.WrapError(err, "list vendor names")
	}
	return names, nil
}

func (r *vendorRepository) FindByNameExact(ctx context.Context, name string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).
		Where("lower(name) = lower(?)", name).
		First(&v).Error
	if err == gorm.ErrRecordNotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "find vendor")
	}
	return &v, nil
}

// likeEscaper neutralizes LIKE metacharacters so extracted vendor names
// are matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *vendorRepository) FindByNameContains(ctx context.Context, name string) (*entity.Vendor, error) {
	var v entity.Vendor
	err := r.db.WithContext(ctx).
		Where(`lower(name) LIKE lower(?) ESCAPE '\'`, "%"+likeEscaper.Replace(name)+"%").
		First(&v).Error
	if err == gorm.ErrRecordNotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "find vendor")
	}
	return &v, nil
}

// TopByInvoiceTotal aggregates invoice totals per vendor, highest spend
// first.
func (r *vendorRepository) TopByInvoiceTotal(ctx context.Context, limit int) ([]VendorSpend, error) {
	var rows []VendorSpend
	err := r.db.WithContext(ctx).
		Model(&entity.Invoice{}).
		Select("vendors.id as vendor_id, vendors.name as name, count(invoices.id) as invoice_count, sum(invoices.total_amount) as total_spend").
		Joins("JOIN vendors ON vendors.id = invoices.vendor_id").
		Group("vendors.id, vendors.name").
		Order("total_spend desc").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, common.WrapError(err, "top vendors")
	}
	return rows, nil
}
