package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kynth65/ai-invoice-management/internal/common"
	"github.com/kynth65/ai-invoice-management/internal/entity"
)

func TestInvoiceCreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	invoices := NewInvoiceRepository(db)
	vendors := NewVendorRepository(db)

	vendor := &entity.Vendor{Name: "Acme Inc"}
	require.NoError(t, vendors.Create(ctx, vendor))

	inv := &entity.Invoice{
		UserID:      uuid.New(),
		VendorID:    &vendor.ID,
		TotalAmount: decimal.NewFromFloat(125.50),
	}
	require.NoError(t, invoices.Create(ctx, inv))
	require.NoError(t, invoices.CreateItems(ctx, []*entity.InvoiceItem{{
		InvoiceID:   inv.ID,
		Description: "Widgets",
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.NewFromFloat(62.75),
	}}))

	got, err := invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "USD", got.Currency)
	require.NotNil(t, got.Vendor)
	require.Equal(t, "Acme Inc", got.Vendor.Name)
	require.Len(t, got.Items, 1)
	require.True(t, got.Items[0].TotalPrice.Equal(decimal.NewFromFloat(125.50)))

	_, err = invoices.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestInvoiceListFilters(t *testing.T) {
	ctx := context.Background()
	invoices := NewInvoiceRepository(testDB(t))

	alice, bob := uuid.New(), uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, invoices.Create(ctx, &entity.Invoice{UserID: alice}))
	}
	require.NoError(t, invoices.Create(ctx, &entity.Invoice{UserID: bob}))

	got, err := invoices.List(ctx, InvoiceFilter{UserID: alice})
	require.NoError(t, err)
	require.Len(t, got, 3)

	got, err = invoices.List(ctx, InvoiceFilter{UserID: alice, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = invoices.List(ctx, InvoiceFilter{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, got, 4)
}

func TestRecentForComparison(t *testing.T) {
	ctx := context.Background()
	invoices := NewInvoiceRepository(testDB(t))

	userID := uuid.New()
	candidate := &entity.Invoice{UserID: userID}
	require.NoError(t, invoices.Create(ctx, candidate))
	other := &entity.Invoice{UserID: userID}
	require.NoError(t, invoices.Create(ctx, other))
	stranger := &entity.Invoice{UserID: uuid.New()}
	require.NoError(t, invoices.Create(ctx, stranger))

	since := time.Now().UTC().Add(-30 * 24 * time.Hour)
	got, err := invoices.RecentForComparison(ctx, userID, candidate.ID, since, 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "excludes the candidate and other users")
	require.Equal(t, other.ID, got[0].ID)
}

func TestVendorNameLookups(t *testing.T) {
	ctx := context.Background()
	vendors := NewVendorRepository(testDB(t))

	require.NoError(t, vendors.Create(ctx, &entity.Vendor{Name: "Microsoft Corporation"}))

	v, err := vendors.FindByNameExact(ctx, "microsoft corporation")
	require.NoError(t, err)
	require.Equal(t, "Microsoft Corporation", v.Name)

	v, err = vendors.FindByNameContains(ctx, "microsoft")
	require.NoError(t, err)
	require.Equal(t, "Microsoft Corporation", v.Name)

	_, err = vendors.FindByNameExact(ctx, "Globex")
	require.ErrorIs(t, err, common.ErrNotFound)

	err = vendors.Create(ctx, &entity.Vendor{Name: "   "})
	require.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestFindByNameContainsMatchesLiterally(t *testing.T) {
	ctx := context.Background()
	vendors := NewVendorRepository(testDB(t))

	require.NoError(t, vendors.Create(ctx, &entity.Vendor{Name: "100% Cotton Co"}))

	v, err := vendors.FindByNameContains(ctx, "100% Cotton")
	require.NoError(t, err)
	require.Equal(t, "100% Cotton Co", v.Name)

	// "_" and "%" in the query are literal characters, not wildcards.
	_, err = vendors.FindByNameContains(ctx, "100_ Cotton")
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = vendors.FindByNameContains(ctx, "100%%")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestTopByInvoiceTotal(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	invoices := NewInvoiceRepository(db)
	vendors := NewVendorRepository(db)

	acme := &entity.Vendor{Name: "Acme Inc"}
	globex := &entity.Vendor{Name: "Globex Corporation"}
	require.NoError(t, vendors.Create(ctx, acme))
	require.NoError(t, vendors.Create(ctx, globex))

	userID := uuid.New()
	require.NoError(t, invoices.Create(ctx, &entity.Invoice{UserID: userID, VendorID: &acme.ID, TotalAmount: decimal.NewFromInt(100)}))
	require.NoError(t, invoices.Create(ctx, &entity.Invoice{UserID: userID, VendorID: &acme.ID, TotalAmount: decimal.NewFromInt(200)}))
	require.NoError(t, invoices.Create(ctx, &entity.Invoice{UserID: userID, VendorID: &globex.ID, TotalAmount: decimal.NewFromInt(50)}))

	rows, err := vendors.TopByInvoiceTotal(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Acme Inc", rows[0].Name)
	require.Equal(t, int64(2), rows[0].InvoiceCount)
	require.InDelta(t, 300.0, rows[0].TotalSpend, 0.001)
	require.Equal(t, "Globex Corporation", rows[1].Name)
}
