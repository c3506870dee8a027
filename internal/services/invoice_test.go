package services

import (
	"context"
	"math/rand"
	"testing"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals(t *testing.T) {
	rate := 25.0
	totals, err := ComputeTotals([]ItemInput{
		{Description: "Konsulttimmar", Quantity: 2, UnitPrice: 100, TaxRate: &rate},
		{Description: "Resa", Quantity: 1, UnitPrice: 50, TaxRate: &rate},
	})
	require.NoError(t, err)
	assert.Equal(t, 250.0, totals.Subtotal)
	assert.Equal(t, 62.5, totals.TaxAmount)
	assert.Equal(t, 312.5, totals.Total)
}

func TestComputeTotalsDefaultRate(t *testing.T) {
	totals, err := ComputeTotals([]ItemInput{
		{Description: "Timmar", Quantity: 4, UnitPrice: 250},
	})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, totals.Subtotal)
	assert.Equal(t, 250.0, totals.TaxAmount)
	assert.Equal(t, 1250.0, totals.Total)
}

func TestComputeTotalsProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := 1 + rng.Intn(8)
		items := make([]ItemInput, n)
		var wantSubtotal float64
		for j := range items {
			rate := float64(rng.Intn(101))
			items[j] = ItemInput{
				Description: "rad",
				Quantity:    float64(rng.Intn(50)),
				UnitPrice:   float64(rng.Intn(10000)) / 100,
				TaxRate:     &rate,
			}
			wantSubtotal += items[j].Quantity * items[j].UnitPrice
		}
		totals, err := ComputeTotals(items)
		require.NoError(t, err)
		assert.Equal(t, wantSubtotal, totals.Subtotal)
		assert.Equal(t, totals.Subtotal+totals.TaxAmount, totals.Total)
	}
}

func TestComputeTotalsEmptyItems(t *testing.T) {
	_, err := ComputeTotals(nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestComputeTotalsRejectsBadValues(t *testing.T) {
	bad := 150.0
	cases := []struct {
		name  string
		items []ItemInput
	}{
		{"negative quantity", []ItemInput{{Quantity: -1, UnitPrice: 10}}},
		{"negative price", []ItemInput{{Quantity: 1, UnitPrice: -10}}},
		{"tax rate out of range", []ItemInput{{Quantity: 1, UnitPrice: 10, TaxRate: &bad}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeTotals(tc.items)
			require.Error(t, err)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			assert.NotEmpty(t, apperr.FieldsOf(err))
		})
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	cases := []struct {
		last string
		want string
	}{
		{"", "INV-001"},
		{"INV-001", "INV-002"},
		{"INV-007", "INV-008"},
		{"INV-099", "INV-100"},
		{"INV-999", "INV-1000"},
		{"INV-1000", "INV-1001"},
		{"garbage", "INV-001"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NextInvoiceNumber(tc.last), "last=%q", tc.last)
	}
}

func TestInvoiceCreateAssignsSequentialNumbers(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	first, err := svc.Create(ctx, user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
		Items:      []ItemInput{{Description: "Timmar", Quantity: 2, UnitPrice: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", first.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, first.Status)
	assert.Equal(t, 200.0, first.Subtotal)
	assert.Equal(t, 50.0, first.TaxAmount)
	assert.Equal(t, 250.0, first.Total)
	assert.Equal(t, "SEK", first.Currency)
	require.Len(t, first.Items, 1)
	assert.Equal(t, 200.0, first.Items[0].LineTotal)

	second, err := svc.Create(ctx, user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
		Items:      []ItemInput{{Description: "Mer timmar", Quantity: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-002", second.InvoiceNumber)
}

func TestInvoiceNumbersSequencePerOwner(t *testing.T) {
	db := testDB(t)
	anna := seedUser(t, db, "anna@example.com")
	bo := seedUser(t, db, "bo@example.com")
	annasCustomer := seedCustomer(t, db, anna.ID, "Acme AB")
	bosCustomer := seedCustomer(t, db, bo.ID, "Bygg AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	items := []ItemInput{{Description: "Timmar", Quantity: 1, UnitPrice: 100}}

	first, err := svc.Create(ctx, anna.ID, CreateInvoiceInput{CustomerID: annasCustomer.ID, DueDate: dueIn(30), Items: items})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", first.InvoiceNumber)

	// The second owner starts their own sequence at INV-001, unaffected by
	// the first owner's invoices.
	bosFirst, err := svc.Create(ctx, bo.ID, CreateInvoiceInput{CustomerID: bosCustomer.ID, DueDate: dueIn(30), Items: items})
	require.NoError(t, err)
	assert.Equal(t, "INV-001", bosFirst.InvoiceNumber)

	annasSecond, err := svc.Create(ctx, anna.ID, CreateInvoiceInput{CustomerID: annasCustomer.ID, DueDate: dueIn(30), Items: items})
	require.NoError(t, err)
	assert.Equal(t, "INV-002", annasSecond.InvoiceNumber)
}

func TestInvoiceCreateRequiresItems(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	svc := NewInvoiceService(db)

	_, err := svc.Create(context.Background(), user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestInvoiceCreateRequiresOwnedCustomer(t *testing.T) {
	db := testDB(t)
	owner := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	foreign := seedCustomer(t, db, other.ID, "Not Yours AB")
	svc := NewInvoiceService(db)

	_, err := svc.Create(context.Background(), owner.ID, CreateInvoiceInput{
		CustomerID: foreign.ID,
		DueDate:    dueIn(30),
		Items:      []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestInvoiceCreateRollsBackOnItemFailure(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	// Drop the items table so the second insert of the transaction fails.
	require.NoError(t, db.Migrator().DropTable(&models.InvoiceItem{}))
	svc := NewInvoiceService(db)

	_, err := svc.Create(context.Background(), user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
		Items:      []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 1}},
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&count).Error)
	assert.Zero(t, count, "header must not survive a failed item insert")
}

func TestInvoiceUpdateReplacesItems(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
		Items: []ItemInput{
			{Description: "Gammal rad", Quantity: 2, UnitPrice: 100},
			{Description: "Annan rad", Quantity: 1, UnitPrice: 50},
		},
	})
	require.NoError(t, err)

	newItems := []ItemInput{{Description: "Ny rad", Quantity: 3, UnitPrice: 200}}
	updated, err := svc.Update(ctx, user.ID, inv.ID, UpdateInvoiceInput{Items: &newItems})
	require.NoError(t, err)

	require.Len(t, updated.Items, 1)
	assert.Equal(t, "Ny rad", updated.Items[0].Description)
	assert.Equal(t, 600.0, updated.Subtotal)
	assert.Equal(t, 150.0, updated.TaxAmount)
	assert.Equal(t, 750.0, updated.Total)

	var orphans int64
	require.NoError(t, db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&orphans).Error)
	assert.Equal(t, int64(1), orphans)
}

func TestInvoiceUpdateRejectsUnknownStatus(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	svc := NewInvoiceService(db)

	bad := models.InvoiceStatus("archived")
	_, err := svc.Update(context.Background(), user.ID, 1, UpdateInvoiceInput{Status: &bad})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestInvoiceOwnerScoping(t *testing.T) {
	db := testDB(t)
	owner := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	customer := seedCustomer(t, db, owner.ID, "Acme AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, owner.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
		Items:      []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, other.ID, inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err), "existence must not be disclosed")

	notes := "kapad"
	_, err = svc.Update(ctx, other.ID, inv.ID, UpdateInvoiceInput{Notes: &notes})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	err = svc.Delete(ctx, other.ID, inv.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// The invoice is untouched.
	reloaded, err := svc.Get(ctx, owner.ID, inv.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Notes)
}

func TestInvoiceMarkPaidStampsPaidAt(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(14),
		Items:      []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	sent, err := svc.MarkSent(ctx, user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, sent.Status)
	assert.Nil(t, sent.PaidAt)

	paid, err := svc.MarkPaid(ctx, user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
}

func TestInvoiceDeleteRemovesItems(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	inv, err := svc.Create(ctx, user.ID, CreateInvoiceInput{
		CustomerID: customer.ID,
		DueDate:    dueIn(30),
		Items:      []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, user.ID, inv.ID))

	var items int64
	require.NoError(t, db.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&items).Error)
	assert.Zero(t, items)
}

func TestInvoiceListFilters(t *testing.T) {
	db := testDB(t)
	user := seedUser(t, db, "owner@example.com")
	customer := seedCustomer(t, db, user.ID, "Acme AB")
	svc := NewInvoiceService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, user.ID, CreateInvoiceInput{
			CustomerID: customer.ID,
			DueDate:    dueIn(30),
			Items:      []ItemInput{{Description: "x", Quantity: 1, UnitPrice: 100}},
		})
		require.NoError(t, err)
	}

	all, total, err := svc.List(ctx, user.ID, ListInvoicesParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	matched, total, err := svc.List(ctx, user.ID, ListInvoicesParams{Search: "inv-002"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, matched, 1)
	assert.Equal(t, "INV-002", matched[0].InvoiceNumber)

	none, total, err := svc.List(ctx, user.ID, ListInvoicesParams{Status: models.InvoiceStatusPaid})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 62.5, Round2(62.5))
	assert.Equal(t, 0.1, Round2(0.1))
	assert.Equal(t, 33.33, Round2(33.333333))
	assert.Equal(t, 33.34, Round2(33.335001))
}
