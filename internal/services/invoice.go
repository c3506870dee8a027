package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/models"
	"github.com/diewo77/fakturera/internal/obs"
	"gorm.io/gorm"
)

// DefaultTaxRate is the Swedish VAT applied when an item omits its rate.
const DefaultTaxRate = 25.0

var invoiceNumberPattern = regexp.MustCompile(`INV-(\d+)`)

// ItemInput is one submitted invoice line. TaxRate nil means DefaultTaxRate.
type ItemInput struct {
	ProductID   *uint    `json:"product_id,omitempty"`
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   float64  `json:"unit_price"`
	TaxRate     *float64 `json:"tax_rate,omitempty"`
}

// Totals aggregates the derived amounts of an invoice. Values carry full
// float64 precision; rounding to the currency's minor unit happens only when
// persisting.
type Totals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// ComputeTotals derives the invoice amounts from its line inputs. It is a pure
// function: no side effects, independently testable.
func ComputeTotals(items []ItemInput) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, apperr.Validation("invoice_items_required", map[string]string{"items": "required"})
	}
	var t Totals
	for i, item := range items {
		fields := map[string]string{}
		if item.Quantity < 0 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must_not_be_negative"
		}
		if item.UnitPrice < 0 {
			fields[fmt.Sprintf("items[%d].unit_price", i)] = "must_not_be_negative"
		}
		rate := DefaultTaxRate
		if item.TaxRate != nil {
			rate = *item.TaxRate
		}
		if rate < 0 || rate > 100 {
			fields[fmt.Sprintf("items[%d].tax_rate", i)] = "out_of_range"
		}
		if len(fields) > 0 {
			return Totals{}, apperr.Validation("invalid_invoice_items", fields)
		}
		lineTotal := item.Quantity * item.UnitPrice
		t.Subtotal += lineTotal
		t.TaxAmount += lineTotal * rate / 100
	}
	t.Total = t.Subtotal + t.TaxAmount
	return t, nil
}

// NextInvoiceNumber derives the follow-up of the owner's most recent invoice
// number. Unknown or empty input starts the sequence at INV-001. The numeric
// part is zero-padded to width 3 and simply grows beyond INV-999.
func NextInvoiceNumber(last string) string {
	m := invoiceNumberPattern.FindStringSubmatch(last)
	if m == nil {
		return "INV-001"
	}
	var n int
	if _, err := fmt.Sscanf(m[1], "%d", &n); err != nil {
		return "INV-001"
	}
	return fmt.Sprintf("INV-%03d", n+1)
}

// Round2 rounds to two decimals, the minor unit of every supported currency.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// InvoiceService owns the invoice lifecycle: number assignment, total
// computation and the atomic header+items writes.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// CreateInvoiceInput is the typed create command, validated at the boundary.
type CreateInvoiceInput struct {
	CustomerID uint
	Items      []ItemInput
	IssueDate  *time.Time // defaults to now
	DueDate    time.Time
	Notes      string
	Currency   string // defaults to SEK
}

// Create persists an invoice and its items as one transaction. The invoice
// number is derived from the owner's latest persisted invoice inside the same
// transaction; the unique index is the backstop under concurrent creates, and
// a collision is retried once with a fresh read before surfacing Conflict.
func (s *InvoiceService) Create(ctx context.Context, ownerID uint, in CreateInvoiceInput) (*models.Invoice, error) {
	if in.CustomerID == 0 {
		return nil, apperr.Validation("customer_required", map[string]string{"customer_id": "required"})
	}
	if in.DueDate.IsZero() {
		return nil, apperr.Validation("due_date_required", map[string]string{"due_date": "required"})
	}
	totals, err := ComputeTotals(in.Items)
	if err != nil {
		return nil, err
	}

	var created *models.Invoice
	for attempt := 0; attempt < 2; attempt++ {
		created, err = s.createOnce(ctx, ownerID, in, totals)
		if err == nil {
			obs.InvoicesCreatedTotal.Inc()
			return created, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		obs.InvoiceNumberConflictsTotal.Inc()
	}
	return nil, apperr.Conflict("invoice_number_conflict")
}

func (s *InvoiceService) createOnce(ctx context.Context, ownerID uint, in CreateInvoiceInput, totals Totals) (*models.Invoice, error) {
	inv := &models.Invoice{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.Where("id = ? AND user_id = ?", in.CustomerID, ownerID).First(&customer).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("customer_not_found")
			}
			return apperr.Storage("load_customer", err)
		}

		// Each owner carries their own INV- sequence, backed by the
		// per-owner unique index.
		var last models.Invoice
		lastNumber := ""
		err := tx.Where("user_id = ?", ownerID).Order("created_at DESC, id DESC").First(&last).Error
		switch {
		case err == nil:
			lastNumber = last.InvoiceNumber
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first invoice for this owner
		default:
			return apperr.Storage("load_latest_invoice", err)
		}

		issueDate := time.Now()
		if in.IssueDate != nil {
			issueDate = *in.IssueDate
		}
		currency := in.Currency
		if currency == "" {
			currency = "SEK"
		}

		*inv = models.Invoice{
			UserID:        ownerID,
			CustomerID:    in.CustomerID,
			InvoiceNumber: NextInvoiceNumber(lastNumber),
			Status:        models.InvoiceStatusDraft,
			IssueDate:     issueDate,
			DueDate:       in.DueDate,
			Subtotal:      Round2(totals.Subtotal),
			TaxAmount:     Round2(totals.TaxAmount),
			Total:         Round2(totals.Total),
			Currency:      currency,
			Notes:         in.Notes,
		}
		if err := tx.Create(inv).Error; err != nil {
			if isUniqueViolation(err) {
				return err
			}
			return apperr.Storage("insert_invoice", err)
		}
		items := buildItems(inv.ID, in.Items)
		if err := tx.Create(&items).Error; err != nil {
			return apperr.Storage("insert_invoice_items", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, inv.ID)
}

// UpdateInvoiceInput is the typed patch command. Nil fields are untouched.
// A non-nil Items slice replaces the full item set and recomputes the totals.
type UpdateInvoiceInput struct {
	CustomerID *uint
	Status     *models.InvoiceStatus
	IssueDate  *time.Time
	DueDate    *time.Time
	Notes      *string
	Currency   *string
	Items      *[]ItemInput
}

// Update applies a patch to an owner's invoice atomically. Supplied items
// fully replace the prior set; after the write, querying items returns exactly
// the new set. There is no automatic transition to overdue: status only ever
// changes through an explicit patch or MarkPaid/MarkSent.
func (s *InvoiceService) Update(ctx context.Context, ownerID, invoiceID uint, in UpdateInvoiceInput) (*models.Invoice, error) {
	if in.Status != nil && !models.ValidInvoiceStatus(*in.Status) {
		return nil, apperr.Validation("invalid_status", map[string]string{"status": "not_allowed"})
	}
	var totals Totals
	if in.Items != nil {
		var err error
		totals, err = ComputeTotals(*in.Items)
		if err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("id = ? AND user_id = ?", invoiceID, ownerID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("invoice_not_found")
			}
			return apperr.Storage("load_invoice", err)
		}

		if in.CustomerID != nil {
			var customer models.Customer
			if err := tx.Where("id = ? AND user_id = ?", *in.CustomerID, ownerID).First(&customer).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("customer_not_found")
				}
				return apperr.Storage("load_customer", err)
			}
			inv.CustomerID = *in.CustomerID
		}

		if in.Items != nil {
			if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
				return apperr.Storage("delete_invoice_items", err)
			}
			items := buildItems(inv.ID, *in.Items)
			if err := tx.Create(&items).Error; err != nil {
				return apperr.Storage("insert_invoice_items", err)
			}
			inv.Subtotal = Round2(totals.Subtotal)
			inv.TaxAmount = Round2(totals.TaxAmount)
			inv.Total = Round2(totals.Total)
		}

		if in.Status != nil {
			inv.Status = *in.Status
			if inv.Status == models.InvoiceStatusPaid && inv.PaidAt == nil {
				now := time.Now()
				inv.PaidAt = &now
			}
		}
		if in.IssueDate != nil {
			inv.IssueDate = *in.IssueDate
		}
		if in.DueDate != nil {
			inv.DueDate = *in.DueDate
		}
		if in.Notes != nil {
			inv.Notes = *in.Notes
		}
		if in.Currency != nil {
			inv.Currency = *in.Currency
		}

		if err := tx.Save(&inv).Error; err != nil {
			return apperr.Storage("update_invoice", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ownerID, invoiceID)
}

// MarkPaid sets status=paid and stamps paidAt.
func (s *InvoiceService) MarkPaid(ctx context.Context, ownerID, invoiceID uint) (*models.Invoice, error) {
	inv, err := s.find(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inv.Status = models.InvoiceStatusPaid
	inv.PaidAt = &now
	if err := s.db.WithContext(ctx).Save(inv).Error; err != nil {
		return nil, apperr.Storage("update_invoice", err)
	}
	obs.InvoicesPaidTotal.Inc()
	return s.Get(ctx, ownerID, invoiceID)
}

// MarkSent sets status=sent. No mail is dispatched; sending is a status flag.
func (s *InvoiceService) MarkSent(ctx context.Context, ownerID, invoiceID uint) (*models.Invoice, error) {
	inv, err := s.find(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusSent
	if err := s.db.WithContext(ctx).Save(inv).Error; err != nil {
		return nil, apperr.Storage("update_invoice", err)
	}
	obs.InvoicesSentTotal.Inc()
	return s.Get(ctx, ownerID, invoiceID)
}

// Delete removes an owner's invoice together with its items.
func (s *InvoiceService) Delete(ctx context.Context, ownerID, invoiceID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.Where("id = ? AND user_id = ?", invoiceID, ownerID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("invoice_not_found")
			}
			return apperr.Storage("load_invoice", err)
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return apperr.Storage("delete_invoice_items", err)
		}
		if err := tx.Delete(&inv).Error; err != nil {
			return apperr.Storage("delete_invoice", err)
		}
		return nil
	})
}

// Get loads an owner's invoice with customer and items.
func (s *InvoiceService) Get(ctx context.Context, ownerID, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items").
		Preload("Items.Product").
		Where("id = ? AND user_id = ?", invoiceID, ownerID).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invoice_not_found")
		}
		return nil, apperr.Storage("load_invoice", err)
	}
	return &inv, nil
}

// ListInvoicesParams filter and paginate the owner's invoices.
type ListInvoicesParams struct {
	Search     string
	Status     models.InvoiceStatus
	CustomerID uint
	DateFrom   *time.Time
	DateTo     *time.Time
	SortBy     string
	SortOrder  string
	Page       int
	Limit      int
}

var invoiceSortFields = map[string]string{
	"created_at":     "created_at",
	"issue_date":     "issue_date",
	"due_date":       "due_date",
	"total":          "total",
	"invoice_number": "invoice_number",
	"status":         "status",
}

// List returns one page of the owner's invoices plus the unpaged total.
func (s *InvoiceService) List(ctx context.Context, ownerID uint, p ListInvoicesParams) ([]models.Invoice, int64, error) {
	page, limit := normalizePage(p.Page, p.Limit, 20)

	q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("user_id = ?", ownerID)
	if p.Search != "" {
		q = q.Where("lower(invoice_number) LIKE ?", "%"+strings.ToLower(p.Search)+"%")
	}
	if p.Status != "" {
		q = q.Where("status = ?", p.Status)
	}
	if p.CustomerID != 0 {
		q = q.Where("customer_id = ?", p.CustomerID)
	}
	if p.DateFrom != nil {
		q = q.Where("issue_date >= ?", *p.DateFrom)
	}
	if p.DateTo != nil {
		q = q.Where("issue_date <= ?", *p.DateTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Storage("count_invoices", err)
	}

	var invoices []models.Invoice
	err := q.Order(SortClause(invoiceSortFields, p.SortBy, p.SortOrder, "created_at DESC")).
		Preload("Customer").
		Preload("Items").
		Limit(limit).Offset((page - 1) * limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, apperr.Storage("list_invoices", err)
	}
	return invoices, total, nil
}

func (s *InvoiceService) find(ctx context.Context, ownerID, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", invoiceID, ownerID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invoice_not_found")
		}
		return nil, apperr.Storage("load_invoice", err)
	}
	return &inv, nil
}

func buildItems(invoiceID uint, inputs []ItemInput) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(inputs))
	for _, in := range inputs {
		rate := DefaultTaxRate
		if in.TaxRate != nil {
			rate = *in.TaxRate
		}
		items = append(items, models.InvoiceItem{
			InvoiceID:   invoiceID,
			ProductID:   in.ProductID,
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TaxRate:     rate,
			LineTotal:   Round2(in.Quantity * in.UnitPrice),
		})
	}
	return items
}

// isUniqueViolation matches the duplicate-key errors of postgres (23505) and
// sqlite, which the tests run against.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
