package services

import (
	"context"
	"errors"

	"github.com/diewo77/fakturera/internal/apperr"
	"github.com/diewo77/fakturera/internal/models"
	"gorm.io/gorm"
)

// InvoiceStats aggregates a set of invoices by status. Pending counts invoices
// in status sent; there is no automatic overdue detection, so Overdue only
// reflects explicitly flagged invoices.
type InvoiceStats struct {
	TotalInvoices   int64   `json:"total_invoices"`
	TotalRevenue    float64 `json:"total_revenue"`
	PaidInvoices    int64   `json:"paid_invoices"`
	PendingInvoices int64   `json:"pending_invoices"`
	OverdueInvoices int64   `json:"overdue_invoices"`
}

// UserStats is the per-user dashboard payload.
type UserStats struct {
	TotalCustomers int64 `json:"total_customers"`
	TotalProducts  int64 `json:"total_products"`
	InvoiceStats
}

// StatsService computes the derived per-user and per-customer statistics.
type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// ForUser returns the stats of one user's data set.
func (s *StatsService) ForUser(ctx context.Context, userID uint) (*UserStats, error) {
	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return nil, apperr.Storage("load_user", err)
	}
	if exists == 0 {
		return nil, apperr.NotFound("user_not_found")
	}

	stats := &UserStats{}
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Customer{}).Where("user_id = ?", userID).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, apperr.Storage("count_customers", err)
	}
	if err := db.Model(&models.Product{}).Where("user_id = ?", userID).Count(&stats.TotalProducts).Error; err != nil {
		return nil, apperr.Storage("count_products", err)
	}
	inv, err := s.invoiceStats(ctx, "user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	stats.InvoiceStats = *inv
	return stats, nil
}

// ForCustomer returns the stats of one customer's invoices, scoped to the
// owning user.
func (s *StatsService) ForCustomer(ctx context.Context, ownerID, customerID uint) (*InvoiceStats, error) {
	var customer models.Customer
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", customerID, ownerID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("customer_not_found")
		}
		return nil, apperr.Storage("load_customer", err)
	}
	return s.invoiceStats(ctx, "customer_id = ?", customerID)
}

func (s *StatsService) invoiceStats(ctx context.Context, cond string, arg any) (*InvoiceStats, error) {
	stats := &InvoiceStats{}
	db := s.db.WithContext(ctx).Model(&models.Invoice{}).Where(cond, arg)

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalInvoices).Error; err != nil {
		return nil, apperr.Storage("count_invoices", err)
	}
	var revenue *float64
	if err := db.Session(&gorm.Session{}).Select("SUM(total)").Scan(&revenue).Error; err != nil {
		return nil, apperr.Storage("sum_invoices", err)
	}
	if revenue != nil {
		stats.TotalRevenue = *revenue
	}
	type statusCount struct {
		Status models.InvoiceStatus
		N      int64
	}
	var rows []statusCount
	if err := db.Session(&gorm.Session{}).Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperr.Storage("group_invoices", err)
	}
	for _, row := range rows {
		switch row.Status {
		case models.InvoiceStatusPaid:
			stats.PaidInvoices = row.N
		case models.InvoiceStatusSent:
			stats.PendingInvoices = row.N
		case models.InvoiceStatusOverdue:
			stats.OverdueInvoices = row.N
		}
	}
	return stats, nil
}
