package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/fakturera/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens an isolated in-memory sqlite database named after the test and
// migrates the full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Product{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Terms{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Name:     "Test User",
		Email:    email,
		Password: "x",
		Language: models.LangSwedish,
		Role:     models.RoleUser,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCustomer(t *testing.T, db *gorm.DB, ownerID uint, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		UserID:   ownerID,
		Name:     name,
		IsActive: true,
	}
	require.NoError(t, db.Create(customer).Error)
	return customer
}

func dueIn(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}
