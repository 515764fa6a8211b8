package services

import (
	"testing"
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/models"
	"github.com/chapterwise/chapterwise-backend/internal/quota"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testLimits = quota.Limits{
	FreeDaily:         1000,
	FreeMonthly:       30000,
	SubscribedMonthly: 50000,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A :memory: database exists per connection; keep the pool at one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}, &models.BillingEvent{}))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()

	user := &models.User{
		ID:       uuid.New(),
		Name:     "Test Student",
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Plan:     models.PlanFree,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", id).Error)
	return &user
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
