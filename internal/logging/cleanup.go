package logging

import (
	"log/slog"
	"time"

	"github.com/chapterwise/chapterwise-backend/internal/models"
	"gorm.io/gorm"
)

// Retention windows for the daily cleanup pass.
const (
	logRetentionDays          = 30
	billingEventRetentionDays = 90
)

// StartCleanup runs a daily goroutine that deletes system_logs older than 30
// days and processed billing events older than 90 days. Billing events only
// need to cover the processor's redelivery window; 90 days is far beyond it.
func StartCleanup(db *gorm.DB, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logCutoff := time.Now().AddDate(0, 0, -logRetentionDays)
				result := db.Where("timestamp < ?", logCutoff).Delete(&models.SystemLog{})
				if result.Error != nil {
					slog.Error("log cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("log cleanup completed", "deleted", result.RowsAffected)
				}

				eventCutoff := time.Now().AddDate(0, 0, -billingEventRetentionDays)
				result = db.Where("created_at < ?", eventCutoff).Delete(&models.BillingEvent{})
				if result.Error != nil {
					slog.Error("billing event cleanup failed", "error", result.Error)
				} else if result.RowsAffected > 0 {
					slog.Info("billing event cleanup completed", "deleted", result.RowsAffected)
				}
			case <-done:
				return
			}
		}
	}()
}
