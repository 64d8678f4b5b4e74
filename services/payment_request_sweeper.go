package services

import (
	"context"
	"time"

	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/models"
	"github.com/yeremiapane/line-order/utils"
	"gorm.io/gorm"
)

// PaymentRequestSweeper expires payment requests nobody paid in time.
type PaymentRequestSweeper struct {
	db       *gorm.DB
	events   Broadcaster
	Interval time.Duration
	now      func() time.Time
}

func NewPaymentRequestSweeper(db *gorm.DB, events Broadcaster) *PaymentRequestSweeper {
	return &PaymentRequestSweeper{
		db:       db,
		events:   broadcasterOrNoop(events),
		Interval: 5 * time.Minute,
		now:      time.Now,
	}
}

// ExpireStale marks overdue requests expired and returns how many changed.
func (s *PaymentRequestSweeper) ExpireStale(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.PaymentRequest{}).
		Where("status = ? AND expires_at < ?", models.PaymentRequestRequested, s.now()).
		Update("status", models.PaymentRequestExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		utils.InfoLogger.Printf("Expired %d payment requests", result.RowsAffected)
		s.events.Broadcast(kds.EventPaymentRequestExpired, map[string]int64{"expired": result.RowsAffected})
	}
	return result.RowsAffected, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *PaymentRequestSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	utils.InfoLogger.Println("Payment request sweeper started")
	for {
		select {
		case <-ctx.Done():
			utils.InfoLogger.Println("Payment request sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.ExpireStale(ctx); err != nil {
				utils.ErrorLogger.Printf("Error expiring payment requests: %v", err)
			}
		}
	}
}
