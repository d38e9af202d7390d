// Package scheduler re-audits ongoing-plan businesses on a quarterly cadence.
package scheduler

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"
)

// auditCadence is how long after an audit the next one is due.
const auditCadence = 90 * 24 * time.Hour

// AuditRunner starts a scheduled audit for a business and blocks until it
// finishes.
type AuditRunner interface {
	RunScheduledAudit(ctx context.Context, businessID uint) error
}

// Scheduler finds subscribed businesses whose next audit is due and runs them.
type Scheduler struct {
	db     *gorm.DB
	runner AuditRunner
}

// New builds a scheduler.
func New(db *gorm.DB, runner AuditRunner) *Scheduler {
	return &Scheduler{db: db, runner: runner}
}

// NextAuditDate returns the due date for the audit after one run at `from`.
func NextAuditDate(from time.Time) time.Time {
	return from.Add(auditCadence)
}

// DueBusinesses returns active subscribers whose next audit date has passed.
func (s *Scheduler) DueBusinesses(ctx context.Context) ([]models.Business, error) {
	var businesses []models.Business
	err := s.db.WithContext(ctx).
		Where("subscription_active = ? AND next_audit_at IS NOT NULL AND next_audit_at <= ?", true, time.Now().UTC()).
		Find(&businesses).Error
	if err != nil {
		return nil, err
	}
	return businesses, nil
}

// RunCycle audits every due business and advances its next audit date.
// A failed audit still advances the date so one broken business cannot wedge
// the cycle. Returns how many businesses were processed.
func (s *Scheduler) RunCycle(ctx context.Context) (int, error) {
	due, err := s.DueBusinesses(ctx)
	if err != nil {
		return 0, err
	}

	for _, business := range due {
		logger.Get().Infow("running scheduled audit", "business_id", business.ID, "name", business.Name)

		if err := s.runner.RunScheduledAudit(ctx, business.ID); err != nil {
			logger.Get().Errorw("scheduled audit failed", "business_id", business.ID, "error", err)
		}

		next := NextAuditDate(time.Now().UTC())
		if err := s.db.WithContext(ctx).
			Model(&models.Business{}).
			Where("id = ?", business.ID).
			Update("next_audit_at", next).Error; err != nil {
			logger.Get().Errorw("failed to advance next audit date", "business_id", business.ID, "error", err)
		}
	}
	return len(due), nil
}

// Loop runs scheduler cycles on a ticker until the context is canceled.
func (s *Scheduler) Loop(ctx context.Context, interval time.Duration) {
	logger.Get().Infow("audit scheduler started", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Get().Infow("audit scheduler stopped")
			return
		case <-ticker.C:
			count, err := s.RunCycle(ctx)
			if err != nil {
				logger.Get().Errorw("scheduler cycle failed", "error", err)
				continue
			}
			if count > 0 {
				logger.Get().Infow("scheduler cycle complete", "audits", count)
			}
		}
	}
}
