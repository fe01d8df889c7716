// internal/services/alert_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

// AlertService records conditions that need operator attention. Alerts are
// rows, not just log lines, so they survive restarts and can be listed and
// resolved through the admin API.
type AlertService struct {
	db *gorm.DB
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

func (s *AlertService) Raise(severity models.AlertSeverity, source, message string, details map[string]interface{}) error {
	alert := &models.OperationalAlert{
		Severity: severity,
		Source:   source,
		Message:  message,
		Details:  models.JSONB(details),
	}

	if err := s.db.Create(alert).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"source":  source,
			"message": message,
		}).Error("Failed to persist operational alert")
		return fmt.Errorf("failed to create alert: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"severity": severity,
		"source":   source,
		"details":  details,
	}).Warn(message)

	return nil
}

func (s *AlertService) Resolve(alertID uuid.UUID) error {
	now := time.Now()
	result := s.db.Model(&models.OperationalAlert{}).
		Where("id = ? AND resolved_at IS NULL", alertID).
		Update("resolved_at", now)
	if result.Error != nil {
		return fmt.Errorf("failed to resolve alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("alert not found or already resolved")
	}

	return nil
}

func (s *AlertService) List(params utils.PaginationParams, unresolvedOnly bool) ([]models.OperationalAlert, int64, error) {
	query := s.db.Model(&models.OperationalAlert{})
	if unresolvedOnly {
		query = query.Where("resolved_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	allowedSortFields := []string{"created_at", "severity"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var alerts []models.OperationalAlert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch alerts: %w", err)
	}

	return alerts, total, nil
}
