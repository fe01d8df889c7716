// internal/services/entitlement_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

// EntitlementService is the authoritative record of who owns or may access
// what, and until when. Rows are append-only: a new subscription purchase
// adds a grant instead of extending an existing one, and overlapping grants
// resolve to the maximum expiry at query time.
type EntitlementService struct {
	db *gorm.DB
}

func NewEntitlementService(db *gorm.DB) *EntitlementService {
	return &EntitlementService{db: db}
}

// GrantTx creates an entitlement inside the caller's transaction. The
// unique index on granted_from backs the existence check, so the same
// purchase intent can never produce two grants.
func (s *EntitlementService) GrantTx(tx *gorm.DB, entitlement *models.Entitlement) error {
	var existing int64
	if err := tx.Model(&models.Entitlement{}).
		Where("granted_from = ?", entitlement.GrantedFrom).
		Count(&existing).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if existing > 0 {
		return fmt.Errorf("intent %s already granted: %w", entitlement.GrantedFrom, apperrors.ErrDuplicateGrant)
	}

	if err := tx.Create(entitlement).Error; err != nil {
		return fmt.Errorf("failed to create entitlement: %w", err)
	}

	return nil
}

// HasAccess reports whether the user holds an owned entitlement for the
// subject, or a subscription entitlement that has not expired at the given
// time.
func (s *EntitlementService) HasAccess(userID, subjectID uuid.UUID, at time.Time) (bool, error) {
	var owned int64
	if err := s.db.Model(&models.Entitlement{}).
		Where("user_id = ? AND subject_id = ? AND kind = ?",
			userID, subjectID, models.EntitlementKindOwned).
		Count(&owned).Error; err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}
	if owned > 0 {
		return true, nil
	}

	var active int64
	if err := s.db.Model(&models.Entitlement{}).
		Where("user_id = ? AND subject_id = ? AND kind = ? AND expires_at > ?",
			userID, subjectID, models.EntitlementKindSubscription, at).
		Count(&active).Error; err != nil {
		return false, fmt.Errorf("database error: %w", err)
	}

	return active > 0, nil
}

// ActiveEntitlement returns the strongest live entitlement for the subject:
// owned if present, otherwise the subscription with the latest expiry.
func (s *EntitlementService) ActiveEntitlement(userID, subjectID uuid.UUID, at time.Time) (*models.Entitlement, error) {
	var entitlement models.Entitlement
	err := s.db.
		Where("user_id = ? AND subject_id = ? AND kind = ?",
			userID, subjectID, models.EntitlementKindOwned).
		First(&entitlement).Error
	if err == nil {
		return &entitlement, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("database error: %w", err)
	}

	err = s.db.
		Where("user_id = ? AND subject_id = ? AND kind = ? AND expires_at > ?",
			userID, subjectID, models.EntitlementKindSubscription, at).
		Order("expires_at DESC").
		First(&entitlement).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &entitlement, nil
}

func (s *EntitlementService) ListForUser(userID uuid.UUID, params utils.PaginationParams) ([]models.Entitlement, int64, error) {
	query := s.db.Model(&models.Entitlement{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count entitlements: %w", err)
	}

	allowedSortFields := []string{"created_at", "expires_at"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var entitlements []models.Entitlement
	if err := query.Find(&entitlements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch entitlements: %w", err)
	}

	return entitlements, total, nil
}

// CreditBalance sums credit points granted to the user.
func (s *EntitlementService) CreditBalance(userID uuid.UUID) (int64, error) {
	var balance int64
	if err := s.db.Model(&models.Entitlement{}).
		Where("user_id = ? AND kind = ?", userID, models.EntitlementKindCredit).
		Select("COALESCE(SUM(credit_points), 0)").Scan(&balance).Error; err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}

	return balance, nil
}
