// internal/services/entitlement_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neuralnex/legionx-backend/internal/apperrors"
	"github.com/neuralnex/legionx-backend/internal/models"
)

type EntitlementServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *EntitlementService
	userID  uuid.UUID
	subject uuid.UUID
}

func (s *EntitlementServiceTestSuite) SetupTest() {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	s.Require().NoError(db.AutoMigrate(&models.Entitlement{}))

	s.db = db
	s.service = NewEntitlementService(db)
	s.userID = uuid.New()
	s.subject = uuid.New()
}

func (s *EntitlementServiceTestSuite) grant(kind models.EntitlementKind, expiresAt *time.Time) *models.Entitlement {
	e := &models.Entitlement{
		UserID:      s.userID,
		SubjectID:   s.subject,
		Kind:        kind,
		ExpiresAt:   expiresAt,
		GrantedFrom: uuid.New(),
	}
	s.Require().NoError(s.service.GrantTx(s.db, e))
	return e
}

func (s *EntitlementServiceTestSuite) TestGrantRefusesDuplicateIntent() {
	e := s.grant(models.EntitlementKindOwned, nil)

	dup := &models.Entitlement{
		UserID:      s.userID,
		SubjectID:   s.subject,
		Kind:        models.EntitlementKindOwned,
		GrantedFrom: e.GrantedFrom,
	}
	err := s.service.GrantTx(s.db, dup)
	s.Error(err)
	s.Equal(apperrors.ErrDuplicateGrant.Code, apperrors.CodeOf(err))

	var count int64
	s.db.Model(&models.Entitlement{}).Count(&count)
	s.Equal(int64(1), count)
}

func (s *EntitlementServiceTestSuite) TestHasAccessWithOwnedGrant() {
	s.grant(models.EntitlementKindOwned, nil)

	ok, err := s.service.HasAccess(s.userID, s.subject, time.Now())
	s.Require().NoError(err)
	s.True(ok)

	// Ownership never lapses.
	ok, err = s.service.HasAccess(s.userID, s.subject, time.Now().Add(100*24*time.Hour))
	s.Require().NoError(err)
	s.True(ok)
}

func (s *EntitlementServiceTestSuite) TestHasAccessRespectsSubscriptionExpiry() {
	expiry := time.Now().Add(time.Hour)
	s.grant(models.EntitlementKindSubscription, &expiry)

	ok, err := s.service.HasAccess(s.userID, s.subject, time.Now())
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.service.HasAccess(s.userID, s.subject, expiry.Add(time.Second))
	s.Require().NoError(err)
	s.False(ok)
}

func (s *EntitlementServiceTestSuite) TestOverlappingSubscriptionsTakeMaxExpiry() {
	short := time.Now().Add(time.Hour)
	long := time.Now().Add(48 * time.Hour)
	s.grant(models.EntitlementKindSubscription, &short)
	s.grant(models.EntitlementKindSubscription, &long)

	active, err := s.service.ActiveEntitlement(s.userID, s.subject, time.Now())
	s.Require().NoError(err)
	s.Require().NotNil(active)
	s.WithinDuration(long, *active.ExpiresAt, time.Second)

	// After the short grant lapses, access continues on the long one.
	ok, err := s.service.HasAccess(s.userID, s.subject, short.Add(time.Minute))
	s.Require().NoError(err)
	s.True(ok)
}

func (s *EntitlementServiceTestSuite) TestNoAccessWithoutGrant() {
	ok, err := s.service.HasAccess(s.userID, s.subject, time.Now())
	s.Require().NoError(err)
	s.False(ok)

	active, err := s.service.ActiveEntitlement(s.userID, s.subject, time.Now())
	s.Require().NoError(err)
	s.Nil(active)
}

func (s *EntitlementServiceTestSuite) TestCreditBalanceSumsPoints() {
	e1 := &models.Entitlement{
		UserID: s.userID, SubjectID: s.subject,
		Kind: models.EntitlementKindCredit, CreditPoints: 3, GrantedFrom: uuid.New(),
	}
	e2 := &models.Entitlement{
		UserID: s.userID, SubjectID: s.subject,
		Kind: models.EntitlementKindCredit, CreditPoints: 2, GrantedFrom: uuid.New(),
	}
	s.Require().NoError(s.service.GrantTx(s.db, e1))
	s.Require().NoError(s.service.GrantTx(s.db, e2))

	balance, err := s.service.CreditBalance(s.userID)
	s.Require().NoError(err)
	s.Equal(int64(5), balance)
}

func TestEntitlementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(EntitlementServiceTestSuite))
}
