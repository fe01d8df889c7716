// internal/router/router_test.go
package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/neuralnex/legionx-backend/internal/config"
	"github.com/neuralnex/legionx-backend/internal/models"
	"github.com/neuralnex/legionx-backend/internal/services"
	"github.com/neuralnex/legionx-backend/internal/utils"
)

type RouterTestSuite struct {
	suite.Suite
	db     *gorm.DB
	cfg    *config.Config
	router *gin.Engine
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("router-test-secret")

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.PurchaseIntent{},
		&models.Entitlement{},
		&models.FeeLedgerEntry{},
		&models.FeeSnapshot{},
		&models.OperationalAlert{},
		&models.AuditLog{},
	))
	s.db = db

	s.cfg = &config.Config{
		Environment: "development",
		JWT: config.JWTConfig{
			SecretKey:       "router-test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 1,
		},
		Ledger:  config.LedgerConfig{PaymentAsset: "lovelace"},
		Payment: config.PaymentConfig{Currency: "usd"},
		Reconciliation: config.ReconciliationConfig{
			MinConfirmations:      2,
			ListingFeeBps:         100,
			MarketplaceCutBps:     250,
			MaxSettlementAttempts: 2,
			PollIntervalSeconds:   1,
			BackoffBaseSeconds:    1,
			BackoffCapSeconds:     4,
			CreditUnitMinor:       1000000,
			DriftCheckSeconds:     3600,
		},
	}

	alerts := services.NewAlertService(db)
	listings := services.NewListingService(db)
	entitlements := services.NewEntitlementService(db)
	fees := services.NewFeeService(db, s.cfg, alerts)
	storage, err := services.NewStorageService(config.AWSConfig{})
	s.Require().NoError(err)

	s.router = Setup(db, s.cfg, &Services{
		Auth:           services.NewAuthService(db, s.cfg),
		Agents:         services.NewAgentService(db),
		Listings:       listings,
		Entitlements:   entitlements,
		Reconciliation: services.NewReconciliationService(db, s.cfg, nil, nil, listings, entitlements, fees, alerts),
		Fees:           fees,
		Alerts:         alerts,
		Storage:        storage,
	})
}

func (s *RouterTestSuite) createUser(username string, userType models.UserType, wallet string) *models.User {
	user := &models.User{
		Username:      username,
		Email:         username + "@example.com",
		UserType:      userType,
		Status:        models.UserStatusActive,
		WalletAddress: wallet,
	}
	s.Require().NoError(user.SetPassword("Str0ng!Pass"))
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *RouterTestSuite) token(user *models.User) string {
	token, err := utils.GenerateJWT(user.ID, user.Username, string(user.UserType), 1)
	s.Require().NoError(err)
	return token
}

func (s *RouterTestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterTestSuite) decode(w *httptest.ResponseRecorder) utils.APIResponse {
	var resp utils.APIResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *RouterTestSuite) TestRegisterValidationFailuresListFields() {
	w := s.request(http.MethodPost, "/v1/auth/register", "", gin.H{
		"username":  "newbuyer",
		"email":     "newbuyer@example.com",
		"password":  "weak",
		"user_type": "buyer",
	})

	s.Equal(http.StatusBadRequest, w.Code)
	resp := s.decode(w)
	s.Require().NotNil(resp.Error)
	s.Equal("VALIDATION_ERROR", resp.Error.Code)

	details, ok := resp.Error.Details.([]interface{})
	s.Require().True(ok)
	s.Require().Len(details, 1)
	field, ok := details[0].(map[string]interface{})
	s.Require().True(ok)
	s.Equal("password", field["field"])
	s.Equal("strong_password", field["tag"])
}

func (s *RouterTestSuite) TestRegisterDuplicateEmailConflicts() {
	s.createUser("takenuser", models.UserTypeBuyer, "")

	w := s.request(http.MethodPost, "/v1/auth/register", "", gin.H{
		"username":  "takenuser",
		"email":     "takenuser@example.com",
		"password":  "Str0ng!Pass",
		"user_type": "buyer",
	})

	s.Equal(http.StatusConflict, w.Code)
	resp := s.decode(w)
	s.Require().NotNil(resp.Error)
	s.Equal("CONFLICT", resp.Error.Code)
}

func (s *RouterTestSuite) TestListingCreationRequiresSellerAccount() {
	buyer := s.createUser("buyer1", models.UserTypeBuyer, "")
	seller := s.createUser("seller1", models.UserTypeSeller, "addr_seller")

	body := gin.H{"title": "Agent access", "price_minor": 100}

	w := s.request(http.MethodPost, "/v1/listings", s.token(buyer), body)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.request(http.MethodPost, "/v1/listings", s.token(seller), body)
	s.Equal(http.StatusCreated, w.Code)
}

func (s *RouterTestSuite) TestListingBrowseIsPublic() {
	buyer := s.createUser("buyer2", models.UserTypeBuyer, "")

	w := s.request(http.MethodGet, "/v1/listings", "", nil)
	s.Equal(http.StatusOK, w.Code)

	// An optional bearer token must not change the outcome.
	w = s.request(http.MethodGet, "/v1/listings", s.token(buyer), nil)
	s.Equal(http.StatusOK, w.Code)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
