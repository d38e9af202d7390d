package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"ekkoscope/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestAdmin creates an admin user.
func CreateTestAdmin(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	user := CreateTestUser(t, db)
	if err := db.Model(user).Update("is_admin", true).Error; err != nil {
		t.Fatalf("failed to promote test admin: %v", err)
	}
	user.IsAdmin = true
	return user
}

// CreateTestBusiness creates a local-service business owned by the given user.
func CreateTestBusiness(t *testing.T, db *gorm.DB, ownerID uint) *models.Business {
	t.Helper()

	n := nextID()
	business := &models.Business{
		OwnerUserID:   &ownerID,
		Name:          fmt.Sprintf("Test Business %d", n),
		PrimaryDomain: fmt.Sprintf("business%d.example.com", n),
		BusinessType:  models.BusinessTypeLocalService,
		Plan:          models.PlanSnapshot,
	}
	business.SetRegions([]string{"Austin, TX"})
	business.SetCategories([]string{"roofing"})
	if err := db.Create(business).Error; err != nil {
		t.Fatalf("failed to create test business: %v", err)
	}
	return business
}

// CreateTestAudit creates an audit in the given status.
func CreateTestAudit(t *testing.T, db *gorm.DB, businessID uint, status models.AuditStatus) *models.Audit {
	t.Helper()

	audit := &models.Audit{
		BusinessID: businessID,
		Channel:    "self_serve",
		Status:     status,
	}
	if err := db.Create(audit).Error; err != nil {
		t.Fatalf("failed to create test audit: %v", err)
	}
	return audit
}

// CreateTestPurchase creates a paid, unused snapshot purchase.
func CreateTestPurchase(t *testing.T, db *gorm.DB, userID, businessID uint) *models.Purchase {
	t.Helper()

	purchase := &models.Purchase{
		UserID:     userID,
		BusinessID: businessID,
		Kind:       models.PurchaseKindSnapshot,
		Status:     models.PurchaseStatusPaid,
	}
	if err := db.Create(purchase).Error; err != nil {
		t.Fatalf("failed to create test purchase: %v", err)
	}
	return purchase
}

// CreateTestScan creates a completed sherlock scan with the given topics.
func CreateTestScan(t *testing.T, db *gorm.DB, businessID uint, contentType string, topics []models.Topic) *models.SherlockScan {
	t.Helper()

	scan := &models.SherlockScan{
		BusinessID:  businessID,
		URL:         fmt.Sprintf("https://site%d.example.com", nextID()),
		ContentType: contentType,
		Status:      "completed",
		VectorCount: 1,
	}
	if err := scan.SetTopics(topics); err != nil {
		t.Fatalf("failed to encode topics: %v", err)
	}
	if err := db.Create(scan).Error; err != nil {
		t.Fatalf("failed to create test scan: %v", err)
	}
	return scan
}
