package services

import (
	"testing"

	"ekkoscope/internal/pagination"
	"ekkoscope/internal/testutil"
)

func TestCreateBusiness(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		business, err := svc.CreateBusiness(user.ID, BusinessInput{
			Name:          "Apex Roofing Co",
			PrimaryDomain: "https://apexroofing.com/",
			Regions:       []string{"Austin, TX"},
			Categories:    []string{"roofing"},
		})
		testutil.AssertNoError(t, err)

		if business.ID == 0 {
			t.Fatal("expected non-zero business ID")
		}
		if business.PrimaryDomain != "apexroofing.com" {
			t.Errorf("expected normalized domain apexroofing.com, got %s", business.PrimaryDomain)
		}
		if business.OwnerUserID == nil || *business.OwnerUserID != user.ID {
			t.Error("expected business to be owned by the creating user")
		}
		if got := business.GetRegions(); len(got) != 1 || got[0] != "Austin, TX" {
			t.Errorf("expected regions to round-trip, got %v", got)
		}
	})

	t.Run("missing_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateBusiness(user.ID, BusinessInput{PrimaryDomain: "example.com"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("missing_domain", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		_, err := svc.CreateBusiness(user.ID, BusinessInput{Name: "No Domain LLC"})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("defaults_to_local_service", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		business, err := svc.CreateBusiness(user.ID, BusinessInput{Name: "X", PrimaryDomain: "x.com"})
		testutil.AssertNoError(t, err)

		if business.BusinessType != "local_service" {
			t.Errorf("expected local_service default, got %s", business.BusinessType)
		}
	})
}

func TestGetBusinessByID(t *testing.T) {
	t.Run("owner_can_read", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestBusiness(t, db, user.ID)

		business, err := svc.GetBusinessByID(user.ID, created.ID)
		testutil.AssertNoError(t, err)
		if business.Name != created.Name {
			t.Errorf("expected name %s, got %s", created.Name, business.Name)
		}
	})

	t.Run("other_user_gets_not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestBusiness(t, db, owner.ID)

		_, err := svc.GetBusinessByID(other.ID, created.ID)
		testutil.AssertAppError(t, err, "BUSINESS_NOT_FOUND")
	})
}

func TestGetUserBusinesses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBusinessService(db)

	owner := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	testutil.CreateTestBusiness(t, db, owner.ID)
	testutil.CreateTestBusiness(t, db, owner.ID)
	testutil.CreateTestBusiness(t, db, other.ID)

	resp, err := svc.GetUserBusinesses(owner.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)

	if len(resp.Data) != 2 {
		t.Errorf("expected 2 businesses, got %d", len(resp.Data))
	}
	if resp.TotalItems != 2 {
		t.Errorf("expected total 2, got %d", resp.TotalItems)
	}
}

func TestUpdateBusiness(t *testing.T) {
	t.Run("partial_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestBusiness(t, db, user.ID)

		updated, err := svc.UpdateBusiness(user.ID, created.ID, BusinessInput{
			Name:    "Renamed Roofing",
			Regions: []string{"Dallas, TX", "Fort Worth, TX"},
		})
		testutil.AssertNoError(t, err)

		if updated.Name != "Renamed Roofing" {
			t.Errorf("expected updated name, got %s", updated.Name)
		}
		if updated.PrimaryDomain != created.PrimaryDomain {
			t.Error("expected primary domain to be untouched")
		}
		if got := updated.GetRegions(); len(got) != 2 {
			t.Errorf("expected 2 regions, got %v", got)
		}
	})

	t.Run("not_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		created := testutil.CreateTestBusiness(t, db, owner.ID)

		_, err := svc.UpdateBusiness(other.ID, created.ID, BusinessInput{Name: "Hijacked"})
		testutil.AssertAppError(t, err, "BUSINESS_NOT_FOUND")
	})
}

func TestAdminListBusinesses(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBusinessService(db)

	a := testutil.CreateTestUser(t, db)
	b := testutil.CreateTestUser(t, db)
	testutil.CreateTestBusiness(t, db, a.ID)
	testutil.CreateTestBusiness(t, db, b.ID)

	resp, err := svc.AdminListBusinesses(pagination.PageRequest{})
	testutil.AssertNoError(t, err)

	if resp.TotalItems != 2 {
		t.Errorf("expected 2 businesses across all owners, got %d", resp.TotalItems)
	}
}

func TestTenantConfig(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBusinessService(db)

	user := testutil.CreateTestUser(t, db)
	business := testutil.CreateTestBusiness(t, db, user.ID)

	cfg, err := svc.TenantConfig(business.ID)
	testutil.AssertNoError(t, err)

	if cfg.DisplayName != business.Name {
		t.Errorf("expected display name %s, got %s", business.Name, cfg.DisplayName)
	}
	if len(cfg.Domains) == 0 || cfg.Domains[0] != business.PrimaryDomain {
		t.Errorf("expected primary domain first, got %v", cfg.Domains)
	}
	if len(cfg.PriorityQueries) == 0 {
		t.Error("expected generated priority queries")
	}
}

func TestEntitlements(t *testing.T) {
	t.Run("snapshot_credit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)

		has, err := svc.HasSnapshotCredit(user.ID, business.ID)
		testutil.AssertNoError(t, err)
		if has {
			t.Error("expected no credit before purchase")
		}

		testutil.CreateTestPurchase(t, db, user.ID, business.ID)

		has, err = svc.HasSnapshotCredit(user.ID, business.ID)
		testutil.AssertNoError(t, err)
		if !has {
			t.Error("expected credit after paid purchase")
		}

		access, err := svc.HasAccess(user.ID, business.ID)
		testutil.AssertNoError(t, err)
		if !access {
			t.Error("expected access with a snapshot credit")
		}
	})

	t.Run("active_subscription", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)

		subscribed, err := svc.HasActiveSubscription(business.ID)
		testutil.AssertNoError(t, err)
		if subscribed {
			t.Error("expected no subscription by default")
		}

		db.Model(business).Update("subscription_active", true)

		access, err := svc.HasAccess(user.ID, business.ID)
		testutil.AssertNoError(t, err)
		if !access {
			t.Error("expected access with an active subscription")
		}
	})

	t.Run("no_entitlement_no_access", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBusinessService(db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)

		access, err := svc.HasAccess(user.ID, business.ID)
		testutil.AssertNoError(t, err)
		if access {
			t.Error("expected no access without credit or subscription")
		}
	})
}
