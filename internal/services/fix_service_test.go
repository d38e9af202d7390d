package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"ekkoscope/internal/fixplan"
	"ekkoscope/internal/models"
	"ekkoscope/internal/report"
	"ekkoscope/internal/testutil"
)

// writeSampleReport renders a low-visibility report to disk and returns its path.
func writeSampleReport(t *testing.T, businessName string) string {
	t.Helper()

	data := &report.Data{
		BusinessName: businessName,
		BusinessType: "local_service",
		Domain:       "apexroofing.com",
		GeneratedAt:  time.Now().UTC(),
		TrueScore: report.TrueScore{
			CalculatedScore: 20,
			ClientMentions:  1,
			TotalQueries:    5,
			Status:          "POOR",
			RiskLevel:       "HIGH",
		},
		Content: report.Content{
			VisibilityScore:  20,
			ExecutiveSummary: "Visibility is currently critically low across AI assistants.",
			Suggestions: []report.Suggestion{
				{Title: "Create a storm damage landing page", Priority: "high", Type: "new_page"},
			},
		},
		Queries: []report.QueryRow{
			{Query: "best roofer in austin", Score: 0},
			{Query: "storm damage roof repair austin", Score: 0},
			{Query: "roof replacement cost austin", Score: 2, TargetFound: true},
			{Query: "emergency roof repair near me", Score: 0},
			{Query: "metal roofing contractors austin", Score: 0},
		},
		Competitors: []report.CompetitorRow{
			{Name: "Rival Roofing", Count: 4},
			{Name: "Lone Star Roofs", Count: 2},
		},
	}

	path := filepath.Join(t.TempDir(), "report.txt")
	if err := os.WriteFile(path, []byte(report.BuildText(data)), 0o644); err != nil {
		t.Fatalf("failed to write sample report: %v", err)
	}
	return path
}

func newFixService(db *gorm.DB) FixServicer {
	audits := NewAuditService(db, nil, nil, nil, nil, nil, NewBusinessService(db), NewPurchaseService(db), nil)
	return NewFixService(audits, fixplan.NewPlanner(nil))
}

func TestGenerateFixPlan(t *testing.T) {
	t.Run("from_completed_audit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)
		audit := testutil.CreateTestAudit(t, db, business.ID, models.AuditStatusDone)
		db.Model(audit).Update("report_text_path", writeSampleReport(t, business.Name))

		svc := newFixService(db)
		result, err := svc.GenerateFixPlan(context.Background(), user.ID, audit.ID)
		testutil.AssertNoError(t, err)

		if result.Analysis == nil || result.Plan == nil {
			t.Fatal("expected analysis and plan")
		}
		if result.Analysis.BusinessInfo.BusinessName != business.Name {
			t.Errorf("expected parsed business %s, got %s", business.Name, result.Analysis.BusinessInfo.BusinessName)
		}
		if result.Plan.TotalFixes() == 0 {
			t.Error("expected at least one fix for a low-visibility report")
		}
		if result.Estimate.EstimatedScore < result.Estimate.OriginalScore {
			t.Error("estimated score should not fall below the original")
		}
	})

	t.Run("audit_not_done", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)
		audit := testutil.CreateTestAudit(t, db, business.ID, models.AuditStatusRunning)

		svc := newFixService(db)
		_, err := svc.GenerateFixPlan(context.Background(), user.ID, audit.ID)
		testutil.AssertAppError(t, err, "AUDIT_NOT_READY")
	})

	t.Run("no_report_file", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)
		audit := testutil.CreateTestAudit(t, db, business.ID, models.AuditStatusDone)

		svc := newFixService(db)
		_, err := svc.GenerateFixPlan(context.Background(), user.ID, audit.ID)
		testutil.AssertAppError(t, err, "REPORT_NOT_GENERATED")
	})

	t.Run("missing_file_on_disk", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		user := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, user.ID)
		audit := testutil.CreateTestAudit(t, db, business.ID, models.AuditStatusDone)
		db.Model(audit).Update("report_text_path", "/nonexistent/report.txt")

		svc := newFixService(db)
		_, err := svc.GenerateFixPlan(context.Background(), user.ID, audit.ID)
		testutil.AssertAppError(t, err, "REPORT_NOT_GENERATED")
	})

	t.Run("not_owner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		owner := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		business := testutil.CreateTestBusiness(t, db, owner.ID)
		audit := testutil.CreateTestAudit(t, db, business.ID, models.AuditStatusDone)

		svc := newFixService(db)
		_, err := svc.GenerateFixPlan(context.Background(), other.ID, audit.ID)
		testutil.AssertAppError(t, err, "AUDIT_NOT_FOUND")
	})
}
