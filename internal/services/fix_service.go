package services

import (
	"context"
	"os"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/fixplan"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"
	"ekkoscope/internal/reportparse"
)

// fixService turns a completed audit's report back into a structured fix
// plan with an estimated post-fix score.
type fixService struct {
	audits  AuditServicer
	planner *fixplan.Planner
}

// NewFixService creates a new FixServicer.
func NewFixService(audits AuditServicer, planner *fixplan.Planner) FixServicer {
	return &fixService{audits: audits, planner: planner}
}

// GenerateFixPlan parses an owned audit's text report and plans fixes for
// the issues it finds.
func (s *fixService) GenerateFixPlan(ctx context.Context, userID, auditID uint) (*FixPlanResult, error) {
	audit, err := s.audits.GetAudit(userID, auditID)
	if err != nil {
		return nil, err
	}
	if audit.Status != models.AuditStatusDone {
		return nil, apperrors.ErrAuditNotReady
	}
	if audit.ReportTextPath == "" {
		return nil, apperrors.ErrReportNotGenerated
	}
	if _, err := os.Stat(audit.ReportTextPath); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrReportNotGenerated, err)
	}

	analysis, err := reportparse.ParseFile(audit.ReportTextPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	plan := s.planner.GeneratePlan(ctx, analysis, analysis.BusinessInfo.BusinessType)
	estimate := fixplan.EstimatePostFixScore(analysis.Score.OverallScore, plan.Impacts())

	logger.Get().Infow("Fix plan generated",
		"audit_id", auditID,
		"issues", len(analysis.Issues),
		"fixes", plan.TotalFixes(),
	)

	return &FixPlanResult{
		Analysis: analysis,
		Plan:     plan,
		Estimate: estimate,
	}, nil
}
