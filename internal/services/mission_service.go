package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/sherlock"
)

// missionService exposes content missions with owner scoping on top of the
// semantic gap engine.
type missionService struct {
	db         *gorm.DB
	engine     *sherlock.Engine
	businesses BusinessServicer
}

// NewMissionService creates a new MissionServicer.
func NewMissionService(db *gorm.DB, engine *sherlock.Engine, businesses BusinessServicer) MissionServicer {
	return &missionService{db: db, engine: engine, businesses: businesses}
}

// ListMissions returns the missions for an owned business, optionally
// filtered by status.
func (s *missionService) ListMissions(ctx context.Context, userID, businessID uint, status string) ([]models.SherlockMission, error) {
	if _, err := s.businesses.GetBusinessByID(userID, businessID); err != nil {
		return nil, err
	}
	return s.engine.MissionsForBusiness(ctx, businessID, status)
}

// CompleteMission marks a mission done after checking the caller owns the
// business it belongs to.
func (s *missionService) CompleteMission(ctx context.Context, userID, missionID uint) (*models.SherlockMission, error) {
	var mission models.SherlockMission
	if err := s.db.First(&mission, missionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMissionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if _, err := s.businesses.GetBusinessByID(userID, mission.BusinessID); err != nil {
		return nil, apperrors.ErrMissionNotFound
	}
	return s.engine.CompleteMission(ctx, missionID)
}
