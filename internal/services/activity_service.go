package services

import (
	"context"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/models"
)

type ActivityService struct {
	recorder *activity.Recorder
}

func NewActivityService(recorder *activity.Recorder) *ActivityService {
	return &ActivityService{recorder: recorder}
}

// Recent lists the newest audit entries. Directors may read everyone's by
// passing an empty actorID; everyone else only reads their own.
func (s *ActivityService) Recent(ctx context.Context, viewer models.User, actorID string) ([]models.ActivityLog, error) {
	if viewer.Role != models.RoleDirector {
		actorID = viewer.ID
	}
	logs, err := s.recorder.Recent(ctx, actorID)
	if err != nil {
		return nil, storeErr("list activities", err)
	}
	return logs, nil
}
