package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/store"
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// TargetID is the key of a user's target for month (YYYY-MM).
func TargetID(userID, month string) string {
	return userID + "_" + strings.ReplaceAll(month, "-", "_")
}

type TargetRequest struct {
	UserID             string  `json:"userId"`
	MonthStr           string  `json:"monthStr"`
	TargetAppointment  int     `json:"targetAppointment"`
	TargetConsultation int     `json:"targetConsultation"`
	TargetRevenue      float64 `json:"targetRevenue"`
}

type TargetService struct {
	store    store.Store
	dir      *Directory
	defaults reporting.Targets
}

func NewTargetService(st store.Store, dir *Directory, defaults reporting.Targets) *TargetService {
	return &TargetService{store: st, dir: dir, defaults: defaults}
}

func (s *TargetService) Defaults() reporting.Targets {
	return s.defaults
}

// Effective returns the stored target for the month overlaid on the defaults.
func (s *TargetService) Effective(ctx context.Context, userID, month string) (reporting.Targets, error) {
	t, err := s.store.GetTarget(ctx, TargetID(userID, month))
	if errors.Is(err, store.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return reporting.Targets{}, storeErr("load target", err)
	}
	return reporting.TargetsFrom(s.defaults, &t), nil
}

// List returns userID's stored targets. Users read their own; managers read
// anyone they manage.
func (s *TargetService) List(ctx context.Context, actorID, userID string) ([]models.MonthlyTarget, error) {
	if userID == "" {
		userID = actorID
	}
	if userID != actorID {
		actor, ix, err := s.dir.Actor(ctx, actorID)
		if err != nil {
			return nil, err
		}
		if !ix.CanManage(actor, userID) {
			return nil, forbidden("Nhân sự không thuộc phạm vi quản lý.")
		}
	}
	out, err := s.store.ListTargets(ctx, userID)
	if err != nil {
		return nil, storeErr("list targets", err)
	}
	return out, nil
}

// Save sets a monthly target for a user the actor manages.
func (s *TargetService) Save(ctx context.Context, actorID string, req TargetRequest) (models.MonthlyTarget, error) {
	if req.UserID == "" || !monthPattern.MatchString(req.MonthStr) {
		return models.MonthlyTarget{}, invalid("Thiếu nhân sự hoặc tháng (YYYY-MM).")
	}
	if req.TargetAppointment < 0 || req.TargetConsultation < 0 || req.TargetRevenue < 0 {
		return models.MonthlyTarget{}, invalid("Chỉ tiêu không được âm.")
	}
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return models.MonthlyTarget{}, err
	}
	if actor.Role.Rank() < models.RoleTeamLeader.Rank() || req.UserID == actor.ID && actor.Role != models.RoleDirector {
		return models.MonthlyTarget{}, forbidden("Bạn không có quyền giao chỉ tiêu.")
	}
	if !ix.CanManage(actor, req.UserID) {
		return models.MonthlyTarget{}, forbidden("Nhân sự không thuộc phạm vi quản lý.")
	}

	t := models.MonthlyTarget{
		ID:                 TargetID(req.UserID, req.MonthStr),
		UserID:             req.UserID,
		MonthStr:           req.MonthStr,
		TargetAppointment:  req.TargetAppointment,
		TargetConsultation: req.TargetConsultation,
		TargetRevenue:      req.TargetRevenue,
	}
	if err := s.store.SaveTarget(ctx, &t); err != nil {
		return models.MonthlyTarget{}, storeErr("save target", err)
	}
	return t, nil
}
