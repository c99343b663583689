package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/reporting"
)

// DashboardQuery is the selector state plus date range of a dashboard request.
type DashboardQuery struct {
	hierarchy.Filter
	reporting.DateRange
}

type ManagerDashboard struct {
	reporting.Dashboard
	Filter  hierarchy.Filter        `json:"filter"`
	Options hierarchy.FilterOptions `json:"options"`
}

// FilterState is what the selector bar needs to render.
type FilterState struct {
	Filter  hierarchy.Filter        `json:"filter"`
	Default hierarchy.Filter        `json:"default"`
	Options hierarchy.FilterOptions `json:"options"`
}

type DashboardService struct {
	dir     *Directory
	targets *TargetService
	now     func() time.Time
}

func NewDashboardService(dir *Directory, targets *TargetService) *DashboardService {
	return &DashboardService{dir: dir, targets: targets, now: time.Now}
}

// snapshot loads the organization and every record in parallel.
func (s *DashboardService) snapshot(ctx context.Context, actorID string) (models.User, *hierarchy.Index, reporting.Records, error) {
	var (
		actor models.User
		ix    *hierarchy.Index
		rec   reporting.Records
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		actor, ix, err = s.dir.Actor(gctx, actorID)
		return err
	})
	g.Go(func() error {
		var err error
		rec, err = s.dir.Records(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return models.User{}, nil, reporting.Records{}, err
	}
	return actor, ix, rec, nil
}

// Manager builds the scoped dashboard for actorID.
func (s *DashboardService) Manager(ctx context.Context, actorID string, q DashboardQuery) (ManagerDashboard, error) {
	actor, ix, rec, err := s.snapshot(ctx, actorID)
	if err != nil {
		return ManagerDashboard{}, err
	}

	visible := ix.Visible(actor)
	f := ix.Normalize(q.Filter)
	if f.User != "" && !ix.CanManage(actor, f.User) {
		return ManagerDashboard{}, forbidden("Nhân sự không thuộc phạm vi quản lý.")
	}

	d := reporting.BuildDashboard(reporting.DashboardInput{
		Actor:    actor,
		Users:    ix.Users(),
		Scope:    ix.ResolveScope(actor, visible, f),
		Regional: ix.RegionalScope(actor, visible, f),
		Range:    q.DateRange,
		Records:  rec,
	})
	return ManagerDashboard{Dashboard: d, Filter: f, Options: ix.Options(f)}, nil
}

// Tree returns the indented staff listing for actorID.
func (s *DashboardService) Tree(ctx context.Context, actorID string) ([]hierarchy.Node, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return ix.Project(actor, ix.Visible(actor)), nil
}

// Filters normalizes f and returns it with its options and the actor's default.
func (s *DashboardService) Filters(ctx context.Context, actorID string, f hierarchy.Filter) (FilterState, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return FilterState{}, err
	}
	norm := ix.Normalize(f)
	return FilterState{Filter: norm, Default: ix.DefaultFilter(actor), Options: ix.Options(norm)}, nil
}

// Cascade applies a selector change and returns the resulting state.
func (s *DashboardService) Cascade(ctx context.Context, actorID string, prev, next hierarchy.Filter) (FilterState, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return FilterState{}, err
	}
	f := ix.Cascade(prev, next)
	return FilterState{Filter: f, Default: ix.DefaultFilter(actor), Options: ix.Options(f)}, nil
}

// subject resolves the user a personal report is about. Anyone may read
// their own; managers may read anyone they can see.
func (s *DashboardService) subject(ctx context.Context, actorID, userID string) (models.User, *hierarchy.Index, reporting.Records, error) {
	if userID == "" {
		userID = actorID
	}
	actor, ix, rec, err := s.snapshot(ctx, actorID)
	if err != nil {
		return models.User{}, nil, reporting.Records{}, err
	}
	if userID != actor.ID && !ix.CanManage(actor, userID) {
		return models.User{}, nil, reporting.Records{}, forbidden("Nhân sự không thuộc phạm vi quản lý.")
	}
	u, ok := ix.User(userID)
	if !ok {
		return models.User{}, nil, reporting.Records{}, &Error{Kind: ErrNotFound, Msg: "Người dùng không tồn tại."}
	}
	return u, ix, rec, nil
}

// KPI measures userID against the targets of the month rng starts in.
func (s *DashboardService) KPI(ctx context.Context, actorID, userID string, rng reporting.DateRange) (reporting.KPI, error) {
	u, _, rec, err := s.subject(ctx, actorID, userID)
	if err != nil {
		return reporting.KPI{}, err
	}
	month := reporting.MonthOf(rng.Start)
	if month == "" {
		month = s.now().Format("2006-01")
	}
	targets, err := s.targets.Effective(ctx, u.ID, month)
	if err != nil {
		return reporting.KPI{}, err
	}
	return reporting.ComputeKPI(u, rec, rng, targets), nil
}

// Timeline returns userID's records in rng matching search, grouped by day.
func (s *DashboardService) Timeline(ctx context.Context, actorID, userID string, rng reporting.DateRange, search string) ([]reporting.DayGroup, error) {
	u, _, rec, err := s.subject(ctx, actorID, userID)
	if err != nil {
		return nil, err
	}
	mine := rec.Filter(func(id string) bool { return id == u.ID }, reporting.DateRange{})
	return reporting.Timeline(mine, rng, search), nil
}
