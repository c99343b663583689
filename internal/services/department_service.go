package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/store"
)

type DepartmentRequest struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	ManagerName string                 `json:"managerName"`
	ManagerID   string                 `json:"managerId"`
	Level       models.DepartmentLevel `json:"level"`
	ParentID    string                 `json:"parentId"`
}

func (r DepartmentRequest) department() models.Department {
	return models.Department{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		ManagerName: r.ManagerName,
		ManagerID:   r.ManagerID,
		Level:       r.Level,
		ParentID:    r.ParentID,
	}
}

// DepartmentNode is a department with its cumulative headcount.
type DepartmentNode struct {
	models.Department
	Headcount int  `json:"headcount"`
	Orphan    bool `json:"orphan"`
}

// HQDeletionStatus describes the pending HQ deletion, if any.
type HQDeletionStatus struct {
	Pending      bool   `json:"pending"`
	DepartmentID string `json:"departmentId,omitempty"`
	Remaining    int    `json:"remaining"`
}

type hqCountdown struct {
	deptID    string
	remaining int
	cancel    context.CancelFunc
	done      chan struct{}
}

type DepartmentService struct {
	store    store.Store
	dir      *Directory
	recorder *activity.Recorder

	ticks int
	tick  time.Duration

	mu      sync.Mutex
	pending *hqCountdown
}

func NewDepartmentService(st store.Store, dir *Directory, recorder *activity.Recorder, ticks int, tick time.Duration) *DepartmentService {
	if ticks <= 0 {
		ticks = 10
	}
	if tick <= 0 {
		tick = time.Second
	}
	return &DepartmentService{store: st, dir: dir, recorder: recorder, ticks: ticks, tick: tick}
}

func requireStructureAdmin(actor models.User) error {
	if actor.Role.Rank() < models.RoleGroupManager.Rank() {
		return forbidden("Bạn không có quyền chỉnh sửa cơ cấu tổ chức.")
	}
	return nil
}

func validateDepartment(ix *hierarchy.Index, d models.Department, previousID string) error {
	if d.ID == "" || d.Name == "" {
		return invalid("Thiếu ID hoặc Tên phòng")
	}
	if d.Level == "" {
		return invalid("Chưa chọn cấp bậc")
	}
	if !d.Level.Valid() {
		return invalid("Cấp bậc không hợp lệ.")
	}
	if d.Level != models.LevelHQ && d.ParentID == "" {
		return invalid("Cần chọn đơn vị cấp trên trực thuộc")
	}
	if d.ParentID != "" && previousID != "" {
		// A department cannot sit under itself or its own descendants.
		if ix.Subtree(previousID)[d.ParentID] || d.ParentID == d.ID {
			return invalid("Đơn vị cấp trên không hợp lệ.")
		}
	}
	return nil
}

// List returns every department with its headcount, ordered as the tree shows them.
func (s *DepartmentService) List(ctx context.Context) ([]DepartmentNode, error) {
	ix, err := s.dir.Index(ctx)
	if err != nil {
		return nil, err
	}
	orphans := make(map[string]bool)
	for _, d := range ix.OrphanDepartments() {
		orphans[d.ID] = true
	}
	out := make([]DepartmentNode, 0, len(ix.Departments()))
	for _, d := range ix.Departments() {
		out = append(out, DepartmentNode{Department: d, Headcount: ix.CumulativeHeadcount(d.ID), Orphan: orphans[d.ID]})
	}
	return out, nil
}

func (s *DepartmentService) Orphans(ctx context.Context) ([]models.Department, error) {
	ix, err := s.dir.Index(ctx)
	if err != nil {
		return nil, err
	}
	return ix.OrphanDepartments(), nil
}

// ParentCandidates lists departments a department of level may sit under.
func (s *DepartmentService) ParentCandidates(ctx context.Context, level models.DepartmentLevel) ([]models.Department, error) {
	ix, err := s.dir.Index(ctx)
	if err != nil {
		return nil, err
	}
	return ix.ParentCandidates(level), nil
}

func (s *DepartmentService) Create(ctx context.Context, actorID string, req DepartmentRequest) (models.Department, activity.Result, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return models.Department{}, activity.Result{}, err
	}
	if err := requireStructureAdmin(actor); err != nil {
		return models.Department{}, activity.Result{}, err
	}
	d := req.department()
	if err := validateDepartment(ix, d, ""); err != nil {
		return models.Department{}, activity.Result{}, err
	}
	if err := s.store.CreateDepartment(ctx, &d); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Department{}, activity.Result{}, &Error{Kind: ErrDuplicate, Msg: "Mã phòng ban đã tồn tại"}
		}
		return models.Department{}, activity.Result{}, storeErr("create department", err)
	}
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetSystem, d.ID, "Tạo đơn vị "+d.Name)
	return d, res, nil
}

// Update edits department previousID. When the id changes, users and child
// departments are moved to the new id in one atomic migration.
func (s *DepartmentService) Update(ctx context.Context, actorID, previousID string, req DepartmentRequest) (models.Department, activity.Result, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return models.Department{}, activity.Result{}, err
	}
	if err := requireStructureAdmin(actor); err != nil {
		return models.Department{}, activity.Result{}, err
	}
	if _, ok := ix.Department(previousID); !ok {
		return models.Department{}, activity.Result{}, &Error{Kind: ErrNotFound, Msg: "Không tìm thấy đơn vị."}
	}
	d := req.department()
	if err := validateDepartment(ix, d, previousID); err != nil {
		return models.Department{}, activity.Result{}, err
	}

	desc := "Cập nhật đơn vị " + d.ID
	if d.ID != previousID {
		if err := s.store.MigrateDepartmentID(ctx, previousID, &d); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return models.Department{}, activity.Result{}, &Error{Kind: ErrDuplicate, Msg: "Mã phòng ban đã tồn tại"}
			}
			return models.Department{}, activity.Result{}, storeErr("migrate department", err)
		}
		desc = "Đổi mã đơn vị " + previousID + " sang " + d.ID
		logger.Info("Department id migrated", map[string]interface{}{
			"old_id": previousID,
			"new_id": d.ID,
		})
	} else if err := s.store.UpdateDepartment(ctx, &d); err != nil {
		return models.Department{}, activity.Result{}, storeErr("update department", err)
	}
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetSystem, d.ID, desc)
	return d, res, nil
}

// Delete removes a department immediately. Headquarters-level departments
// go through RequestHQDeletion.
func (s *DepartmentService) Delete(ctx context.Context, actorID, id string) (activity.Result, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return activity.Result{}, err
	}
	if err := requireStructureAdmin(actor); err != nil {
		return activity.Result{}, err
	}
	if d, ok := ix.Department(id); ok && d.Level == models.LevelHQ {
		return activity.Result{}, forbidden("Xóa Trụ sở cần xác nhận mật khẩu.")
	}
	if err := s.store.DeleteDepartment(ctx, id); err != nil {
		return activity.Result{}, storeErr("delete department", err)
	}
	return s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionDelete, models.TargetSystem, id, "Xóa đơn vị "+id), nil
}

// RequestHQDeletion checks the actor's password and, if it matches, starts a
// countdown after which headquarters deptID is deleted. A wrong or empty
// password changes nothing.
func (s *DepartmentService) RequestHQDeletion(ctx context.Context, actorID, deptID, password string) (HQDeletionStatus, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return HQDeletionStatus{}, err
	}
	if err := requireStructureAdmin(actor); err != nil {
		return HQDeletionStatus{}, err
	}
	if deptID == "" {
		deptID = models.HQID
	}
	d, ok := ix.Department(deptID)
	if !ok {
		return HQDeletionStatus{}, &Error{Kind: ErrNotFound, Msg: "Không tìm thấy đơn vị."}
	}
	if d.Level != models.LevelHQ {
		return HQDeletionStatus{}, invalid("Đơn vị không phải Trụ sở.")
	}
	if password == "" || !VerifyPassword(actor.Password, password) {
		logger.WithUser(actor.ID, "department_service").Warn("HQ deletion rejected: wrong password")
		return HQDeletionStatus{}, &Error{Kind: ErrInvalidPassword, Msg: "Mật khẩu không đúng!"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return s.statusLocked(), &Error{Kind: ErrDuplicate, Msg: "Đang chờ xóa Trụ sở."}
	}

	// The countdown outlives the request.
	cctx, cancel := context.WithCancel(context.Background())
	cd := &hqCountdown{deptID: d.ID, remaining: s.ticks, cancel: cancel, done: make(chan struct{})}
	s.pending = cd
	go s.runCountdown(cctx, cd, activity.ActorOf(actor))

	logger.WithUser(actor.ID, "department_service").WithFields(map[string]interface{}{
		"department_id": d.ID,
		"ticks":         s.ticks,
	}).Info("HQ deletion scheduled")
	return s.statusLocked(), nil
}

func (s *DepartmentService) runCountdown(ctx context.Context, cd *hqCountdown, actor activity.Actor) {
	defer close(cd.done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		cd.remaining--
		if cd.remaining > 0 {
			s.mu.Unlock()
			continue
		}
		s.pending = nil
		s.mu.Unlock()

		if err := s.store.DeleteDepartment(context.Background(), cd.deptID); err != nil {
			logger.WithError(err, "department_service").WithField("department_id", cd.deptID).Error("HQ deletion failed")
			return
		}
		logger.Info("HQ department deleted", map[string]interface{}{"actor_id": actor.ID, "department_id": cd.deptID})
		s.recorder.Record(context.Background(), actor, models.ActionDelete, models.TargetSystem, cd.deptID, "Xóa Trụ sở "+cd.deptID)
		return
	}
}

// CancelHQDeletion aborts a pending countdown. It reports whether one was pending.
func (s *DepartmentService) CancelHQDeletion() bool {
	s.mu.Lock()
	cd := s.pending
	s.pending = nil
	if cd != nil {
		// Cancelled under the lock so the countdown cannot reach zero after this.
		cd.cancel()
	}
	s.mu.Unlock()
	if cd == nil {
		return false
	}
	<-cd.done
	logger.Info("HQ deletion cancelled", nil)
	return true
}

func (s *DepartmentService) HQDeletionStatus() HQDeletionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *DepartmentService) statusLocked() HQDeletionStatus {
	if s.pending == nil {
		return HQDeletionStatus{}
	}
	return HQDeletionStatus{Pending: true, DepartmentID: s.pending.deptID, Remaining: s.pending.remaining}
}
