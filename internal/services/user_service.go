package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/store"
)

// UserRequest is the staff form. NewDeptName and NewDeptParentID only matter
// when a leader is created without a department.
type UserRequest struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Password        string          `json:"password"`
	Role            models.UserRole `json:"role"`
	DepartmentID    string          `json:"departmentId"`
	Phone           string          `json:"phone"`
	JoinDate        string          `json:"joinDate"`
	InitialRevenue  float64         `json:"initialRevenue"`
	NewDeptName     string          `json:"newDeptName"`
	NewDeptParentID string          `json:"newDeptParentId"`
}

type UserService struct {
	store    store.Store
	dir      *Directory
	recorder *activity.Recorder
	now      func() time.Time
}

func NewUserService(st store.Store, dir *Directory, recorder *activity.Recorder) *UserService {
	return &UserService{store: st, dir: dir, recorder: recorder, now: time.Now}
}

// Visible lists the users actorID may manage, actor first.
func (s *UserService) Visible(ctx context.Context, actorID string) ([]models.User, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return ix.Visible(actor), nil
}

func checkAssignableRole(actor models.User, role models.UserRole) error {
	if !role.Valid() {
		return invalid("Cấp bậc không hợp lệ.")
	}
	if actor.Role != models.RoleDirector && role.Rank() > actor.Role.Rank() {
		return invalid("Cấp bậc không hợp lệ.")
	}
	return nil
}

func requireManager(actor models.User) error {
	if actor.Role.Rank() < models.RoleTeamLeader.Rank() {
		return forbidden("Bạn không có quyền quản lý nhân sự.")
	}
	return nil
}

// Create adds a user managed by actor. Leaders without a department get one
// provisioned first.
func (s *UserService) Create(ctx context.Context, actorID string, req UserRequest) (Saved[models.User], error) {
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || strings.TrimSpace(req.Name) == "" || req.Password == "" {
		return Saved[models.User]{}, invalid("Vui lòng điền đủ thông tin")
	}
	if req.Role == "" {
		req.Role = models.RoleEmployee
	}

	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return Saved[models.User]{}, err
	}
	if err := requireManager(actor); err != nil {
		return Saved[models.User]{}, err
	}
	if err := checkAssignableRole(actor, req.Role); err != nil {
		return Saved[models.User]{}, err
	}
	if _, exists := ix.User(req.ID); exists {
		return Saved[models.User]{}, &Error{Kind: ErrDuplicate, Msg: "Mã nhân viên đã tồn tại"}
	}

	plan, err := ix.PlanProvisioning(hierarchy.ProvisionRequest{
		UserID:         req.ID,
		UserName:       req.Name,
		Role:           req.Role,
		DepartmentID:   req.DepartmentID,
		ParentID:       req.NewDeptParentID,
		DepartmentName: req.NewDeptName,
	})
	switch {
	case errors.Is(err, hierarchy.ErrDepartmentRequired):
		return Saved[models.User]{}, invalid("Vui lòng chọn đơn vị trực thuộc cho nhân viên.")
	case errors.Is(err, hierarchy.ErrParentRequired):
		return Saved[models.User]{}, invalid(fmt.Sprintf("Để tạo %s, vui lòng chọn \"Trực thuộc đơn vị cấp trên\" để hệ thống tạo nhóm/phòng tương ứng.", req.Role.Label()))
	case err != nil:
		return Saved[models.User]{}, err
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return Saved[models.User]{}, err
	}

	if plan.Create != nil {
		if err := s.store.CreateDepartment(ctx, plan.Create); err != nil {
			return Saved[models.User]{}, storeErr("provision department", err)
		}
		logger.Info("Provisioned department for leader", map[string]interface{}{
			"department_id": plan.Create.ID,
			"user_id":       req.ID,
			"parent_id":     plan.Create.ParentID,
		})
		s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetSystem, plan.Create.ID, "Tạo đơn vị "+plan.Create.Name+" cho "+req.ID)
	}
	if plan.Update != nil {
		if err := s.store.UpdateDepartment(ctx, plan.Update); err != nil {
			return Saved[models.User]{}, storeErr("reassign department manager", err)
		}
		s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetSystem, plan.Update.ID, "Giao quản lý đơn vị "+plan.Update.ID+" cho "+req.ID)
	}

	joinDate := req.JoinDate
	if joinDate == "" {
		joinDate = models.Timestamp(s.now())
	}
	user := models.User{
		ID:             req.ID,
		Name:           strings.TrimSpace(req.Name),
		Role:           req.Role,
		ManagerID:      actor.ID,
		DepartmentID:   plan.DepartmentID,
		Password:       hashed,
		Phone:          req.Phone,
		JoinDate:       joinDate,
		InitialRevenue: req.InitialRevenue,
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Saved[models.User]{}, &Error{Kind: ErrDuplicate, Msg: "Mã nhân viên đã tồn tại"}
		}
		return Saved[models.User]{}, storeErr("create user", err)
	}

	logger.WithUser(actor.ID, "user_service").WithField("target_user", user.ID).Info("User created")
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetSystem, user.ID, "Thêm nhân sự "+user.Name)
	return Saved[models.User]{Item: user, Activity: res}, nil
}

// Update edits a visible user. It never provisions departments and keeps the
// stored password when none is supplied.
func (s *UserService) Update(ctx context.Context, actorID, userID string, req UserRequest) (Saved[models.User], error) {
	if strings.TrimSpace(req.Name) == "" {
		return Saved[models.User]{}, invalid("Vui lòng điền đủ thông tin")
	}
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return Saved[models.User]{}, err
	}
	if err := requireManager(actor); err != nil {
		return Saved[models.User]{}, err
	}
	existing, ok := ix.User(userID)
	if !ok {
		return Saved[models.User]{}, &Error{Kind: ErrNotFound, Msg: "Người dùng không tồn tại."}
	}
	if !ix.CanManage(actor, userID) {
		return Saved[models.User]{}, forbidden("Nhân sự không thuộc phạm vi quản lý.")
	}
	if req.Role == "" {
		req.Role = existing.Role
	}
	if err := checkAssignableRole(actor, req.Role); err != nil {
		return Saved[models.User]{}, err
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Role = req.Role
	if req.DepartmentID != "" && req.DepartmentID != existing.DepartmentID {
		if _, ok := ix.Department(req.DepartmentID); !ok {
			return Saved[models.User]{}, invalid("Đơn vị không tồn tại.")
		}
		if actor.Role != models.RoleDirector && !ix.Subtree(ix.ManagedBy(actor.ID)...)[req.DepartmentID] {
			return Saved[models.User]{}, forbidden("Đơn vị không thuộc phạm vi quản lý.")
		}
		existing.DepartmentID = req.DepartmentID
	}
	existing.Phone = req.Phone
	existing.InitialRevenue = req.InitialRevenue
	if req.JoinDate != "" {
		existing.JoinDate = req.JoinDate
	}
	if req.Password != "" {
		hashed, err := HashPassword(req.Password)
		if err != nil {
			return Saved[models.User]{}, err
		}
		existing.Password = hashed
	}

	if err := s.store.UpdateUser(ctx, &existing); err != nil {
		return Saved[models.User]{}, storeErr("update user", err)
	}
	logger.WithUser(actor.ID, "user_service").WithField("target_user", userID).Info("User updated")
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetSystem, userID, "Cập nhật nhân sự "+existing.Name)
	return Saved[models.User]{Item: existing, Activity: res}, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, userID string) (activity.Result, error) {
	if userID == models.AdminID {
		return activity.Result{}, forbidden("Không thể xóa Admin chính")
	}
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return activity.Result{}, err
	}
	if err := requireManager(actor); err != nil {
		return activity.Result{}, err
	}
	target, ok := ix.User(userID)
	if !ok {
		return activity.Result{}, &Error{Kind: ErrNotFound, Msg: "Người dùng không tồn tại."}
	}
	if !ix.CanManage(actor, userID) {
		return activity.Result{}, forbidden("Nhân sự không thuộc phạm vi quản lý.")
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return activity.Result{}, storeErr("delete user", err)
	}
	logger.WithUser(actor.ID, "user_service").WithField("target_user", userID).Info("User deleted")
	return s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionDelete, models.TargetSystem, userID, "Xóa nhân sự "+target.Name), nil
}

// Lifetime returns initialRevenue plus everything the user ever collected.
// Actors read their own total and those of users they manage.
func (s *UserService) Lifetime(ctx context.Context, actorID, userID string) (float64, error) {
	actor, ix, err := s.dir.Actor(ctx, actorID)
	if err != nil {
		return 0, err
	}
	user, ok := ix.User(userID)
	if !ok {
		return 0, &Error{Kind: ErrNotFound, Msg: "Người dùng không tồn tại."}
	}
	if !ix.CanManage(actor, userID) {
		return 0, forbidden("Nhân sự không thuộc phạm vi quản lý.")
	}
	revs, err := s.store.ListRevenues(ctx, userID)
	if err != nil {
		return 0, storeErr("list revenues", err)
	}
	return reporting.LifetimeRevenue(user, revs), nil
}
