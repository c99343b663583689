package services

import (
	"context"
	"testing"
	"time"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/messaging"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/session"
	"github.com/saleflow/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ctx     context.Context
	store   *store.MemoryStore
	sink    *activity.MemorySink
	dir     *Directory
	auth    *AuthService
	users   *UserService
	depts   *DepartmentService
	records *RecordService
	targets *TargetService
	dash    *DashboardService
	msgs    *MessageService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()

	for _, d := range []models.Department{
		{ID: "HQ", Name: "Trụ sở chính", Level: models.LevelHQ, ManagerID: "ADMIN"},
		{ID: "REG01", Name: "Khu vực Bắc", Level: models.LevelRegion, ParentID: "HQ", ManagerID: "RM01"},
		{ID: "GRP01", Name: "Group A", Level: models.LevelGroup, ParentID: "REG01", ManagerID: "GM01"},
		{ID: "DEP01", Name: "Phòng 1", Level: models.LevelDepartment, ParentID: "GRP01", ManagerID: "M01"},
	} {
		d := d
		require.NoError(t, st.CreateDepartment(ctx, &d))
	}
	for _, u := range []models.User{
		{ID: "ADMIN", Name: "Administrator", Role: models.RoleDirector, DepartmentID: "HQ", Password: "admin-pass"},
		{ID: "RM01", Name: "Đặng Hải", Role: models.RoleRegionalManager, DepartmentID: "REG01", Password: "secret"},
		{ID: "GM01", Name: "Lê Hoa", Role: models.RoleGroupManager, DepartmentID: "GRP01", Password: "secret"},
		{ID: "M01", Name: "Trần Minh", Role: models.RoleManager, DepartmentID: "DEP01", Password: "secret"},
		{ID: "E01", Name: "Bình", Role: models.RoleEmployee, DepartmentID: "DEP01"},
	} {
		u := u
		require.NoError(t, st.CreateUser(ctx, &u))
	}

	sink := activity.NewMemorySink()
	recorder := activity.NewRecorder(sink)
	dir := NewDirectory(st)
	targets := NewTargetService(st, dir, reporting.DefaultTargets)
	records := NewRecordService(st, dir, recorder)
	return &harness{
		ctx:     ctx,
		store:   st,
		sink:    sink,
		dir:     dir,
		auth:    NewAuthService(st, session.NewManager(session.NewMemoryStore(), []byte("test"), time.Hour), recorder, 6),
		users:   NewUserService(st, dir, recorder),
		depts:   NewDepartmentService(st, dir, recorder, 3, time.Millisecond),
		records: records,
		targets: targets,
		dash:    NewDashboardService(dir, targets),
		msgs:    NewMessageService(st, dir),
	}
}

func (h *harness) user(t *testing.T, id string) models.User {
	t.Helper()
	u, err := h.store.GetUser(h.ctx, id)
	require.NoError(t, err)
	return u
}

func TestVerifyPassword(t *testing.T) {
	hashed, err := HashPassword("secret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		stored   string
		supplied string
		want     bool
	}{
		{"both empty", "", "", true},
		{"empty stored", "", "x", false},
		{"bcrypt match", hashed, "secret", true},
		{"bcrypt mismatch", hashed, "other", false},
		{"legacy match", "plain", "plain", true},
		{"legacy mismatch", "plain", "Plain", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.stored, tt.supplied))
		})
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	res, err := h.auth.Login(h.ctx, LoginRequest{ID: "E01"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "E01", res.User.ID)

	_, err = h.auth.Login(h.ctx, LoginRequest{ID: "M01", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = h.auth.Login(h.ctx, LoginRequest{ID: "NOPE", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, h.auth.Logout(h.ctx, res.Session))
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)

	_, err := h.auth.ChangePassword(h.ctx, "M01", ChangePasswordRequest{OldPassword: "secret", NewPassword: "abc", ConfirmPassword: "abc"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.auth.ChangePassword(h.ctx, "M01", ChangePasswordRequest{OldPassword: "secret", NewPassword: "newpass", ConfirmPassword: "newpasx"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.auth.ChangePassword(h.ctx, "M01", ChangePasswordRequest{OldPassword: "bad", NewPassword: "newpass", ConfirmPassword: "newpass"})
	assert.ErrorIs(t, err, ErrInvalidPassword)

	res, err := h.auth.ChangePassword(h.ctx, "M01", ChangePasswordRequest{OldPassword: "secret", NewPassword: "newpass", ConfirmPassword: "newpass"})
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, VerifyPassword(h.user(t, "M01").Password, "newpass"))

	logs, err := h.sink.Recent(h.ctx, "M01", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionUpdate, logs[0].Action)
	assert.Equal(t, models.TargetSystem, logs[0].TargetType)

	// No password set: the old one is not asked for.
	_, err = h.auth.ChangePassword(h.ctx, "E01", ChangePasswordRequest{NewPassword: "first1", ConfirmPassword: "first1"})
	require.NoError(t, err)
	_, err = h.auth.Login(h.ctx, LoginRequest{ID: "E01", Password: "first1"})
	assert.NoError(t, err)
}

func TestEnsureSystem(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	auth := NewAuthService(st, session.NewManager(session.NewMemoryStore(), []byte("k"), time.Hour), nil, 0)

	require.NoError(t, auth.EnsureSystem(ctx, "boot"))
	admin, err := st.GetUser(ctx, models.AdminID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDirector, admin.Role)
	assert.True(t, VerifyPassword(admin.Password, "boot"))

	hq, err := st.GetDepartment(ctx, models.HQID)
	require.NoError(t, err)
	assert.Equal(t, models.LevelHQ, hq.Level)

	hq.Level = ""
	require.NoError(t, st.UpdateDepartment(ctx, &hq))
	require.NoError(t, auth.EnsureSystem(ctx, "ignored"))
	hq, err = st.GetDepartment(ctx, models.HQID)
	require.NoError(t, err)
	assert.Equal(t, models.LevelHQ, hq.Level)

	admin, err = st.GetUser(ctx, models.AdminID)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(admin.Password, "boot"))
}

func TestCreateManagerProvisionsDepartment(t *testing.T) {
	h := newHarness(t)

	saved, err := h.users.Create(h.ctx, "GM01", UserRequest{
		ID: "NV010", Name: "Hà", Password: "pw", Role: models.RoleManager, NewDeptParentID: "GRP01",
	})
	require.NoError(t, err)
	u := saved.Item
	assert.True(t, saved.Activity.OK())
	assert.Equal(t, "PHÒ_NV010", u.DepartmentID)
	assert.Equal(t, "GM01", u.ManagerID)
	assert.NotEqual(t, "pw", u.Password)

	d, err := h.store.GetDepartment(h.ctx, "PHÒ_NV010")
	require.NoError(t, err)
	assert.Equal(t, models.LevelDepartment, d.Level)
	assert.Equal(t, "GRP01", d.ParentID)
	assert.Equal(t, "NV010", d.ManagerID)
	assert.Equal(t, "Phòng Hà", d.Name)

	logs, err := h.sink.Recent(h.ctx, "GM01", 10)
	require.NoError(t, err)
	targets := []string{}
	for _, l := range logs {
		assert.Equal(t, models.TargetSystem, l.TargetType)
		targets = append(targets, l.TargetID)
	}
	assert.ElementsMatch(t, []string{"PHÒ_NV010", "NV010"}, targets)
}

func TestCreateUserRejections(t *testing.T) {
	h := newHarness(t)
	before, _ := h.store.ListDepartments(h.ctx)

	_, err := h.users.Create(h.ctx, "GM01", UserRequest{ID: "NV011", Name: "X", Password: "pw", Role: models.RoleManager})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.users.Create(h.ctx, "GM01", UserRequest{ID: "NV012", Name: "Y", Password: "pw", Role: models.RoleEmployee})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.users.Create(h.ctx, "M01", UserRequest{ID: "NV013", Name: "Z", Password: "pw", Role: models.RoleRegionalManager})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Cấp bậc không hợp lệ.", err.Error())

	_, err = h.users.Create(h.ctx, "GM01", UserRequest{ID: "E01", Name: "Dup", Password: "pw", DepartmentID: "DEP01"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = h.users.Create(h.ctx, "E01", UserRequest{ID: "NV014", Name: "W", Password: "pw", DepartmentID: "DEP01"})
	assert.ErrorIs(t, err, ErrForbidden)

	after, _ := h.store.ListDepartments(h.ctx)
	assert.Equal(t, len(before), len(after))
	_, err = h.store.GetUser(h.ctx, "NV011")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	h := newHarness(t)

	saved, err := h.users.Update(h.ctx, "M01", "E01", UserRequest{Name: "Bình Mới", DepartmentID: "DEP01", Phone: "0900"})
	require.NoError(t, err)
	assert.Equal(t, "Bình Mới", saved.Item.Name)
	assert.Equal(t, models.RoleEmployee, saved.Item.Role)
	assert.True(t, saved.Activity.OK())

	_, err = h.users.Update(h.ctx, "M01", "RM01", UserRequest{Name: "X"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.users.Delete(h.ctx, "ADMIN", models.AdminID)
	assert.ErrorIs(t, err, ErrForbidden)
	res, err := h.users.Delete(h.ctx, "M01", "E01")
	require.NoError(t, err)
	assert.True(t, res.OK())
	_, err = h.store.GetUser(h.ctx, "E01")
	assert.ErrorIs(t, err, store.ErrNotFound)

	logs, err := h.sink.Recent(h.ctx, "M01", 10)
	require.NoError(t, err)
	actions := []models.ActivityAction{}
	for _, l := range logs {
		assert.Equal(t, "E01", l.TargetID)
		actions = append(actions, l.Action)
	}
	assert.ElementsMatch(t, []models.ActivityAction{models.ActionUpdate, models.ActionDelete}, actions)
}

func TestUpdateUserDepartment(t *testing.T) {
	h := newHarness(t)

	saved, err := h.users.Update(h.ctx, "M01", "E01", UserRequest{Name: "Bình"})
	require.NoError(t, err)
	assert.Equal(t, "DEP01", saved.Item.DepartmentID)
	assert.Equal(t, "DEP01", h.user(t, "E01").DepartmentID)

	_, err = h.users.Update(h.ctx, "M01", "E01", UserRequest{Name: "Bình", DepartmentID: "GHOST"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.users.Update(h.ctx, "M01", "E01", UserRequest{Name: "Bình", DepartmentID: "REG01"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "DEP01", h.user(t, "E01").DepartmentID)

	_, _, err = h.depts.Create(h.ctx, "GM01", DepartmentRequest{ID: "T1", Name: "Nhóm 1", Level: models.LevelTeam, ParentID: "DEP01"})
	require.NoError(t, err)
	saved, err = h.users.Update(h.ctx, "M01", "E01", UserRequest{Name: "Bình", DepartmentID: "T1"})
	require.NoError(t, err)
	assert.Equal(t, "T1", saved.Item.DepartmentID)

	saved, err = h.users.Update(h.ctx, "ADMIN", "E01", UserRequest{Name: "Bình", DepartmentID: "REG01"})
	require.NoError(t, err)
	assert.Equal(t, "REG01", saved.Item.DepartmentID)
}

func TestLifetimeRevenueRequiresManagement(t *testing.T) {
	h := newHarness(t)
	_, err := h.records.SaveRevenue(h.ctx, h.user(t, "E01"), models.Revenue{
		ContractCode: "HD-L1", AmountCollected: 2_000_000, ContractValue: 2_000_000, Date: "2024-03-01",
	})
	require.NoError(t, err)

	total, err := h.users.Lifetime(h.ctx, "E01", "E01")
	require.NoError(t, err)
	assert.Equal(t, float64(2_000_000), total)

	total, err = h.users.Lifetime(h.ctx, "M01", "E01")
	require.NoError(t, err)
	assert.Equal(t, float64(2_000_000), total)

	_, err = h.users.Lifetime(h.ctx, "E01", models.AdminID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.users.Lifetime(h.ctx, "M01", "RM01")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.users.Lifetime(h.ctx, "ADMIN", "GHOST")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepartmentMigration(t *testing.T) {
	h := newHarness(t)

	d, res, err := h.depts.Update(h.ctx, "GM01", "DEP01", DepartmentRequest{
		ID: "DEP99", Name: "Phòng 99", Level: models.LevelDepartment, ParentID: "GRP01", ManagerID: "M01",
	})
	require.NoError(t, err)
	assert.Equal(t, "DEP99", d.ID)
	assert.True(t, res.OK())

	_, err = h.store.GetDepartment(h.ctx, "DEP01")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, "DEP99", h.user(t, "E01").DepartmentID)
	assert.Equal(t, "DEP99", h.user(t, "M01").DepartmentID)

	_, _, err = h.depts.Update(h.ctx, "GM01", "GRP01", DepartmentRequest{
		ID: "GRP01", Name: "Group A", Level: models.LevelGroup, ParentID: "DEP99",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = h.depts.Update(h.ctx, "M01", "DEP99", DepartmentRequest{ID: "DEP99", Name: "x", Level: models.LevelDepartment, ParentID: "GRP01"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDepartmentCreateValidation(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.depts.Create(h.ctx, "GM01", DepartmentRequest{ID: "T1", Name: "Nhóm 1", Level: models.LevelTeam})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = h.depts.Create(h.ctx, "GM01", DepartmentRequest{ID: "T1", Name: "Nhóm 1"})
	assert.ErrorIs(t, err, ErrValidation)

	d, _, err := h.depts.Create(h.ctx, "GM01", DepartmentRequest{ID: "T1", Name: "Nhóm 1", Level: models.LevelTeam, ParentID: "DEP01"})
	require.NoError(t, err)
	assert.Equal(t, "DEP01", d.ParentID)

	_, _, err = h.depts.Create(h.ctx, "GM01", DepartmentRequest{ID: "T1", Name: "Nhóm 1", Level: models.LevelTeam, ParentID: "DEP01"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = h.depts.Delete(h.ctx, "GM01", models.HQID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.depts.Delete(h.ctx, "GM01", "T1")
	assert.NoError(t, err)
}

func TestHQDeletionWrongPasswordChangesNothing(t *testing.T) {
	h := newHarness(t)

	_, err := h.depts.RequestHQDeletion(h.ctx, "ADMIN", "", "nope")
	assert.ErrorIs(t, err, ErrInvalidPassword)
	_, err = h.depts.RequestHQDeletion(h.ctx, "ADMIN", "", "")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	assert.False(t, h.depts.HQDeletionStatus().Pending)
	_, err = h.store.GetDepartment(h.ctx, models.HQID)
	assert.NoError(t, err)
}

func TestHQDeletionCountdown(t *testing.T) {
	h := newHarness(t)

	status, err := h.depts.RequestHQDeletion(h.ctx, "ADMIN", "", "admin-pass")
	require.NoError(t, err)
	assert.True(t, status.Pending)
	assert.Equal(t, models.HQID, status.DepartmentID)
	assert.Equal(t, 3, status.Remaining)

	require.Eventually(t, func() bool {
		_, err := h.store.GetDepartment(h.ctx, models.HQID)
		return err != nil
	}, time.Second, time.Millisecond)
	assert.False(t, h.depts.HQDeletionStatus().Pending)
	assert.False(t, h.depts.CancelHQDeletion())
}

func TestHQDeletionCancel(t *testing.T) {
	h := newHarness(t)
	h.depts.tick = time.Hour

	_, err := h.depts.RequestHQDeletion(h.ctx, "ADMIN", "", "admin-pass")
	require.NoError(t, err)

	_, err = h.depts.RequestHQDeletion(h.ctx, "ADMIN", "", "admin-pass")
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.True(t, h.depts.CancelHQDeletion())
	assert.False(t, h.depts.HQDeletionStatus().Pending)
	_, err = h.store.GetDepartment(h.ctx, models.HQID)
	assert.NoError(t, err)
}

func TestHQLevelDepartmentsNeedPassword(t *testing.T) {
	h := newHarness(t)
	h.depts.tick = time.Hour

	_, _, err := h.depts.Create(h.ctx, "ADMIN", DepartmentRequest{ID: "HQ2", Name: "Trụ sở 2", Level: models.LevelHQ})
	require.NoError(t, err)
	_, err = h.depts.Delete(h.ctx, "ADMIN", "HQ2")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.store.GetDepartment(h.ctx, "HQ2")
	assert.NoError(t, err)

	_, _, err = h.depts.Update(h.ctx, "ADMIN", models.HQID, DepartmentRequest{ID: "HQ_MAIN", Name: "Trụ sở chính", Level: models.LevelHQ})
	require.NoError(t, err)
	_, err = h.depts.Delete(h.ctx, "ADMIN", "HQ_MAIN")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.store.GetDepartment(h.ctx, "HQ_MAIN")
	assert.NoError(t, err)

	_, err = h.depts.RequestHQDeletion(h.ctx, "ADMIN", "REG01", "admin-pass")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.depts.RequestHQDeletion(h.ctx, "ADMIN", "GHOST", "admin-pass")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, h.depts.HQDeletionStatus().Pending)
}

func TestHQDeletionCountdownTargetsRequestedDepartment(t *testing.T) {
	h := newHarness(t)

	_, _, err := h.depts.Update(h.ctx, "ADMIN", models.HQID, DepartmentRequest{ID: "HQ_MAIN", Name: "Trụ sở chính", Level: models.LevelHQ})
	require.NoError(t, err)

	status, err := h.depts.RequestHQDeletion(h.ctx, "ADMIN", "HQ_MAIN", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, "HQ_MAIN", status.DepartmentID)

	require.Eventually(t, func() bool {
		_, err := h.store.GetDepartment(h.ctx, "HQ_MAIN")
		return err != nil
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		logs, _ := h.sink.Recent(h.ctx, "ADMIN", 10)
		for _, l := range logs {
			if l.Action == models.ActionDelete && l.TargetID == "HQ_MAIN" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestRevenueOpensProjectOnce(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")

	first, err := h.records.SaveRevenue(h.ctx, e01, models.Revenue{
		ContractCode: "HD-001", AmountCollected: 5_000_000, Date: "2024-03-01", CustomerName: "Cty A", Phone: "0901",
	})
	require.NoError(t, err)
	assert.True(t, first.ProjectCreated)
	assert.Equal(t, models.RevenueNewContract, first.Item.Type)
	assert.Equal(t, float64(5_000_000), first.Item.ContractValue)
	assert.True(t, first.Activity.OK())

	second, err := h.records.SaveRevenue(h.ctx, e01, models.Revenue{
		ContractCode: "HD-001", AmountCollected: 3_000_000, ContractValue: 10_000_000, Date: "2024-03-05",
	})
	require.NoError(t, err)
	assert.False(t, second.ProjectCreated)

	projects, err := h.store.ListProjects(h.ctx, "")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Contains(t, projects[0].ID, "PROJ_HD001_")

	ledger, err := h.records.Projects(h.ctx, "E01")
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, float64(8_000_000), ledger[0].Paid)
	assert.Equal(t, models.ProjectStatusDefault, ledger[0].Status)

	_, err = h.records.SaveRevenue(h.ctx, e01, models.Revenue{ContractCode: "HD-002", Date: "2024-03-01"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSaveProjectUpdatesByContractCode(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")

	created, err := h.records.SaveProject(h.ctx, e01, models.ProjectProfile{ContractCode: "HD-9", CustomerName: "B", ContractValue: 100})
	require.NoError(t, err)

	updated, err := h.records.SaveProject(h.ctx, e01, models.ProjectProfile{ContractCode: "HD-9", CustomerName: "B", Status: "Hoàn thành", ContractValue: 100})
	require.NoError(t, err)
	assert.Equal(t, created.Item.ID, updated.Item.ID)

	p, err := h.store.GetProjectByContract(h.ctx, "HD-9")
	require.NoError(t, err)
	assert.Equal(t, "Hoàn thành", p.Status)

	_, err = h.records.DeleteProject(h.ctx, e01, "HD-9")
	require.NoError(t, err)
	_, err = h.store.GetProjectByContract(h.ctx, "HD-9")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = h.records.SaveProject(h.ctx, e01, models.ProjectProfile{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestProjectsOnlyChangedByOwner(t *testing.T) {
	h := newHarness(t)
	m01 := h.user(t, "M01")
	e01 := h.user(t, "E01")

	_, err := h.records.SaveProject(h.ctx, m01, models.ProjectProfile{ContractCode: "HD-1", CustomerName: "Cty M"})
	require.NoError(t, err)

	_, err = h.records.SaveProject(h.ctx, e01, models.ProjectProfile{ContractCode: "HD-1", CustomerName: "overwritten"})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.records.DeleteProject(h.ctx, e01, "HD-1")
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := h.store.GetProjectByContract(h.ctx, "HD-1")
	require.NoError(t, err)
	assert.Equal(t, "Cty M", p.CustomerName)
	assert.Equal(t, "M01", p.UserID)

	_, err = h.records.DeleteProject(h.ctx, e01, "HD-404")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.records.DeleteProject(h.ctx, m01, "HD-1")
	require.NoError(t, err)
}

func TestRecordOwnership(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")
	m01 := h.user(t, "M01")

	saved, err := h.records.SaveAppointment(h.ctx, e01, models.Appointment{CustomerName: "C", Phone: "0902", Date: "2024-03-02"})
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentNew, saved.Item.Status)

	_, err = h.records.DeleteAppointment(h.ctx, m01, saved.Item.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := h.records.DeleteAppointment(h.ctx, e01, saved.Item.ID)
	require.NoError(t, err)
	assert.True(t, res.OK())

	logs, err := h.sink.Recent(h.ctx, "E01", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.ElementsMatch(t, []models.ActivityAction{models.ActionCreate, models.ActionDelete}, []models.ActivityAction{logs[0].Action, logs[1].Action})
}

func TestLookupCustomerPrecedence(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")

	_, err := h.records.SaveConsultation(h.ctx, e01, models.Consultation{CustomerName: "Tư vấn", Phone: "0903", Date: "2024-03-01"})
	require.NoError(t, err)
	info, err := h.records.LookupCustomer(h.ctx, "0903")
	require.NoError(t, err)
	assert.Equal(t, "consultation", info.Source)

	_, err = h.records.SaveAppointment(h.ctx, e01, models.Appointment{CustomerName: "Hẹn", Phone: "0903", Date: "2024-03-02", Location: "Hà Nội"})
	require.NoError(t, err)
	info, err = h.records.LookupCustomer(h.ctx, "0903")
	require.NoError(t, err)
	assert.Equal(t, "appointment", info.Source)
	assert.Equal(t, "Hà Nội", info.City)

	_, err = h.records.SaveProject(h.ctx, e01, models.ProjectProfile{ContractCode: "HD-7", CustomerName: "Dự án", Phone: "0903"})
	require.NoError(t, err)
	info, err = h.records.LookupCustomer(h.ctx, "0903")
	require.NoError(t, err)
	assert.Equal(t, "project", info.Source)
	assert.Equal(t, "HD-7", info.ContractCode)

	info, err = h.records.LookupCustomer(h.ctx, "0000")
	require.NoError(t, err)
	assert.Nil(t, info)

	match, err := h.records.LatestAppointment(h.ctx, "0903")
	require.NoError(t, err)
	assert.Equal(t, "Bình", match.CreatorName)
}

func TestKPIUsesStoredTarget(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")
	_, err := h.records.SaveRevenue(h.ctx, e01, models.Revenue{ContractCode: "HD-1", AmountCollected: 10_000_000, Date: "2024-03-10", Type: models.RevenueHosting})
	require.NoError(t, err)

	rng := reporting.DateRange{Start: "2024-03-01", End: "2024-03-31"}
	kpi, err := h.dash.KPI(h.ctx, "E01", "", rng)
	require.NoError(t, err)
	assert.Equal(t, reporting.DefaultTargets, kpi.Targets)
	assert.Equal(t, float64(25), kpi.Revenue.Percent)

	_, err = h.targets.Save(h.ctx, "M01", TargetRequest{UserID: "E01", MonthStr: "2024-03", TargetRevenue: 5_000_000})
	require.NoError(t, err)
	kpi, err = h.dash.KPI(h.ctx, "M01", "E01", rng)
	require.NoError(t, err)
	assert.Equal(t, float64(200), kpi.Revenue.Percent)
	assert.Equal(t, float64(100), kpi.Revenue.Bar)
	assert.Equal(t, 16, kpi.Targets.Appointments)

	_, err = h.dash.KPI(h.ctx, "E01", "M01", rng)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestManagerDashboardScope(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")
	_, err := h.records.SaveRevenue(h.ctx, e01, models.Revenue{ContractCode: "HD-1", AmountCollected: 7, Date: "2024-03-10", Type: models.RevenueHosting})
	require.NoError(t, err)

	d, err := h.dash.Manager(h.ctx, "GM01", DashboardQuery{DateRange: reporting.DateRange{Start: "2024-03-01", End: "2024-03-31"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"M01", "E01"}, d.ScopeUserIDs)
	assert.Equal(t, float64(7), d.Team.Revenue)
	require.NotEmpty(t, d.TopGlobal)
	assert.Equal(t, "E01", d.TopGlobal[0].ID)

	_, err = h.dash.Manager(h.ctx, "M01", DashboardQuery{Filter: hierarchy.Filter{User: "RM01"}})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBroadcast(t *testing.T) {
	h := newHarness(t)

	m, err := h.msgs.Broadcast(h.ctx, "GM01", BroadcastRequest{Target: messaging.TargetAll, Content: "Họp 9h"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"M01", "E01"}, []string(m.ReceiverIDs))

	_, err = h.msgs.Broadcast(h.ctx, "GM01", BroadcastRequest{Target: messaging.TargetUser, TargetID: "GM01", Content: "x"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Không tìm thấy người nhận phù hợp!", err.Error())

	_, err = h.msgs.Broadcast(h.ctx, "E01", BroadcastRequest{Target: messaging.TargetAll, Content: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	inbox, err := h.msgs.Inbox(h.ctx, h.user(t, "E01"))
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.ErrorIs(t, h.msgs.MarkRead(h.ctx, h.user(t, "RM01"), inbox[0].ID), ErrForbidden)
	assert.ErrorIs(t, h.msgs.MarkRead(h.ctx, h.user(t, "GM01"), inbox[0].ID), ErrForbidden)
	assert.ErrorIs(t, h.msgs.MarkRead(h.ctx, h.user(t, "E01"), "MSG_GHOST"), ErrNotFound)
	require.NoError(t, h.msgs.MarkRead(h.ctx, h.user(t, "E01"), inbox[0].ID))

	inbox, err = h.msgs.Inbox(h.ctx, h.user(t, "E01"))
	require.NoError(t, err)
	assert.True(t, inbox[0].IsRead)
}

func TestDirectMessages(t *testing.T) {
	h := newHarness(t)
	e01 := h.user(t, "E01")

	_, err := h.msgs.Send(h.ctx, e01, DirectMessageRequest{ReceiverID: models.AdminID, Content: "Chào sếp"})
	require.NoError(t, err)
	_, err = h.msgs.Send(h.ctx, e01, DirectMessageRequest{ReceiverID: "GHOST", Content: "?"})
	assert.ErrorIs(t, err, ErrNotFound)

	conv, err := h.msgs.Conversation(h.ctx, h.user(t, "ADMIN"), "E01")
	require.NoError(t, err)
	require.Len(t, conv, 1)
	assert.Equal(t, "Chào sếp", conv[0].Content)
}

func TestProjectWorkbook(t *testing.T) {
	ledger := reporting.Ledger(
		[]models.ProjectProfile{{ContractCode: "HD-1", CustomerName: "A", ContractValue: 100}},
		[]models.Revenue{{ContractCode: "HD-1", AmountCollected: 40}},
	)
	f, err := BuildProjectWorkbook(ledger)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(projectSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Mã HĐ", rows[0][0])
	assert.Equal(t, "Người ký chung", rows[0][12])
	assert.Equal(t, "HD-1", rows[1][0])
	assert.Equal(t, models.ProjectStatusDefault, rows[1][7])
	assert.Equal(t, "40", rows[1][9])
	assert.Equal(t, "60", rows[1][10])

	assert.Equal(t, "Du_lieu_du_an_E01_2024-03-05.xlsx", ProjectExportFilename("E01", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))
}
