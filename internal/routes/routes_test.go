package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saleflow/backend/internal/app"
	"github.com/saleflow/backend/internal/config"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/routes"
)

type testServer struct {
	app    *app.App
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Env:                    "test",
		StoreDriver:            config.StoreDriverMemory,
		ActivityDriver:         config.ActivityDriverMemory,
		JWTSecret:              "test-secret",
		SessionTTL:             time.Hour,
		BootstrapAdminPassword: "admin-pass",
		PasswordMinLength:      6,
		MessagePollInterval:    time.Second,
		HQDeleteTicks:          10,
		HQDeleteTick:           time.Second,
		TargetRevenue:          40_000_000,
		TargetAppointments:     16,
		TargetConsultations:    12,
	}
	a, err := app.New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx := context.Background()
	require.NoError(t, a.Bootstrap(ctx))
	_, err = app.Seed(ctx, a.Store, app.SeedData{
		Departments: []models.Department{
			{ID: "DEP01", Name: "Phòng 1", Level: models.LevelDepartment, ParentID: models.HQID, ManagerID: "M01"},
		},
		Users: []app.SeedUser{
			{ID: "M01", Name: "Trần Minh", Password: "secret1", Role: models.RoleManager, DepartmentID: "DEP01", ManagerID: models.AdminID},
			{ID: "E01", Name: "Bình", Password: "secret2", Role: models.RoleEmployee, DepartmentID: "DEP01", ManagerID: "M01"},
		},
	})
	require.NoError(t, err)

	r := gin.New()
	routes.SetupRoutes(r, a.Dependencies())
	return &testServer{app: a, router: r}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, id, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"id": id, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestLoginAndCurrentUser(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"id": "E01", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var failure struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decode(t, w, &failure)
	assert.False(t, failure.Success)
	assert.Equal(t, "Mã nhân viên hoặc mật khẩu không đúng.", failure.Message)

	token := s.login(t, "E01", "secret2")
	w = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.User
	decode(t, w, &me)
	assert.Equal(t, "E01", me.ID)
	assert.Empty(t, me.Password)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/auth/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "M01", "secret1")

	w := s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserManagement(t *testing.T) {
	s := newTestServer(t)
	employee := s.login(t, "E01", "secret2")
	manager := s.login(t, "M01", "secret1")

	newUser := gin.H{"id": "NV09", "name": "Chi", "password": "123456", "role": "employee", "departmentId": "DEP01"}

	w := s.do(t, http.MethodPost, "/api/v1/users", employee, newUser)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/users", manager, newUser)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Activity struct {
			Status string `json:"status"`
		} `json:"activity"`
	}
	decode(t, w, &created)
	assert.Equal(t, "logged", created.Activity.Status)

	w = s.do(t, http.MethodPost, "/api/v1/users", manager, newUser)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var visible []models.User
	decode(t, w, &visible)
	ids := make([]string, 0, len(visible))
	for _, u := range visible {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []string{"M01", "E01", "NV09"}, ids)

	w = s.do(t, http.MethodDelete, "/api/v1/users/ADMIN", manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRevenueProjectAndExport(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "E01", "secret2")

	w := s.do(t, http.MethodPost, "/api/v1/revenues", token, gin.H{
		"contractCode":    "HD-01",
		"amountCollected": 5_000_000,
		"contractValue":   20_000_000,
		"date":            "2026-10-01",
		"customerName":    "Công ty Sen",
		"phone":           "0901234567",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved struct {
		Item           models.Revenue `json:"item"`
		ProjectCreated bool           `json:"projectCreated"`
	}
	decode(t, w, &saved)
	assert.True(t, saved.ProjectCreated)
	assert.Equal(t, "E01", saved.Item.UserID)

	w = s.do(t, http.MethodGet, "/api/v1/projects", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger []map[string]interface{}
	decode(t, w, &ledger)
	assert.Len(t, ledger, 1)

	w = s.do(t, http.MethodGet, "/api/v1/projects/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Du_lieu_du_an_E01_")
	assert.NotZero(t, w.Body.Len())

	manager := s.login(t, "M01", "secret1")
	w = s.do(t, http.MethodPut, "/api/v1/projects/HD-01", manager, gin.H{"customerName": "Đổi tên"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/api/v1/projects/HD-01", manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/users/E01/lifetime-revenue", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lifetime struct {
		LifetimeRevenue float64 `json:"lifetimeRevenue"`
	}
	decode(t, w, &lifetime)
	assert.Equal(t, float64(5_000_000), lifetime.LifetimeRevenue)

	w = s.do(t, http.MethodGet, "/api/v1/users/M01/lifetime-revenue", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCustomerLookupUnknownPhone(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "E01", "secret2")

	w := s.do(t, http.MethodGet, "/api/v1/customers/lookup?phone=0999", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Found bool `json:"found"`
	}
	decode(t, w, &resp)
	assert.False(t, resp.Found)

	w = s.do(t, http.MethodGet, "/api/v1/customers/lookup", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHQDeletionFlow(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "ADMIN", "admin-pass")
	manager := s.login(t, "M01", "secret1")

	w := s.do(t, http.MethodPost, "/api/v1/hq-deletion", manager, gin.H{"password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/hq-deletion", admin, gin.H{"password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/hq-deletion", admin, gin.H{"password": "admin-pass"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var status struct {
		Pending   bool `json:"pending"`
		Remaining int  `json:"remaining"`
	}
	decode(t, w, &status)
	assert.True(t, status.Pending)
	assert.Equal(t, 10, status.Remaining)

	w = s.do(t, http.MethodPost, "/api/v1/hq-deletion", admin, gin.H{"password": "admin-pass"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/hq-deletion", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cancelled struct {
		Cancelled bool `json:"cancelled"`
	}
	decode(t, w, &cancelled)
	assert.True(t, cancelled.Cancelled)

	_, err := s.app.Store.GetDepartment(context.Background(), models.HQID)
	assert.NoError(t, err)

	w = s.do(t, http.MethodPost, "/api/v1/departments", admin, gin.H{"id": "HQ2", "name": "Trụ sở 2", "level": models.LevelHQ})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodDelete, "/api/v1/departments/HQ2", admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/hq-deletion", admin, gin.H{"departmentId": "HQ2", "password": "admin-pass"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var target struct {
		DepartmentID string `json:"departmentId"`
	}
	decode(t, w, &target)
	assert.Equal(t, "HQ2", target.DepartmentID)
	w = s.do(t, http.MethodDelete, "/api/v1/hq-deletion", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBroadcastReachesInbox(t *testing.T) {
	s := newTestServer(t)
	manager := s.login(t, "M01", "secret1")
	employee := s.login(t, "E01", "secret2")

	w := s.do(t, http.MethodPost, "/api/v1/messages/broadcast", employee, gin.H{"target": "ALL", "content": "Họp"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/messages/broadcast", manager, gin.H{"target": "ALL", "content": "Họp lúc 9h"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/messages/inbox", employee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inbox struct {
		Unread   int              `json:"unread"`
		Messages []models.Message `json:"messages"`
	}
	decode(t, w, &inbox)
	assert.Equal(t, 1, inbox.Unread)
	require.Len(t, inbox.Messages, 1)
	assert.Equal(t, "Họp lúc 9h", inbox.Messages[0].Content)

	w = s.do(t, http.MethodPut, "/api/v1/messages/"+inbox.Messages[0].ID+"/read", employee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/messages/inbox", employee, nil)
	decode(t, w, &inbox)
	assert.Equal(t, 0, inbox.Unread)
}

func TestHealthReportsStores(t *testing.T) {
	s := newTestServer(t)
	checks := s.app.Health(context.Background())
	require.Contains(t, checks, "database")
	assert.NoError(t, checks["database"])
}
