package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/session"
	"github.com/saleflow/backend/internal/store"
)

const (
	defaultPasswordMinLength = 6
	adminName                = "Administrator"
	hqName                   = "Trụ sở chính"
)

// HashPassword bcrypt-hashes a password. The empty password stays empty so
// that accounts created without one keep logging in without one.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether supplied matches stored. Both empty is a
// match. Stored values that are not bcrypt hashes are legacy plaintext.
func VerifyPassword(stored, supplied string) bool {
	if stored == "" {
		return supplied == ""
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

type AuthService struct {
	store          store.Store
	sessions       *session.Manager
	recorder       *activity.Recorder
	minPasswordLen int
}

func NewAuthService(st store.Store, sessions *session.Manager, recorder *activity.Recorder, minPasswordLen int) *AuthService {
	if minPasswordLen <= 0 {
		minPasswordLen = defaultPasswordMinLength
	}
	return &AuthService{store: st, sessions: sessions, recorder: recorder, minPasswordLen: minPasswordLen}
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token   string          `json:"token"`
	Session session.Session `json:"session"`
	User    models.User     `json:"user"`
}

// Login checks the credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	id := strings.TrimSpace(req.ID)
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("Login attempt for unknown user", map[string]interface{}{"user_id": id})
		return LoginResult{}, &Error{Kind: ErrInvalidCredentials, Msg: "Mã nhân viên hoặc mật khẩu không đúng."}
	}
	if err != nil {
		return LoginResult{}, storeErr("load user", err)
	}
	if !VerifyPassword(user.Password, req.Password) {
		logger.Warn("Login attempt with wrong password", map[string]interface{}{"user_id": id})
		return LoginResult{}, &Error{Kind: ErrInvalidCredentials, Msg: "Mã nhân viên hoặc mật khẩu không đúng."}
	}

	sess, token, err := s.sessions.Begin(ctx, user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("begin session: %w", err)
	}
	logger.WithUser(user.ID, "auth").Info("User logged in")
	return LoginResult{Token: token, Session: sess, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, sess session.Session) error {
	if err := s.sessions.End(ctx, sess.ID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	logger.WithUser(sess.UserID, "auth").Info("User logged out")
	return nil
}

// CurrentUser loads the user behind a session. A session whose user was
// deleted counts as logged out.
func (s *AuthService) CurrentUser(ctx context.Context, sess session.Session) (models.User, error) {
	user, err := s.store.GetUser(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, session.ErrNoSession
	}
	if err != nil {
		return models.User{}, storeErr("load user", err)
	}
	return user, nil
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePassword requires the old password only when one is set.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) (activity.Result, error) {
	if len([]rune(req.NewPassword)) < s.minPasswordLen {
		return activity.Result{}, invalid(fmt.Sprintf("Mật khẩu mới phải có ít nhất %d ký tự.", s.minPasswordLen))
	}
	if req.NewPassword != req.ConfirmPassword {
		return activity.Result{}, invalid("Mật khẩu xác nhận không khớp.")
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return activity.Result{}, &Error{Kind: ErrNotFound, Msg: "Người dùng không tồn tại."}
	}
	if err != nil {
		return activity.Result{}, storeErr("load user", err)
	}
	if user.Password != "" && !VerifyPassword(user.Password, req.OldPassword) {
		return activity.Result{}, &Error{Kind: ErrInvalidPassword, Msg: "Mật khẩu hiện tại không chính xác."}
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return activity.Result{}, err
	}
	user.Password = hashed
	if err := s.store.UpdateUser(ctx, &user); err != nil {
		return activity.Result{}, storeErr("update user", err)
	}
	logger.WithUser(userID, "auth").Info("Password changed")
	return s.recorder.Record(ctx, activity.ActorOf(user), models.ActionUpdate, models.TargetSystem, user.ID, "Đổi mật khẩu"), nil
}

// EnsureSystem seeds the root account and the HQ department when missing and
// repairs an HQ record without a level. adminPassword applies only when the
// root account is created.
func (s *AuthService) EnsureSystem(ctx context.Context, adminPassword string) error {
	_, err := s.store.GetUser(ctx, models.AdminID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hashed, err := HashPassword(adminPassword)
		if err != nil {
			return err
		}
		admin := &models.User{
			ID:       models.AdminID,
			Name:     adminName,
			Role:     models.RoleDirector,
			Password: hashed,
			JoinDate: models.Timestamp(time.Now()),
		}
		if err := s.store.CreateUser(ctx, admin); err != nil {
			return storeErr("seed admin", err)
		}
		logger.Info("Seeded default admin account", map[string]interface{}{"user_id": models.AdminID})
	case err != nil:
		return storeErr("load admin", err)
	}

	hq, err := s.store.GetDepartment(ctx, models.HQID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hq = models.Department{
			ID:          models.HQID,
			Name:        hqName,
			ManagerName: adminName,
			ManagerID:   models.AdminID,
			Level:       models.LevelHQ,
		}
		if err := s.store.CreateDepartment(ctx, &hq); err != nil {
			return storeErr("seed HQ", err)
		}
		logger.Info("Seeded HQ department", nil)
	case err != nil:
		return storeErr("load HQ", err)
	case hq.Level == "":
		hq.Level = models.LevelHQ
		hq.ParentID = ""
		hq.ManagerID = models.AdminID
		if err := s.store.UpdateDepartment(ctx, &hq); err != nil {
			return storeErr("repair HQ", err)
		}
		logger.Info("Repaired HQ department level", nil)
	}
	return nil
}
