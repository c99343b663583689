// Package store persists the sales collections. Two drivers implement Store:
// postgres through gorm for deployments, and an in-memory one for local runs
// and tests.
package store

import (
	"context"
	"errors"

	"github.com/saleflow/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store is keyed by string ids. List calls taking a userID return every row
// when userID is empty.
type Store interface {
	Ping(ctx context.Context) error

	GetUser(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id string) error

	GetDepartment(ctx context.Context, id string) (models.Department, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	CreateDepartment(ctx context.Context, d *models.Department) error
	UpdateDepartment(ctx context.Context, d *models.Department) error
	DeleteDepartment(ctx context.Context, id string) error
	// MigrateDepartmentID replaces oldID by d.ID everywhere in one step: d is
	// created, children and users are repointed, and oldID is removed. On
	// error nothing is changed.
	MigrateDepartmentID(ctx context.Context, oldID string, d *models.Department) error

	GetAppointment(ctx context.Context, id string) (models.Appointment, error)
	ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error)
	FindAppointmentsByPhone(ctx context.Context, phone string) ([]models.Appointment, error)
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointment(ctx context.Context, a *models.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	GetConsultation(ctx context.Context, id string) (models.Consultation, error)
	ListConsultations(ctx context.Context, userID string) ([]models.Consultation, error)
	FindConsultationsByPhone(ctx context.Context, phone string) ([]models.Consultation, error)
	CreateConsultation(ctx context.Context, c *models.Consultation) error
	UpdateConsultation(ctx context.Context, c *models.Consultation) error
	DeleteConsultation(ctx context.Context, id string) error

	GetRevenue(ctx context.Context, id string) (models.Revenue, error)
	ListRevenues(ctx context.Context, userID string) ([]models.Revenue, error)
	CreateRevenue(ctx context.Context, r *models.Revenue) error
	UpdateRevenue(ctx context.Context, r *models.Revenue) error
	DeleteRevenue(ctx context.Context, id string) error

	GetProjectByContract(ctx context.Context, contractCode string) (models.ProjectProfile, error)
	ListProjects(ctx context.Context, userID string) ([]models.ProjectProfile, error)
	FindProjectsByPhone(ctx context.Context, phone string) ([]models.ProjectProfile, error)
	CreateProject(ctx context.Context, p *models.ProjectProfile) error
	UpdateProject(ctx context.Context, p *models.ProjectProfile) error
	DeleteProjectByContract(ctx context.Context, contractCode string) error

	ListMessages(ctx context.Context) ([]models.Message, error)
	CreateMessage(ctx context.Context, m *models.Message) error
	MarkMessageRead(ctx context.Context, id string) error

	GetTarget(ctx context.Context, id string) (models.MonthlyTarget, error)
	ListTargets(ctx context.Context, userID string) ([]models.MonthlyTarget, error)
	SaveTarget(ctx context.Context, t *models.MonthlyTarget) error
}
