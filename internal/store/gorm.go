package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/saleflow/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the postgres driver. The *gorm.DB should be opened with
// TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func getWhere[T any](ctx context.Context, db *gorm.DB, column, value string) (T, error) {
	var v T
	err := db.WithContext(ctx).Where(column+" = ?", value).First(&v).Error
	return v, translate(err)
}

func listWhere[T any](ctx context.Context, db *gorm.DB, column, value, order string) ([]T, error) {
	var out []T
	q := db.WithContext(ctx).Order(order)
	if value != "" {
		q = q.Where(column+" = ?", value)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func create[T any](ctx context.Context, db *gorm.DB, v *T) error {
	return translate(db.WithContext(ctx).Create(v).Error)
}

// update writes every column except created_at and reports ErrNotFound when
// no row has v's primary key.
func update[T any](ctx context.Context, db *gorm.DB, v *T) error {
	res := db.WithContext(ctx).Model(v).Select("*").Omit("created_at").Updates(v)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func deleteWhere[T any](ctx context.Context, db *gorm.DB, column, value string) error {
	res := db.WithContext(ctx).Where(column+" = ?", value).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return getWhere[models.User](ctx, s.db, "id", id)
}

func (s *GormStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return listWhere[models.User](ctx, s.db, "", "", "id")
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return create(ctx, s.db, u)
}

func (s *GormStore) UpdateUser(ctx context.Context, u *models.User) error {
	return update(ctx, s.db, u)
}

func (s *GormStore) DeleteUser(ctx context.Context, id string) error {
	return deleteWhere[models.User](ctx, s.db, "id", id)
}

func (s *GormStore) GetDepartment(ctx context.Context, id string) (models.Department, error) {
	return getWhere[models.Department](ctx, s.db, "id", id)
}

func (s *GormStore) ListDepartments(ctx context.Context) ([]models.Department, error) {
	return listWhere[models.Department](ctx, s.db, "", "", "id")
}

func (s *GormStore) CreateDepartment(ctx context.Context, d *models.Department) error {
	return create(ctx, s.db, d)
}

func (s *GormStore) UpdateDepartment(ctx context.Context, d *models.Department) error {
	return update(ctx, s.db, d)
}

func (s *GormStore) DeleteDepartment(ctx context.Context, id string) error {
	return deleteWhere[models.Department](ctx, s.db, "id", id)
}

func (s *GormStore) MigrateDepartmentID(ctx context.Context, oldID string, d *models.Department) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.Department
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", oldID).First(&old).Error; err != nil {
			return translate(err)
		}
		if err := tx.Create(d).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&models.Department{}).Where("parent_id = ?", oldID).Update("parent_id", d.ID).Error; err != nil {
			return fmt.Errorf("repoint child departments: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("department_id = ?", oldID).Update("department_id", d.ID).Error; err != nil {
			return fmt.Errorf("repoint users: %w", err)
		}
		if err := tx.Where("id = ?", oldID).Delete(&models.Department{}).Error; err != nil {
			return fmt.Errorf("delete old department: %w", err)
		}
		return nil
	})
}

func (s *GormStore) GetAppointment(ctx context.Context, id string) (models.Appointment, error) {
	return getWhere[models.Appointment](ctx, s.db, "id", id)
}

func (s *GormStore) ListAppointments(ctx context.Context, userID string) ([]models.Appointment, error) {
	return listWhere[models.Appointment](ctx, s.db, "user_id", userID, "date DESC")
}

func (s *GormStore) FindAppointmentsByPhone(ctx context.Context, phone string) ([]models.Appointment, error) {
	return listWhere[models.Appointment](ctx, s.db, "phone", phone, "date DESC")
}

func (s *GormStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return create(ctx, s.db, a)
}

func (s *GormStore) UpdateAppointment(ctx context.Context, a *models.Appointment) error {
	return update(ctx, s.db, a)
}

func (s *GormStore) DeleteAppointment(ctx context.Context, id string) error {
	return deleteWhere[models.Appointment](ctx, s.db, "id", id)
}

func (s *GormStore) GetConsultation(ctx context.Context, id string) (models.Consultation, error) {
	return getWhere[models.Consultation](ctx, s.db, "id", id)
}

func (s *GormStore) ListConsultations(ctx context.Context, userID string) ([]models.Consultation, error) {
	return listWhere[models.Consultation](ctx, s.db, "user_id", userID, "date DESC")
}

func (s *GormStore) FindConsultationsByPhone(ctx context.Context, phone string) ([]models.Consultation, error) {
	return listWhere[models.Consultation](ctx, s.db, "phone", phone, "date DESC")
}

func (s *GormStore) CreateConsultation(ctx context.Context, c *models.Consultation) error {
	return create(ctx, s.db, c)
}

func (s *GormStore) UpdateConsultation(ctx context.Context, c *models.Consultation) error {
	return update(ctx, s.db, c)
}

func (s *GormStore) DeleteConsultation(ctx context.Context, id string) error {
	return deleteWhere[models.Consultation](ctx, s.db, "id", id)
}

func (s *GormStore) GetRevenue(ctx context.Context, id string) (models.Revenue, error) {
	return getWhere[models.Revenue](ctx, s.db, "id", id)
}

func (s *GormStore) ListRevenues(ctx context.Context, userID string) ([]models.Revenue, error) {
	return listWhere[models.Revenue](ctx, s.db, "user_id", userID, "date DESC")
}

func (s *GormStore) CreateRevenue(ctx context.Context, r *models.Revenue) error {
	return create(ctx, s.db, r)
}

func (s *GormStore) UpdateRevenue(ctx context.Context, r *models.Revenue) error {
	return update(ctx, s.db, r)
}

func (s *GormStore) DeleteRevenue(ctx context.Context, id string) error {
	return deleteWhere[models.Revenue](ctx, s.db, "id", id)
}

func (s *GormStore) GetProjectByContract(ctx context.Context, contractCode string) (models.ProjectProfile, error) {
	return getWhere[models.ProjectProfile](ctx, s.db, "contract_code", contractCode)
}

func (s *GormStore) ListProjects(ctx context.Context, userID string) ([]models.ProjectProfile, error) {
	return listWhere[models.ProjectProfile](ctx, s.db, "user_id", userID, "contract_code")
}

func (s *GormStore) FindProjectsByPhone(ctx context.Context, phone string) ([]models.ProjectProfile, error) {
	return listWhere[models.ProjectProfile](ctx, s.db, "phone", phone, "contract_code")
}

func (s *GormStore) CreateProject(ctx context.Context, p *models.ProjectProfile) error {
	return create(ctx, s.db, p)
}

func (s *GormStore) UpdateProject(ctx context.Context, p *models.ProjectProfile) error {
	return update(ctx, s.db, p)
}

func (s *GormStore) DeleteProjectByContract(ctx context.Context, contractCode string) error {
	return deleteWhere[models.ProjectProfile](ctx, s.db, "contract_code", contractCode)
}

func (s *GormStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	return listWhere[models.Message](ctx, s.db, "", "", "timestamp, id")
}

func (s *GormStore) CreateMessage(ctx context.Context, m *models.Message) error {
	return create(ctx, s.db, m)
}

func (s *GormStore) MarkMessageRead(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) GetTarget(ctx context.Context, id string) (models.MonthlyTarget, error) {
	return getWhere[models.MonthlyTarget](ctx, s.db, "id", id)
}

func (s *GormStore) ListTargets(ctx context.Context, userID string) ([]models.MonthlyTarget, error) {
	return listWhere[models.MonthlyTarget](ctx, s.db, "user_id", userID, "month_str")
}

func (s *GormStore) SaveTarget(ctx context.Context, t *models.MonthlyTarget) error {
	return s.db.WithContext(ctx).Save(t).Error
}
