package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/saleflow/backend/internal/models"
)

type table[T any] struct {
	rows map[string]T
	key  func(*T) string
}

func newTable[T any](key func(*T) string) *table[T] {
	return &table[T]{rows: make(map[string]T), key: key}
}

func (t *table[T]) get(id string) (T, error) {
	v, ok := t.rows[id]
	if !ok {
		return v, ErrNotFound
	}
	return v, nil
}

func (t *table[T]) insert(v *T) error {
	k := t.key(v)
	if _, ok := t.rows[k]; ok {
		return ErrDuplicate
	}
	t.rows[k] = *v
	return nil
}

func (t *table[T]) replace(v *T) error {
	k := t.key(v)
	if _, ok := t.rows[k]; !ok {
		return ErrNotFound
	}
	t.rows[k] = *v
	return nil
}

func (t *table[T]) remove(id string) error {
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// list returns rows accepted by keep, ordered by key.
func (t *table[T]) list(keep func(*T) bool) []T {
	keys := make([]string, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v := t.rows[k]
		if keep == nil || keep(&v) {
			out = append(out, v)
		}
	}
	return out
}

// MemoryStore keeps everything in process. One lock guards all tables so a
// department migration is observed either fully or not at all.
type MemoryStore struct {
	mu            sync.RWMutex
	users         *table[models.User]
	departments   *table[models.Department]
	appointments  *table[models.Appointment]
	consultations *table[models.Consultation]
	revenues      *table[models.Revenue]
	projects      *table[models.ProjectProfile]
	messages      *table[models.Message]
	targets       *table[models.MonthlyTarget]
	now           func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         newTable(func(v *models.User) string { return v.ID }),
		departments:   newTable(func(v *models.Department) string { return v.ID }),
		appointments:  newTable(func(v *models.Appointment) string { return v.ID }),
		consultations: newTable(func(v *models.Consultation) string { return v.ID }),
		revenues:      newTable(func(v *models.Revenue) string { return v.ID }),
		projects:      newTable(func(v *models.ProjectProfile) string { return v.ContractCode }),
		messages:      newTable(func(v *models.Message) string { return v.ID }),
		targets:       newTable(func(v *models.MonthlyTarget) string { return v.ID }),
		now:           time.Now,
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.get(id)
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(nil), nil
}

func (s *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	return s.users.insert(u)
}

func (s *MemoryStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.users.get(u.ID)
	if err != nil {
		return err
	}
	u.CreatedAt, u.UpdatedAt = old.CreatedAt, s.now()
	return s.users.replace(u)
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.remove(id)
}

func (s *MemoryStore) GetDepartment(_ context.Context, id string) (models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.departments.get(id)
}

func (s *MemoryStore) ListDepartments(_ context.Context) ([]models.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.departments.list(nil), nil
}

func (s *MemoryStore) CreateDepartment(_ context.Context, d *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.CreatedAt, d.UpdatedAt = s.now(), s.now()
	return s.departments.insert(d)
}

func (s *MemoryStore) UpdateDepartment(_ context.Context, d *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, err := s.departments.get(d.ID)
	if err != nil {
		return err
	}
	d.CreatedAt, d.UpdatedAt = old.CreatedAt, s.now()
	return s.departments.replace(d)
}

func (s *MemoryStore) DeleteDepartment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.departments.remove(id)
}

func (s *MemoryStore) MigrateDepartmentID(_ context.Context, oldID string, d *models.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate before touching anything.
	old, err := s.departments.get(oldID)
	if err != nil {
		return err
	}
	if _, ok := s.departments.rows[d.ID]; ok {
		return ErrDuplicate
	}

	d.CreatedAt, d.UpdatedAt = old.CreatedAt, s.now()
	s.departments.rows[d.ID] = *d
	for k, child := range s.departments.rows {
		if child.ParentID == oldID {
			child.ParentID = d.ID
			s.departments.rows[k] = child
		}
	}
	for k, u := range s.users.rows {
		if u.DepartmentID == oldID {
			u.DepartmentID = d.ID
			s.users.rows[k] = u
		}
	}
	delete(s.departments.rows, oldID)
	return nil
}

func ownedBy[T any](userID string, owner func(*T) string) func(*T) bool {
	if userID == "" {
		return nil
	}
	return func(v *T) bool { return owner(v) == userID }
}

func (s *MemoryStore) GetAppointment(_ context.Context, id string) (models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appointments.get(id)
}

func (s *MemoryStore) ListAppointments(_ context.Context, userID string) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appointments.list(ownedBy(userID, func(v *models.Appointment) string { return v.UserID })), nil
}

func (s *MemoryStore) FindAppointmentsByPhone(_ context.Context, phone string) ([]models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appointments.list(func(v *models.Appointment) bool { return v.Phone == phone }), nil
}

func (s *MemoryStore) CreateAppointment(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.CreatedAt, a.UpdatedAt = s.now(), s.now()
	return s.appointments.insert(a)
}

func (s *MemoryStore) UpdateAppointment(_ context.Context, a *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.UpdatedAt = s.now()
	return s.appointments.replace(a)
}

func (s *MemoryStore) DeleteAppointment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointments.remove(id)
}

func (s *MemoryStore) GetConsultation(_ context.Context, id string) (models.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consultations.get(id)
}

func (s *MemoryStore) ListConsultations(_ context.Context, userID string) ([]models.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consultations.list(ownedBy(userID, func(v *models.Consultation) string { return v.UserID })), nil
}

func (s *MemoryStore) FindConsultationsByPhone(_ context.Context, phone string) ([]models.Consultation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.consultations.list(func(v *models.Consultation) bool { return v.Phone == phone }), nil
}

func (s *MemoryStore) CreateConsultation(_ context.Context, c *models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	return s.consultations.insert(c)
}

func (s *MemoryStore) UpdateConsultation(_ context.Context, c *models.Consultation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = s.now()
	return s.consultations.replace(c)
}

func (s *MemoryStore) DeleteConsultation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consultations.remove(id)
}

func (s *MemoryStore) GetRevenue(_ context.Context, id string) (models.Revenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revenues.get(id)
}

func (s *MemoryStore) ListRevenues(_ context.Context, userID string) ([]models.Revenue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revenues.list(ownedBy(userID, func(v *models.Revenue) string { return v.UserID })), nil
}

func (s *MemoryStore) CreateRevenue(_ context.Context, r *models.Revenue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.CreatedAt, r.UpdatedAt = s.now(), s.now()
	return s.revenues.insert(r)
}

func (s *MemoryStore) UpdateRevenue(_ context.Context, r *models.Revenue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.UpdatedAt = s.now()
	return s.revenues.replace(r)
}

func (s *MemoryStore) DeleteRevenue(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revenues.remove(id)
}

func (s *MemoryStore) GetProjectByContract(_ context.Context, contractCode string) (models.ProjectProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects.get(contractCode)
}

func (s *MemoryStore) ListProjects(_ context.Context, userID string) ([]models.ProjectProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects.list(ownedBy(userID, func(v *models.ProjectProfile) string { return v.UserID })), nil
}

func (s *MemoryStore) FindProjectsByPhone(_ context.Context, phone string) ([]models.ProjectProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projects.list(func(v *models.ProjectProfile) bool { return v.Phone == phone }), nil
}

func (s *MemoryStore) CreateProject(_ context.Context, p *models.ProjectProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	return s.projects.insert(p)
}

func (s *MemoryStore) UpdateProject(_ context.Context, p *models.ProjectProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = s.now()
	return s.projects.replace(p)
}

func (s *MemoryStore) DeleteProjectByContract(_ context.Context, contractCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects.remove(contractCode)
}

func (s *MemoryStore) ListMessages(_ context.Context) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.messages.list(nil)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.ReceiverIDs = append([]string(nil), m.ReceiverIDs...)
	return s.messages.insert(&cp)
}

func (s *MemoryStore) MarkMessageRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.messages.get(id)
	if err != nil {
		return err
	}
	m.IsRead = true
	return s.messages.replace(&m)
}

func (s *MemoryStore) GetTarget(_ context.Context, id string) (models.MonthlyTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets.get(id)
}

func (s *MemoryStore) ListTargets(_ context.Context, userID string) ([]models.MonthlyTarget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets.list(ownedBy(userID, func(v *models.MonthlyTarget) string { return v.UserID })), nil
}

func (s *MemoryStore) SaveTarget(_ context.Context, t *models.MonthlyTarget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.UpdatedAt = s.now()
	s.targets.rows[t.ID] = *t
	return nil
}
