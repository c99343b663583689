package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saleflow/backend/internal/activity"
	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/reporting"
	"github.com/saleflow/backend/internal/store"
)

var nonWord = regexp.MustCompile(`\W`)

// ProjectID derives the id of a project profile from its contract code.
func ProjectID(contractCode string, at time.Time) string {
	return fmt.Sprintf("PROJ_%s_%d", nonWord.ReplaceAllString(contractCode, ""), at.UnixMilli())
}

func recordID(prefix string) string {
	return prefix + "_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// Saved is what a mutation returns: the stored row and the outcome of its
// audit entry.
type Saved[T any] struct {
	Item     T               `json:"item"`
	Activity activity.Result `json:"activity"`
}

// RevenueSaved also reports whether a project profile was opened for the contract.
type RevenueSaved struct {
	Saved[models.Revenue]
	ProjectCreated bool `json:"projectCreated"`
}

// CustomerInfo is the prefill returned by a phone lookup.
type CustomerInfo struct {
	Source       string `json:"source"`
	Name         string `json:"name"`
	Company      string `json:"company"`
	Address      string `json:"address"`
	LeadSource   string `json:"leadSource"`
	City         string `json:"city"`
	ContractCode string `json:"contractCode,omitempty"`
}

// AppointmentMatch is the most recent appointment anyone booked for a phone.
type AppointmentMatch struct {
	Appointment models.Appointment `json:"appointment"`
	CreatorName string             `json:"creatorName"`
}

type RecordService struct {
	store    store.Store
	dir      *Directory
	recorder *activity.Recorder
	now      func() time.Time
}

func NewRecordService(st store.Store, dir *Directory, recorder *activity.Recorder) *RecordService {
	return &RecordService{store: st, dir: dir, recorder: recorder, now: time.Now}
}

func ownedBy(actor models.User, owner string) error {
	if owner != actor.ID {
		return forbidden("Bản ghi không thuộc về bạn.")
	}
	return nil
}

// Records lists a user's appointments, consultations and revenues.
func (s *RecordService) Records(ctx context.Context, userID string) (reporting.Records, error) {
	return s.dir.Records(ctx, userID)
}

func (s *RecordService) SaveAppointment(ctx context.Context, actor models.User, a models.Appointment) (Saved[models.Appointment], error) {
	if strings.TrimSpace(a.CustomerName) == "" || strings.TrimSpace(a.Phone) == "" || a.Date == "" {
		return Saved[models.Appointment]{}, invalid("Thiếu thông tin bắt buộc")
	}
	a.UserID = actor.ID
	if a.Status == "" {
		a.Status = models.AppointmentNew
	}

	if a.ID == "" {
		a.ID = recordID("APP")
		if err := s.store.CreateAppointment(ctx, &a); err != nil {
			return Saved[models.Appointment]{}, storeErr("create appointment", err)
		}
		res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetAppointment, a.ID,
			fmt.Sprintf("Khách hàng: %s, SĐT: %s", a.CustomerName, a.Phone))
		return Saved[models.Appointment]{Item: a, Activity: res}, nil
	}

	existing, err := s.store.GetAppointment(ctx, a.ID)
	if err != nil {
		return Saved[models.Appointment]{}, storeErr("load appointment", err)
	}
	if err := ownedBy(actor, existing.UserID); err != nil {
		return Saved[models.Appointment]{}, err
	}
	a.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateAppointment(ctx, &a); err != nil {
		return Saved[models.Appointment]{}, storeErr("update appointment", err)
	}
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetAppointment, a.ID,
		"Cập nhật thông tin cuộc hẹn với "+a.CustomerName)
	return Saved[models.Appointment]{Item: a, Activity: res}, nil
}

func (s *RecordService) DeleteAppointment(ctx context.Context, actor models.User, id string) (activity.Result, error) {
	existing, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return activity.Result{}, storeErr("load appointment", err)
	}
	if err := ownedBy(actor, existing.UserID); err != nil {
		return activity.Result{}, err
	}
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		return activity.Result{}, storeErr("delete appointment", err)
	}
	return s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionDelete, models.TargetAppointment, id, "Xóa cuộc hẹn ID: "+id), nil
}

func (s *RecordService) SaveConsultation(ctx context.Context, actor models.User, c models.Consultation) (Saved[models.Consultation], error) {
	if strings.TrimSpace(c.CustomerName) == "" || strings.TrimSpace(c.Phone) == "" || c.Date == "" {
		return Saved[models.Consultation]{}, invalid("Thiếu thông tin bắt buộc")
	}
	c.UserID = actor.ID
	if c.Type == "" {
		c.Type = models.ConsultationNew
	}
	if c.SupportType == "" {
		c.SupportType = models.SupportSolo
	}

	if c.ID == "" {
		c.ID = recordID("CONS")
		if err := s.store.CreateConsultation(ctx, &c); err != nil {
			return Saved[models.Consultation]{}, storeErr("create consultation", err)
		}
		res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetConsultation, c.ID,
			fmt.Sprintf("Khách hàng: %s, Loại: %s", c.CustomerName, c.Type))
		return Saved[models.Consultation]{Item: c, Activity: res}, nil
	}

	existing, err := s.store.GetConsultation(ctx, c.ID)
	if err != nil {
		return Saved[models.Consultation]{}, storeErr("load consultation", err)
	}
	if err := ownedBy(actor, existing.UserID); err != nil {
		return Saved[models.Consultation]{}, err
	}
	c.CreatedAt = existing.CreatedAt
	if err := s.store.UpdateConsultation(ctx, &c); err != nil {
		return Saved[models.Consultation]{}, storeErr("update consultation", err)
	}
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetConsultation, c.ID,
		"Cập nhật phiếu tư vấn của "+c.CustomerName)
	return Saved[models.Consultation]{Item: c, Activity: res}, nil
}

func (s *RecordService) DeleteConsultation(ctx context.Context, actor models.User, id string) (activity.Result, error) {
	existing, err := s.store.GetConsultation(ctx, id)
	if err != nil {
		return activity.Result{}, storeErr("load consultation", err)
	}
	if err := ownedBy(actor, existing.UserID); err != nil {
		return activity.Result{}, err
	}
	if err := s.store.DeleteConsultation(ctx, id); err != nil {
		return activity.Result{}, storeErr("delete consultation", err)
	}
	return s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionDelete, models.TargetConsultation, id, "Xóa phiếu tư vấn ID: "+id), nil
}

// SaveRevenue stores a revenue entry. A new-contract revenue whose contract
// code has no project yet opens one.
func (s *RecordService) SaveRevenue(ctx context.Context, actor models.User, r models.Revenue) (RevenueSaved, error) {
	r.ContractCode = strings.TrimSpace(r.ContractCode)
	if r.ContractCode == "" || r.AmountCollected == 0 || r.Date == "" {
		return RevenueSaved{}, invalid("Thiếu thông tin bắt buộc")
	}
	r.UserID = actor.ID
	if r.Type == "" {
		r.Type = models.RevenueNewContract
	}
	if r.ContractValue == 0 {
		r.ContractValue = r.AmountCollected
	}

	var out RevenueSaved
	if r.ID == "" {
		r.ID = recordID("REV")
		if err := s.store.CreateRevenue(ctx, &r); err != nil {
			return RevenueSaved{}, storeErr("create revenue", err)
		}
		out.Activity = s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetRevenue, r.ID,
			fmt.Sprintf("HĐ: %s, Số tiền: %.0f", r.ContractCode, r.AmountCollected))
	} else {
		existing, err := s.store.GetRevenue(ctx, r.ID)
		if err != nil {
			return RevenueSaved{}, storeErr("load revenue", err)
		}
		if err := ownedBy(actor, existing.UserID); err != nil {
			return RevenueSaved{}, err
		}
		r.CreatedAt = existing.CreatedAt
		if err := s.store.UpdateRevenue(ctx, &r); err != nil {
			return RevenueSaved{}, storeErr("update revenue", err)
		}
		out.Activity = s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetRevenue, r.ID,
			fmt.Sprintf("HĐ: %s, Cập nhật số tiền/thông tin", r.ContractCode))
	}
	out.Item = r

	if r.Type == models.RevenueNewContract {
		created, err := s.ensureProject(ctx, actor, r)
		if err != nil {
			return RevenueSaved{}, err
		}
		out.ProjectCreated = created
	}
	return out, nil
}

func (s *RecordService) ensureProject(ctx context.Context, actor models.User, r models.Revenue) (bool, error) {
	_, err := s.store.GetProjectByContract(ctx, r.ContractCode)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, storeErr("load project", err)
	}

	p := models.ProjectProfile{
		ID:            ProjectID(r.ContractCode, s.now()),
		UserID:        actor.ID,
		ContractCode:  r.ContractCode,
		CustomerName:  r.CustomerName,
		Phone:         r.Phone,
		ContractValue: r.ContractValue,
		SignDate:      reporting.DateOf(r.Date),
	}
	if err := s.store.CreateProject(ctx, &p); err != nil {
		// Another request opened it first.
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, storeErr("create project", err)
	}
	logger.WithUser(actor.ID, "record_service").WithField("contract_code", r.ContractCode).Info("Project profile opened")
	s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetProject, p.ID, "Tạo hồ sơ dự án "+p.ContractCode)
	return true, nil
}

func (s *RecordService) DeleteRevenue(ctx context.Context, actor models.User, id string) (activity.Result, error) {
	existing, err := s.store.GetRevenue(ctx, id)
	if err != nil {
		return activity.Result{}, storeErr("load revenue", err)
	}
	if err := ownedBy(actor, existing.UserID); err != nil {
		return activity.Result{}, err
	}
	if err := s.store.DeleteRevenue(ctx, id); err != nil {
		return activity.Result{}, storeErr("delete revenue", err)
	}
	return s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionDelete, models.TargetRevenue, id, "Xóa khoản thu ID: "+id), nil
}

// Projects returns a user's projects with their payment ledger.
func (s *RecordService) Projects(ctx context.Context, userID string) ([]reporting.ProjectLedger, error) {
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, storeErr("list projects", err)
	}
	// Payments against a contract may be logged by anyone.
	revs, err := s.store.ListRevenues(ctx, "")
	if err != nil {
		return nil, storeErr("list revenues", err)
	}
	return reporting.Ledger(projects, revs), nil
}

// SaveProject updates the profile for the contract code, or creates it.
func (s *RecordService) SaveProject(ctx context.Context, actor models.User, p models.ProjectProfile) (Saved[models.ProjectProfile], error) {
	p.ContractCode = strings.TrimSpace(p.ContractCode)
	if p.ContractCode == "" {
		return Saved[models.ProjectProfile]{}, invalid("Thiếu mã hợp đồng")
	}

	existing, err := s.store.GetProjectByContract(ctx, p.ContractCode)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p.ID = ProjectID(p.ContractCode, s.now())
		p.UserID = actor.ID
		if err := s.store.CreateProject(ctx, &p); err != nil {
			return Saved[models.ProjectProfile]{}, storeErr("create project", err)
		}
		res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionCreate, models.TargetProject, p.ID, "Tạo hồ sơ dự án "+p.ContractCode)
		return Saved[models.ProjectProfile]{Item: p, Activity: res}, nil
	case err != nil:
		return Saved[models.ProjectProfile]{}, storeErr("load project", err)
	}

	if existing.UserID != "" {
		if err := ownedBy(actor, existing.UserID); err != nil {
			return Saved[models.ProjectProfile]{}, err
		}
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.UserID = actor.ID
	if err := s.store.UpdateProject(ctx, &p); err != nil {
		return Saved[models.ProjectProfile]{}, storeErr("update project", err)
	}
	res := s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionUpdate, models.TargetProject, p.ID, "Cập nhật hồ sơ dự án "+p.ContractCode)
	return Saved[models.ProjectProfile]{Item: p, Activity: res}, nil
}

func (s *RecordService) DeleteProject(ctx context.Context, actor models.User, contractCode string) (activity.Result, error) {
	existing, err := s.store.GetProjectByContract(ctx, contractCode)
	if err != nil {
		return activity.Result{}, storeErr("load project", err)
	}
	if existing.UserID != "" {
		if err := ownedBy(actor, existing.UserID); err != nil {
			return activity.Result{}, err
		}
	}
	if err := s.store.DeleteProjectByContract(ctx, contractCode); err != nil {
		return activity.Result{}, storeErr("delete project", err)
	}
	return s.recorder.Record(ctx, activity.ActorOf(actor), models.ActionDelete, models.TargetProject, contractCode, "Xóa hồ sơ dự án "+contractCode), nil
}

// LookupCustomer prefills a form from the first project, appointment or
// consultation with this phone, in that order. It returns nil when none matches.
func (s *RecordService) LookupCustomer(ctx context.Context, phone string) (*CustomerInfo, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, invalid("Thiếu số điện thoại")
	}

	projects, err := s.store.FindProjectsByPhone(ctx, phone)
	if err != nil {
		return nil, storeErr("find projects", err)
	}
	if len(projects) > 0 {
		p := projects[0]
		return &CustomerInfo{Source: "project", Name: p.CustomerName, Company: p.CompanyName, City: p.Region, ContractCode: p.ContractCode}, nil
	}

	apps, err := s.store.FindAppointmentsByPhone(ctx, phone)
	if err != nil {
		return nil, storeErr("find appointments", err)
	}
	if len(apps) > 0 {
		a := apps[0]
		return &CustomerInfo{Source: "appointment", Name: a.CustomerName, Company: a.CompanyName, Address: a.AddressDetail, LeadSource: a.Source, City: a.Location}, nil
	}

	cons, err := s.store.FindConsultationsByPhone(ctx, phone)
	if err != nil {
		return nil, storeErr("find consultations", err)
	}
	if len(cons) > 0 {
		c := cons[0]
		return &CustomerInfo{Source: "consultation", Name: c.CustomerName, Company: c.CompanyName, Address: c.AddressDetail, LeadSource: c.Source}, nil
	}
	return nil, nil
}

// LatestAppointment finds the newest appointment any user booked for phone.
func (s *RecordService) LatestAppointment(ctx context.Context, phone string) (*AppointmentMatch, error) {
	apps, err := s.store.FindAppointmentsByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, storeErr("find appointments", err)
	}
	if len(apps) == 0 {
		return nil, nil
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].Date > apps[j].Date })
	found := apps[0]

	match := &AppointmentMatch{Appointment: found, CreatorName: found.UserID}
	if u, err := s.store.GetUser(ctx, found.UserID); err == nil {
		match.CreatorName = u.Name
	}
	return match, nil
}

// HandoverCandidates lists the user's new-contract revenues.
func (s *RecordService) HandoverCandidates(ctx context.Context, userID string) ([]models.Revenue, error) {
	revs, err := s.store.ListRevenues(ctx, userID)
	if err != nil {
		return nil, storeErr("list revenues", err)
	}
	out := []models.Revenue{}
	for _, r := range revs {
		if r.Type == models.RevenueNewContract {
			out = append(out, r)
		}
	}
	return out, nil
}
