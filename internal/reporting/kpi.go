package reporting

import (
	"github.com/saleflow/backend/internal/models"
)

// Targets are the monthly goals a salesperson is measured against.
type Targets struct {
	Revenue       float64 `json:"revenue"`
	Appointments  int     `json:"appointments"`
	Consultations int     `json:"consultations"`
}

// DefaultTargets apply when no monthly target is stored for a user.
var DefaultTargets = Targets{Revenue: 40_000_000, Appointments: 16, Consultations: 12}

// TargetsFrom overlays a stored monthly target on the defaults. Zero fields keep the default.
func TargetsFrom(base Targets, t *models.MonthlyTarget) Targets {
	if t == nil {
		return base
	}
	out := base
	if t.TargetRevenue > 0 {
		out.Revenue = t.TargetRevenue
	}
	if t.TargetAppointment > 0 {
		out.Appointments = t.TargetAppointment
	}
	if t.TargetConsultation > 0 {
		out.Consultations = t.TargetConsultation
	}
	return out
}

// Progress is actual against target. Percent is raw and may exceed 100; Bar
// is clamped to [0, 100] for display. A zero target yields zero for both.
type Progress struct {
	Actual  float64 `json:"actual"`
	Target  float64 `json:"target"`
	Percent float64 `json:"percent"`
	Bar     float64 `json:"bar"`
}

func NewProgress(actual, target float64) Progress {
	p := Progress{Actual: actual, Target: target}
	if target == 0 {
		return p
	}
	p.Percent = actual / target * 100
	p.Bar = p.Percent
	if p.Bar > 100 {
		p.Bar = 100
	}
	if p.Bar < 0 {
		p.Bar = 0
	}
	return p
}

type KPI struct {
	UserID          string    `json:"userId"`
	Range           DateRange `json:"range"`
	Targets         Targets   `json:"targets"`
	Revenue         Progress  `json:"revenue"`
	Appointments    Progress  `json:"appointments"`
	Consultations   Progress  `json:"consultations"`
	LifetimeRevenue float64   `json:"lifetimeRevenue"`
}

// ComputeKPI measures one user's records in rng against targets. rec may
// hold other users' rows; they are ignored.
func ComputeKPI(user models.User, rec Records, rng DateRange, targets Targets) KPI {
	s := Summarize(rec.Filter(func(id string) bool { return id == user.ID }, rng))
	return KPI{
		UserID:          user.ID,
		Range:           rng,
		Targets:         targets,
		Revenue:         NewProgress(s.Revenue, targets.Revenue),
		Appointments:    NewProgress(float64(s.Appointments), float64(targets.Appointments)),
		Consultations:   NewProgress(float64(s.Consultations), float64(targets.Consultations)),
		LifetimeRevenue: LifetimeRevenue(user, rec.Revenues),
	}
}

// LifetimeRevenue is everything user collected plus the carried-over baseline.
func LifetimeRevenue(user models.User, revs []models.Revenue) float64 {
	var sum float64
	for _, r := range revs {
		if r.UserID == user.ID {
			sum += r.AmountCollected
		}
	}
	return sum + user.InitialRevenue
}
