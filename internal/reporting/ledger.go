package reporting

import (
	"github.com/saleflow/backend/internal/models"
)

// ProjectLedger is a project with what has been collected against it.
type ProjectLedger struct {
	Project   models.ProjectProfile `json:"project"`
	Status    string                `json:"status"`
	Paid      float64               `json:"paid"`
	Remaining float64               `json:"remaining"`
	Percent   float64               `json:"percent"`
}

// Ledger pairs each project with revenues sharing its contract code.
// Percent is clamped to 100 and is zero for projects without a value.
func Ledger(projects []models.ProjectProfile, revs []models.Revenue) []ProjectLedger {
	paid := make(map[string]float64)
	for _, r := range revs {
		paid[r.ContractCode] += r.AmountCollected
	}
	out := make([]ProjectLedger, 0, len(projects))
	for _, p := range projects {
		l := ProjectLedger{
			Project:   p,
			Status:    p.Status,
			Paid:      paid[p.ContractCode],
			Remaining: p.ContractValue - paid[p.ContractCode],
		}
		if l.Status == "" {
			l.Status = models.ProjectStatusDefault
		}
		if p.ContractValue > 0 {
			l.Percent = NewProgress(l.Paid, p.ContractValue).Bar
		}
		out = append(out, l)
	}
	return out
}
