package reporting

import (
	"sort"
	"strings"

	"github.com/saleflow/backend/internal/models"
)

type EntryKind string

const (
	KindAppointment  EntryKind = "APP"
	KindConsultation EntryKind = "CONS"
	KindRevenue      EntryKind = "REV"
)

// Entry is one row of a user's activity timeline. Kind says which of the
// record pointers is set.
type Entry struct {
	Kind         EntryKind            `json:"kind"`
	ID           string               `json:"id"`
	Date         string               `json:"date"`
	Appointment  *models.Appointment  `json:"appointment,omitempty"`
	Consultation *models.Consultation `json:"consultation,omitempty"`
	Revenue      *models.Revenue      `json:"revenue,omitempty"`
}

func (e Entry) customerName() string {
	switch e.Kind {
	case KindAppointment:
		return e.Appointment.CustomerName
	case KindConsultation:
		return e.Consultation.CustomerName
	default:
		return e.Revenue.CustomerName
	}
}

func (e Entry) phone() string {
	switch e.Kind {
	case KindAppointment:
		return e.Appointment.Phone
	case KindConsultation:
		return e.Consultation.Phone
	default:
		return e.Revenue.Phone
	}
}

// matches does a case-insensitive search on customer name and contract code
// and a plain substring search on phone.
func (e Entry) matches(term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	if strings.Contains(strings.ToLower(e.customerName()), lower) {
		return true
	}
	if p := e.phone(); p != "" && strings.Contains(p, term) {
		return true
	}
	return e.Kind == KindRevenue && strings.Contains(strings.ToLower(e.Revenue.ContractCode), lower)
}

// DayGroup collects the entries of one calendar day.
type DayGroup struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
	Revenue float64 `json:"revenue"`
}

// Timeline merges the three record kinds, keeps those in rng that match
// search, and groups them by day, newest first.
func Timeline(rec Records, rng DateRange, search string) []DayGroup {
	var entries []Entry
	for i := range rec.Appointments {
		a := rec.Appointments[i]
		entries = append(entries, Entry{Kind: KindAppointment, ID: a.ID, Date: a.Date, Appointment: &a})
	}
	for i := range rec.Consultations {
		c := rec.Consultations[i]
		entries = append(entries, Entry{Kind: KindConsultation, ID: c.ID, Date: c.Date, Consultation: &c})
	}
	for i := range rec.Revenues {
		r := rec.Revenues[i]
		entries = append(entries, Entry{Kind: KindRevenue, ID: r.ID, Date: r.Date, Revenue: &r})
	}

	kept := entries[:0]
	for _, e := range entries {
		if rng.Contains(e.Date) && e.matches(search) {
			kept = append(kept, e)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Date > kept[j].Date })

	groups := []DayGroup{}
	for _, e := range kept {
		day := DateOf(e.Date)
		if len(groups) == 0 || groups[len(groups)-1].Date != day {
			groups = append(groups, DayGroup{Date: day})
		}
		g := &groups[len(groups)-1]
		g.Entries = append(g.Entries, e)
		if e.Kind == KindRevenue {
			g.Revenue += e.Revenue.AmountCollected
		}
	}
	return groups
}
