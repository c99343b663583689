// Package reporting folds appointments, consultations and revenues over a
// resolved set of users and a date range.
package reporting

import (
	"sort"
	"strings"

	"github.com/saleflow/backend/internal/models"
)

// DefaultLeaderboardSize is how many rows each leaderboard keeps.
const DefaultLeaderboardSize = 10

// DateOf returns the date component of a timestamp, the text before 'T'.
func DateOf(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// MonthOf returns the YYYY-MM prefix of a date.
func MonthOf(s string) string {
	if len(s) < 7 {
		return s
	}
	return s[:7]
}

// DateRange is inclusive on both ends. Dates compare as strings, so both
// bounds should be YYYY-MM-DD. An empty bound is open.
type DateRange struct {
	Start string `json:"start" form:"start"`
	End   string `json:"end" form:"end"`
}

// Contains reports whether the date component of s lies in the range. An
// empty s is never in range.
func (r DateRange) Contains(s string) bool {
	if s == "" {
		return false
	}
	d := DateOf(s)
	if r.Start != "" && d < r.Start {
		return false
	}
	if r.End != "" && d > r.End {
		return false
	}
	return true
}

// Records is the transactional data a report is computed from.
type Records struct {
	Appointments  []models.Appointment
	Consultations []models.Consultation
	Revenues      []models.Revenue
}

// Filter keeps rows owned by a user accepted by owner and dated inside rng.
// A nil owner accepts everyone.
func (rec Records) Filter(owner func(string) bool, rng DateRange) Records {
	if owner == nil {
		owner = func(string) bool { return true }
	}
	var out Records
	for _, a := range rec.Appointments {
		if owner(a.UserID) && rng.Contains(a.Date) {
			out.Appointments = append(out.Appointments, a)
		}
	}
	for _, c := range rec.Consultations {
		if owner(c.UserID) && rng.Contains(c.Date) {
			out.Consultations = append(out.Consultations, c)
		}
	}
	for _, r := range rec.Revenues {
		if owner(r.UserID) && rng.Contains(r.Date) {
			out.Revenues = append(out.Revenues, r)
		}
	}
	return out
}

// Summary is the headline block of a dashboard section.
type Summary struct {
	Revenue       float64 `json:"revenue"`
	Appointments  int     `json:"appointments"`
	Consultations int     `json:"consultations"`
	Members       int     `json:"members,omitempty"`
}

func Summarize(rec Records) Summary {
	return Summary{
		Revenue:       TotalCollected(rec.Revenues),
		Appointments:  len(rec.Appointments),
		Consultations: len(rec.Consultations),
	}
}

func TotalCollected(revs []models.Revenue) float64 {
	var sum float64
	for _, r := range revs {
		sum += r.AmountCollected
	}
	return sum
}

type MonthPoint struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

// MonthlySeries buckets collected revenue by YYYY-MM, ascending.
func MonthlySeries(revs []models.Revenue) []MonthPoint {
	buckets := make(map[string]float64)
	for _, r := range revs {
		buckets[MonthOf(r.Date)] += r.AmountCollected
	}
	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]MonthPoint, 0, len(months))
	for _, m := range months {
		out = append(out, MonthPoint{Month: m, Revenue: buckets[m]})
	}
	return out
}

type LeaderboardEntry struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Leaderboard sums collected revenue per user, highest first, ties by id,
// and keeps the first limit rows. names maps ids to display names; unknown
// ids are shown as the id itself.
func Leaderboard(revs []models.Revenue, names map[string]string, limit int) []LeaderboardEntry {
	totals := make(map[string]float64)
	for _, r := range revs {
		totals[r.UserID] += r.AmountCollected
	}
	out := make([]LeaderboardEntry, 0, len(totals))
	for id, v := range totals {
		name := names[id]
		if name == "" {
			name = id
		}
		out = append(out, LeaderboardEntry{ID: id, Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// NameIndex maps user ids to display names.
func NameIndex(users []models.User) map[string]string {
	out := make(map[string]string, len(users))
	for _, u := range users {
		out[u.ID] = u.Name
	}
	return out
}
