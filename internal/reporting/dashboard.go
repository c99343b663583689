package reporting

import (
	"github.com/saleflow/backend/internal/hierarchy"
	"github.com/saleflow/backend/internal/models"
)

// DashboardInput carries everything a manager dashboard is built from.
type DashboardInput struct {
	Actor    models.User
	Users    []models.User
	Scope    hierarchy.Scope
	Regional hierarchy.Scope
	Range    DateRange
	Records  Records
}

type PersonalStats struct {
	Summary
	User models.User `json:"user"`
}

type Dashboard struct {
	Personal      PersonalStats      `json:"personal"`
	Team          Summary            `json:"team"`
	Chart         []MonthPoint       `json:"chart"`
	TopGlobal     []LeaderboardEntry `json:"topGlobal"`
	TopRegional   []LeaderboardEntry `json:"topRegional"`
	ScopeUserIDs  []string           `json:"scopeUserIds"`
	RegionUserIDs []string           `json:"regionUserIds"`
}

// BuildDashboard computes the personal block, the scoped team block, the
// monthly chart over personal plus team revenue, and both leaderboards.
func BuildDashboard(in DashboardInput) Dashboard {
	actorID := in.Actor.ID
	mine := in.Records.Filter(func(id string) bool { return id == actorID }, in.Range)
	team := in.Records.Filter(in.Scope.Contains, in.Range)

	teamSummary := Summarize(team)
	teamSummary.Members = len(in.Scope)

	names := NameIndex(in.Users)
	chart := append(append([]models.Revenue{}, mine.Revenues...), team.Revenues...)

	global := in.Records.Filter(nil, in.Range)
	regional := in.Records.Filter(in.Regional.Contains, in.Range)

	return Dashboard{
		Personal:      PersonalStats{Summary: Summarize(mine), User: in.Actor},
		Team:          teamSummary,
		Chart:         MonthlySeries(chart),
		TopGlobal:     Leaderboard(global.Revenues, names, DefaultLeaderboardSize),
		TopRegional:   Leaderboard(regional.Revenues, names, DefaultLeaderboardSize),
		ScopeUserIDs:  in.Scope.IDs(),
		RegionUserIDs: in.Regional.IDs(),
	}
}
