package hierarchy

import (
	"sort"

	"github.com/saleflow/backend/internal/models"
)

// Filter holds the cascading dashboard selectors. Empty means unset.
type Filter struct {
	Region     string `json:"region" form:"region"`
	Group      string `json:"group" form:"group"`
	Department string `json:"department" form:"department"`
	Team       string `json:"team" form:"team"`
	User       string `json:"user" form:"user"`
}

// OrgScope returns the most specific organizational selector that is set.
func (f Filter) OrgScope() string {
	switch {
	case f.Team != "":
		return f.Team
	case f.Department != "":
		return f.Department
	case f.Group != "":
		return f.Group
	default:
		return f.Region
	}
}

func (f Filter) orgEqual(o Filter) bool {
	return f.Region == o.Region && f.Group == o.Group && f.Department == o.Department && f.Team == o.Team
}

// Scope is a resolved set of user ids.
type Scope map[string]bool

func (s Scope) Contains(id string) bool { return s[id] }

// IDs returns the members in ascending order.
func (s Scope) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ResolveScope turns the selectors into the user ids reporting folds over.
// visible is the actor's visible set as returned by Visible.
func (ix *Index) ResolveScope(actor models.User, visible []models.User, f Filter) Scope {
	scope := make(Scope)
	if f.User != "" {
		scope[f.User] = true
		return scope
	}

	root := f.OrgScope()
	if root == "" {
		for _, u := range visible {
			if u.ID != actor.ID {
				scope[u.ID] = true
			}
		}
		return scope
	}

	depts := ix.Subtree(root)
	vis := idSet(visible)
	for _, u := range visible {
		if u.ID != actor.ID && u.DepartmentID != "" && depts[u.DepartmentID] {
			scope[u.ID] = true
		}
	}
	for id := range depts {
		d, ok := ix.Department(id)
		if ok && d.ManagerID != "" && d.ManagerID != actor.ID && vis[d.ManagerID] {
			scope[d.ManagerID] = true
		}
	}
	return scope
}

// RegionOf finds the Region-level department that contains deptID, if any.
func (ix *Index) RegionOf(deptID string) (models.Department, bool) {
	d, ok := ix.Department(deptID)
	if !ok {
		return models.Department{}, false
	}
	if d.Level == models.LevelRegion {
		return d, true
	}
	for _, a := range ix.Ancestors(deptID) {
		if a.Level == models.LevelRegion {
			return a, true
		}
	}
	return models.Department{}, false
}

// RegionalScope resolves the user ids for the regional leaderboard. An
// explicit region selector wins. Otherwise non-directors use the region above
// their own department, or above the first department they manage. When no
// region applies, the general scope is used and, unless a single user is
// selected, the actor is added to it.
func (ix *Index) RegionalScope(actor models.User, visible []models.User, f Filter) Scope {
	regionID := f.Region
	if regionID == "" && actor.Role != models.RoleDirector {
		start := actor.DepartmentID
		if _, ok := ix.Department(start); !ok {
			start = ""
			if managed := ix.ManagedBy(actor.ID); len(managed) > 0 {
				start = managed[0]
			}
		}
		if region, ok := ix.RegionOf(start); ok {
			regionID = region.ID
		}
	}

	if regionID == "" {
		scope := ix.ResolveScope(actor, visible, f)
		if f.User == "" {
			scope[actor.ID] = true
		}
		return scope
	}

	depts := ix.Subtree(regionID)
	scope := make(Scope)
	for _, u := range ix.users {
		if u.DepartmentID != "" && depts[u.DepartmentID] {
			scope[u.ID] = true
			continue
		}
		for _, id := range ix.ManagedBy(u.ID) {
			if depts[id] {
				scope[u.ID] = true
				break
			}
		}
	}
	return scope
}

// Normalize clears selectors that are not a child of the selector above them
// at the expected tier: a Group under the region, a Department under the
// group, a Team under the department.
func (ix *Index) Normalize(f Filter) Filter {
	if !ix.isChild(f.Group, f.Region, models.LevelGroup) {
		f.Group = ""
	}
	if !ix.isChild(f.Department, f.Group, models.LevelDepartment) {
		f.Department = ""
	}
	if !ix.isChild(f.Team, f.Department, models.LevelTeam) {
		f.Team = ""
	}
	return f
}

// Cascade applies a selector change. Dependent selectors that no longer fit
// are cleared, and any change to the org selectors clears the user selector.
func (ix *Index) Cascade(prev, next Filter) Filter {
	out := ix.Normalize(next)
	if !out.orgEqual(prev) {
		out.User = ""
	}
	return out
}

func (ix *Index) isChild(id, parentID string, level models.DepartmentLevel) bool {
	if id == "" {
		return true
	}
	if parentID == "" {
		return false
	}
	d, ok := ix.Department(id)
	return ok && d.Level == level && d.ParentID == parentID
}

// DefaultFilter pre-selects the actor's own position in the tree: the
// selector for the actor's department tier and every ancestor tier above it.
func (ix *Index) DefaultFilter(actor models.User) Filter {
	var f Filter
	d, ok := ix.Department(actor.DepartmentID)
	if !ok {
		return f
	}
	chain := append([]models.Department{d}, ix.Ancestors(d.ID)...)
	for _, a := range chain {
		switch a.Level {
		case models.LevelRegion:
			f.Region = a.ID
		case models.LevelGroup:
			f.Group = a.ID
		case models.LevelDepartment:
			f.Department = a.ID
		case models.LevelTeam:
			if a.ID == d.ID {
				f.Team = a.ID
			}
		}
	}
	return f
}

// FilterOptions lists the departments selectable at each tier for f.
type FilterOptions struct {
	Regions     []models.Department `json:"regions"`
	Groups      []models.Department `json:"groups"`
	Departments []models.Department `json:"departments"`
	Teams       []models.Department `json:"teams"`
}

func (ix *Index) Options(f Filter) FilterOptions {
	opts := FilterOptions{
		Regions:     []models.Department{},
		Groups:      []models.Department{},
		Departments: []models.Department{},
		Teams:       []models.Department{},
	}
	for _, d := range ix.depts {
		switch d.Level {
		case models.LevelRegion:
			opts.Regions = append(opts.Regions, d)
		case models.LevelGroup:
			if f.Region != "" && d.ParentID == f.Region {
				opts.Groups = append(opts.Groups, d)
			}
		case models.LevelDepartment:
			if f.Group != "" && d.ParentID == f.Group {
				opts.Departments = append(opts.Departments, d)
			}
		case models.LevelTeam:
			if f.Department != "" && d.ParentID == f.Department {
				opts.Teams = append(opts.Teams, d)
			}
		}
	}
	return opts
}
