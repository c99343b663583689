package hierarchy

import (
	"github.com/saleflow/backend/internal/models"
)

// Visible returns the users actor may see and manage, actor first.
//
// A director sees everyone. An employee sees only themself. Anyone in between
// sees users placed in, and managers of, the departments they manage and all
// of their descendants.
func (ix *Index) Visible(actor models.User) []models.User {
	if actor.Role == models.RoleDirector {
		out := make([]models.User, 0, len(ix.users))
		out = append(out, actor)
		for _, u := range ix.users {
			if u.ID != actor.ID {
				out = append(out, u)
			}
		}
		return out
	}
	if actor.Role.Rank() <= 1 {
		return []models.User{actor}
	}

	depts := ix.Subtree(ix.ManagedBy(actor.ID)...)
	ids := make(map[string]bool)
	for _, u := range ix.users {
		if u.ID != actor.ID && u.DepartmentID != "" && depts[u.DepartmentID] {
			ids[u.ID] = true
		}
	}
	for id := range depts {
		d, ok := ix.Department(id)
		if ok && d.ManagerID != "" && d.ManagerID != actor.ID {
			ids[d.ManagerID] = true
		}
	}

	out := []models.User{actor}
	for _, u := range ix.users {
		if ids[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

// Subordinates is Visible without the actor.
func (ix *Index) Subordinates(actor models.User) []models.User {
	vis := ix.Visible(actor)
	out := make([]models.User, 0, len(vis))
	for _, u := range vis {
		if u.ID != actor.ID {
			out = append(out, u)
		}
	}
	return out
}

// CanManage reports whether target is inside actor's visible set.
func (ix *Index) CanManage(actor models.User, targetID string) bool {
	for _, u := range ix.Visible(actor) {
		if u.ID == targetID {
			return true
		}
	}
	return false
}

func idSet(users []models.User) map[string]bool {
	out := make(map[string]bool, len(users))
	for _, u := range users {
		out[u.ID] = true
	}
	return out
}
