package hierarchy

import (
	"github.com/saleflow/backend/internal/models"
)

// Node is one row of the indented staff table.
type Node struct {
	User           models.User `json:"user"`
	Depth          int         `json:"depth"`
	IsManager      bool        `json:"isManager"`
	DepartmentName string      `json:"departmentName"`
}

type frame struct {
	deptID string
	depth  int
}

// Project lays the visible users out as a depth-annotated sequence, starting
// from the departments actor manages (HQ for a director who manages none).
// Each department emits its manager, then its employees by name one level
// deeper, then its children ordered by tier and name. Users not reached by the
// walk are appended at depth 0 under UnassignedLabel. Every visible user other
// than actor appears exactly once.
func (ix *Index) Project(actor models.User, visible []models.User) []Node {
	if len(visible) <= 1 {
		return []Node{}
	}

	inVisible := make(map[string]models.User, len(visible))
	for _, u := range visible {
		inVisible[u.ID] = u
	}
	byDept := make(map[string][]models.User)
	for _, u := range visible {
		if u.DepartmentID != "" {
			byDept[u.DepartmentID] = append(byDept[u.DepartmentID], u)
		}
	}

	sorter := newNameSorter()
	processed := map[string]bool{actor.ID: true}
	visitedDept := make(map[string]bool)
	out := make([]Node, 0, len(visible))

	roots := ix.ManagedBy(actor.ID)
	if len(roots) == 0 && actor.Role == models.RoleDirector {
		if hq, ok := ix.HQ(); ok {
			roots = []string{hq.ID}
		}
	}

	var stack []frame
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{deptID: roots[i], depth: 0})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visitedDept[f.deptID] {
			continue
		}
		dept, ok := ix.Department(f.deptID)
		if !ok {
			continue
		}
		visitedDept[dept.ID] = true

		if dept.ManagerID != "" && !processed[dept.ManagerID] {
			if mgr, ok := inVisible[dept.ManagerID]; ok {
				out = append(out, Node{User: mgr, Depth: f.depth, IsManager: true, DepartmentName: dept.Name})
				processed[mgr.ID] = true
			}
		}

		var employees []models.User
		for _, u := range byDept[dept.ID] {
			if u.ID != dept.ManagerID && !processed[u.ID] {
				employees = append(employees, u)
			}
		}
		sorter.sortUsers(employees)
		for _, u := range employees {
			out = append(out, Node{User: u, Depth: f.depth + 1, DepartmentName: dept.Name})
			processed[u.ID] = true
		}

		var subs []models.Department
		for _, id := range ix.Children(dept.ID) {
			if c, ok := ix.Department(id); ok && !visitedDept[id] {
				subs = append(subs, c)
			}
		}
		sorter.sortDepartments(subs)
		for i := len(subs) - 1; i >= 0; i-- {
			stack = append(stack, frame{deptID: subs[i].ID, depth: f.depth + 1})
		}
	}

	for _, u := range visible {
		if !processed[u.ID] {
			out = append(out, Node{User: u, Depth: 0, DepartmentName: UnassignedLabel})
			processed[u.ID] = true
		}
	}
	return out
}
