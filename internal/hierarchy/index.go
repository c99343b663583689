// Package hierarchy computes who a user can see inside the department tree and
// which user ids a set of cascading org filters resolves to.
//
// Everything here works over lists already loaded from the store. The package
// does no I/O and never returns storage errors; dangling references are skipped.
package hierarchy

import (
	"sort"

	"github.com/saleflow/backend/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MaxAncestorHops bounds upward walks through parent references.
const MaxAncestorHops = 10

// UnassignedLabel groups users that no traversed department claims.
const UnassignedLabel = "Chưa phân bổ / Khác"

// Index is a read-only view over users and departments, built once per computation.
type Index struct {
	users    []models.User
	depts    []models.Department
	userByID map[string]int
	deptByID map[string]int
	children map[string][]string
	managed  map[string][]string
}

func NewIndex(users []models.User, depts []models.Department) *Index {
	ix := &Index{
		users:    users,
		depts:    depts,
		userByID: make(map[string]int, len(users)),
		deptByID: make(map[string]int, len(depts)),
		children: make(map[string][]string),
		managed:  make(map[string][]string),
	}
	for i, u := range users {
		ix.userByID[u.ID] = i
	}
	for i, d := range depts {
		ix.deptByID[d.ID] = i
		if d.ParentID != "" {
			ix.children[d.ParentID] = append(ix.children[d.ParentID], d.ID)
		}
		if d.ManagerID != "" {
			ix.managed[d.ManagerID] = append(ix.managed[d.ManagerID], d.ID)
		}
	}
	return ix
}

func (ix *Index) Users() []models.User             { return ix.users }
func (ix *Index) Departments() []models.Department { return ix.depts }

func (ix *Index) User(id string) (models.User, bool) {
	i, ok := ix.userByID[id]
	if !ok {
		return models.User{}, false
	}
	return ix.users[i], true
}

func (ix *Index) Department(id string) (models.Department, bool) {
	i, ok := ix.deptByID[id]
	if !ok {
		return models.Department{}, false
	}
	return ix.depts[i], true
}

// Children returns the direct child department ids of parentID in store order.
func (ix *Index) Children(parentID string) []string {
	return ix.children[parentID]
}

// ManagedBy returns the ids of departments whose manager is userID.
func (ix *Index) ManagedBy(userID string) []string {
	return ix.managed[userID]
}

// Subtree returns the given roots plus every transitive descendant.
// Roots are included even when no such department exists.
func (ix *Index) Subtree(roots ...string) map[string]bool {
	seen := make(map[string]bool)
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range ix.children[id] {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return seen
}

// Ancestors walks up from deptID, nearest parent first. It stops after
// MaxAncestorHops, at a missing parent, or when a cycle revisits a department.
func (ix *Index) Ancestors(deptID string) []models.Department {
	var out []models.Department
	cur, ok := ix.Department(deptID)
	if !ok {
		return nil
	}
	visited := map[string]bool{cur.ID: true}
	for hops := 0; cur.ParentID != "" && hops < MaxAncestorHops; hops++ {
		if visited[cur.ParentID] {
			break
		}
		parent, ok := ix.Department(cur.ParentID)
		if !ok {
			break
		}
		visited[parent.ID] = true
		out = append(out, parent)
		cur = parent
	}
	return out
}

// HQ returns the headquarters department, preferring the seeded id.
func (ix *Index) HQ() (models.Department, bool) {
	if d, ok := ix.Department(models.HQID); ok && d.Level == models.LevelHQ {
		return d, true
	}
	for _, d := range ix.depts {
		if d.Level == models.LevelHQ {
			return d, true
		}
	}
	return models.Department{}, false
}

// nameSorter orders by display name using Vietnamese collation.
type nameSorter struct {
	c *collate.Collator
}

func newNameSorter() *nameSorter {
	return &nameSorter{c: collate.New(language.Vietnamese)}
}

func (s *nameSorter) less(a, b string) bool {
	return s.c.CompareString(a, b) < 0
}

func (s *nameSorter) sortUsers(users []models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return s.less(users[i].Name, users[j].Name)
	})
}

// sortDepartments orders higher tiers first, then by name.
func (s *nameSorter) sortDepartments(depts []models.Department) {
	sort.SliceStable(depts, func(i, j int) bool {
		wi, wj := depts[i].Level.Weight(), depts[j].Level.Weight()
		if wi != wj {
			return wi > wj
		}
		return s.less(depts[i].Name, depts[j].Name)
	})
}
