package hierarchy

import (
	"errors"
	"fmt"

	"github.com/saleflow/backend/internal/models"
)

var (
	ErrParentRequired     = errors.New("a parent unit is required for this tier")
	ErrDepartmentRequired = errors.New("employees must be assigned to a department")
)

// CumulativeHeadcount counts distinct people in deptID and everything below
// it: department managers plus users placed in those departments.
func (ix *Index) CumulativeHeadcount(deptID string) int {
	depts := ix.Subtree(deptID)
	people := make(map[string]bool)
	for id := range depts {
		if d, ok := ix.Department(id); ok && d.ManagerID != "" {
			people[d.ManagerID] = true
		}
	}
	for _, u := range ix.users {
		if u.DepartmentID != "" && depts[u.DepartmentID] {
			people[u.ID] = true
		}
	}
	return len(people)
}

// OrphanDepartments returns departments missing a level, or non-HQ
// departments without a parent.
func (ix *Index) OrphanDepartments() []models.Department {
	out := []models.Department{}
	for _, d := range ix.depts {
		if d.IsOrphan() {
			out = append(out, d)
		}
	}
	return out
}

var allowedParents = map[models.DepartmentLevel][]models.DepartmentLevel{
	models.LevelRegion:     {models.LevelHQ},
	models.LevelGroup:      {models.LevelRegion},
	models.LevelDepartment: {models.LevelGroup, models.LevelRegion},
	models.LevelTeam:       {models.LevelDepartment, models.LevelGroup, models.LevelRegion},
}

// AllowedParentLevels lists the tiers a department of the given level may hang under.
func AllowedParentLevels(level models.DepartmentLevel) []models.DepartmentLevel {
	return allowedParents[level]
}

// ParentCandidates returns existing departments that may parent a department of level.
func (ix *Index) ParentCandidates(level models.DepartmentLevel) []models.Department {
	ok := make(map[models.DepartmentLevel]bool)
	for _, l := range allowedParents[level] {
		ok[l] = true
	}
	out := []models.Department{}
	for _, d := range ix.depts {
		if ok[d.Level] {
			out = append(out, d)
		}
	}
	return out
}

// ProvisionedDepartmentID derives the id of the department auto-created for a
// leader: the upper-cased first three runes of the tier label, "_", user id.
func ProvisionedDepartmentID(level models.DepartmentLevel, userID string) string {
	return level.Prefix() + "_" + userID
}

// ProvisionRequest describes a user being created, as far as placement goes.
type ProvisionRequest struct {
	UserID         string
	UserName       string
	Role           models.UserRole
	DepartmentID   string
	ParentID       string
	DepartmentName string
}

// ProvisionPlan is what must be written before the user itself. At most one
// of Create and Update is set.
type ProvisionPlan struct {
	DepartmentID string
	Create       *models.Department
	Update       *models.Department
}

// PlanProvisioning decides where a new user is placed. Leaders without an
// explicit department get a derived one: reused (with its manager refreshed)
// when it exists, created otherwise. Non-region tiers need a parent. Plain
// roles must name a department. Nothing is written here.
func (ix *Index) PlanProvisioning(req ProvisionRequest) (ProvisionPlan, error) {
	if req.DepartmentID != "" {
		return ProvisionPlan{DepartmentID: req.DepartmentID}, nil
	}
	level, leader := models.LevelForRole(req.Role)
	if !leader {
		return ProvisionPlan{}, ErrDepartmentRequired
	}
	if level != models.LevelRegion && req.ParentID == "" {
		return ProvisionPlan{}, fmt.Errorf("%w: %s", ErrParentRequired, req.Role.Label())
	}

	id := ProvisionedDepartmentID(level, req.UserID)
	plan := ProvisionPlan{DepartmentID: id}
	if existing, ok := ix.Department(id); ok {
		if existing.ManagerID != req.UserID {
			existing.ManagerID = req.UserID
			existing.ManagerName = req.UserName
			plan.Update = &existing
		}
		return plan, nil
	}

	name := req.DepartmentName
	if name == "" {
		name = string(level) + " " + req.UserName
	}
	parent := req.ParentID
	if parent == "" {
		parent = models.HQID
	}
	plan.Create = &models.Department{
		ID:          id,
		Name:        name,
		Level:       level,
		ManagerID:   req.UserID,
		ManagerName: req.UserName,
		ParentID:    parent,
	}
	return plan, nil
}
