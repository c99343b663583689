package models

import (
	"strings"
	"time"
)

type DepartmentLevel string

const (
	LevelHQ         DepartmentLevel = "Trụ sở"
	LevelRegion     DepartmentLevel = "Khu vực"
	LevelGroup      DepartmentLevel = "Group"
	LevelDepartment DepartmentLevel = "Phòng"
	LevelTeam       DepartmentLevel = "Nhóm"
)

// HQID is the id of the seeded headquarters department.
const HQID = "HQ"

var levelWeights = map[DepartmentLevel]int{
	LevelHQ:         5,
	LevelRegion:     4,
	LevelGroup:      3,
	LevelDepartment: 2,
	LevelTeam:       1,
}

var roleLevels = map[UserRole]DepartmentLevel{
	RoleRegionalManager: LevelRegion,
	RoleGroupManager:    LevelGroup,
	RoleManager:         LevelDepartment,
	RoleTeamLeader:      LevelTeam,
}

// Weight orders tiers for display, HQ 5 down to Team 1. Unknown levels weigh 0.
func (l DepartmentLevel) Weight() int {
	return levelWeights[l]
}

func (l DepartmentLevel) Valid() bool {
	_, ok := levelWeights[l]
	return ok
}

// Prefix is the upper-cased first three runes of the level label.
func (l DepartmentLevel) Prefix() string {
	r := []rune(string(l))
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}

// LevelForRole returns the department tier a leadership role heads.
func LevelForRole(role UserRole) (DepartmentLevel, bool) {
	l, ok := roleLevels[role]
	return l, ok
}

type Department struct {
	ID          string          `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"not null"`
	ManagerName string          `json:"managerName,omitempty"`
	ManagerID   string          `json:"managerId,omitempty" gorm:"index"`
	Level       DepartmentLevel `json:"level"`
	ParentID    string          `json:"parentId,omitempty" gorm:"index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (Department) TableName() string {
	return "departments"
}

// IsOrphan reports a department that needs manual cleanup: no level, or a non-HQ without a parent.
func (d Department) IsOrphan() bool {
	if d.Level == "" {
		return true
	}
	return d.Level != LevelHQ && d.ParentID == ""
}
