package models

import (
	"time"
)

type UserRole string

const (
	RoleDirector        UserRole = "director"
	RoleRegionalManager UserRole = "regional_manager"
	RoleGroupManager    UserRole = "group_manager"
	RoleManager         UserRole = "manager"
	RoleTeamLeader      UserRole = "team_leader"
	RoleEmployee        UserRole = "employee"
)

// AdminID is the root account. It is seeded at bootstrap and can never be deleted.
const AdminID = "ADMIN"

var roleRanks = map[UserRole]int{
	RoleDirector:        6,
	RoleRegionalManager: 5,
	RoleGroupManager:    4,
	RoleManager:         3,
	RoleTeamLeader:      2,
	RoleEmployee:        1,
}

var roleLabels = map[UserRole]string{
	RoleDirector:        "Giám đốc",
	RoleRegionalManager: "Quản lý Khu vực",
	RoleGroupManager:    "Quản lý Group",
	RoleManager:         "Trưởng phòng",
	RoleTeamLeader:      "Trưởng nhóm",
	RoleEmployee:        "Nhân viên",
}

// Rank returns the role weight, Director 6 down to Employee 1. Unknown roles rank 0.
func (r UserRole) Rank() int {
	return roleRanks[r]
}

func (r UserRole) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

func (r UserRole) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// IsLeadership reports whether the role heads a department tier.
func (r UserRole) IsLeadership() bool {
	_, ok := roleLevels[r]
	return ok
}

type User struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Role           UserRole  `json:"role" gorm:"not null;default:'employee'"`
	ManagerID      string    `json:"managerId,omitempty" gorm:"index"`
	DepartmentID   string    `json:"departmentId,omitempty" gorm:"index"`
	Password       string    `json:"-"`
	Phone          string    `json:"phone,omitempty"`
	JoinDate       string    `json:"joinDate,omitempty"`
	InitialRevenue float64   `json:"initialRevenue"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
