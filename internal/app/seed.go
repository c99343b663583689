package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/saleflow/backend/internal/logger"
	"github.com/saleflow/backend/internal/models"
	"github.com/saleflow/backend/internal/services"
	"github.com/saleflow/backend/internal/store"
)

// SeedUser is one account in a seed file. Password is plaintext and hashed
// on insert.
type SeedUser struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Password       string          `json:"password"`
	Role           models.UserRole `json:"role"`
	ManagerID      string          `json:"managerId"`
	DepartmentID   string          `json:"departmentId"`
	Phone          string          `json:"phone"`
	JoinDate       string          `json:"joinDate"`
	InitialRevenue float64         `json:"initialRevenue"`
}

// SeedData is the layout of a seed file.
type SeedData struct {
	Departments []models.Department `json:"departments"`
	Users       []SeedUser          `json:"users"`
}

type SeedResult struct {
	Created int
	Skipped int
}

func LoadSeedFile(path string) (SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedData{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return SeedData{}, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return data, nil
}

// Seed inserts departments then users. Rows whose id already exists are
// left untouched.
func Seed(ctx context.Context, st store.Store, data SeedData) (SeedResult, error) {
	var res SeedResult
	for _, d := range data.Departments {
		d := d
		switch err := st.CreateDepartment(ctx, &d); {
		case errors.Is(err, store.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("seed department %s: %w", d.ID, err)
		default:
			res.Created++
		}
	}

	for _, su := range data.Users {
		if !su.Role.Valid() {
			logger.Warn("Unknown role in seed file, defaulting to employee", map[string]interface{}{
				"user_id": su.ID,
				"role":    su.Role,
			})
			su.Role = models.RoleEmployee
		}
		hashed, err := services.HashPassword(su.Password)
		if err != nil {
			return res, fmt.Errorf("hash password for %s: %w", su.ID, err)
		}
		u := models.User{
			ID:             su.ID,
			Name:           su.Name,
			Password:       hashed,
			Role:           su.Role,
			ManagerID:      su.ManagerID,
			DepartmentID:   su.DepartmentID,
			Phone:          su.Phone,
			JoinDate:       su.JoinDate,
			InitialRevenue: su.InitialRevenue,
		}
		switch err := st.CreateUser(ctx, &u); {
		case errors.Is(err, store.ErrDuplicate):
			logger.Debug("User already exists", map[string]interface{}{"user_id": u.ID})
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("seed user %s: %w", u.ID, err)
		default:
			res.Created++
		}
	}
	return res, nil
}
