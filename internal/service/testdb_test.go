package service

import (
	"testing"

	"clinic-admin-server/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 每个测试用独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库随连接销毁，限制为单连接
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, model.MigrateAll(db))
	return db
}

func createOrg(t *testing.T, db *gorm.DB, name string, maxWorkspaces, maxFacilities, maxUsers int) *model.Organization {
	t.Helper()
	org := &model.Organization{
		Name:          name,
		MaxWorkspaces: maxWorkspaces,
		MaxFacilities: maxFacilities,
		MaxUsers:      maxUsers,
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func createWorkspace(t *testing.T, db *gorm.DB, orgID, name string) *model.Workspace {
	t.Helper()
	ws := &model.Workspace{Name: name, OrganizationID: orgID}
	require.NoError(t, db.Create(ws).Error)
	return ws
}

func createFacility(t *testing.T, db *gorm.DB, workspaceID, name string) *model.Facility {
	t.Helper()
	facility := &model.Facility{Name: name, WorkspaceID: workspaceID}
	require.NoError(t, db.Create(facility).Error)
	return facility
}

func createCategory(t *testing.T, db *gorm.DB, name string) *model.Category {
	t.Helper()
	cat := &model.Category{Name: name, IsActive: true}
	require.NoError(t, db.Create(cat).Error)
	return cat
}

// createDepartment 直接落库的科室 fixture，绕过服务层校验
func createDepartment(t *testing.T, db *gorm.DB, name string, facilityID, parentID *string) *model.Department {
	t.Helper()
	dept := &model.Department{
		Name:               name,
		FacilityID:         facilityID,
		IsTemplate:         facilityID == nil,
		ParentDepartmentID: parentID,
		MinStaffing:        1,
	}
	require.NoError(t, db.Create(dept).Error)
	return dept
}

func createProfile(t *testing.T, db *gorm.DB, name, email string) *model.Profile {
	t.Helper()
	profile := &model.Profile{FullName: name, Email: email, IsActive: true}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func strptr(s string) *string {
	return &s
}
