package service

import (
	"testing"

	"clinic-admin-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanGrant(t *testing.T) {
	// 只能授予严格低于自己的角色
	assert.True(t, CanGrant(model.RoleSuperAdmin, model.RoleOrganizationAdmin))
	assert.True(t, CanGrant(model.RoleOrganizationAdmin, model.RoleStaff))
	assert.True(t, CanGrant(model.RoleDepartmentHead, model.RoleStaff))

	// 同级和更高级都不行
	assert.False(t, CanGrant(model.RoleSuperAdmin, model.RoleSuperAdmin))
	assert.False(t, CanGrant(model.RoleStaff, model.RoleStaff))
	assert.False(t, CanGrant(model.RoleGeneralAdmin, model.RoleOrganizationAdmin))
	assert.False(t, CanGrant(model.RoleStaff, model.RoleDepartmentHead))
}

func TestHighestRole(t *testing.T) {
	roles := []model.UserRole{
		{Role: model.RoleStaff},
		{Role: model.RoleGeneralAdmin},
		{Role: model.RoleDepartmentHead},
	}
	assert.Equal(t, model.RoleGeneralAdmin, model.HighestRole(roles))
	assert.Equal(t, model.Role(""), model.HighestRole(nil))
}

func TestAddRoleScopeRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	facility := createFacility(t, db, ws.ID, "门诊楼")
	dept := createDepartment(t, db, "外科", &facility.ID, nil)
	sub := createDepartment(t, db, "普外科", &facility.ID, &dept.ID)
	user := createProfile(t, db, "张三", "zhang@example.com")

	// general_admin 必须指定工作区
	_, err := svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{WorkspaceID: &ws.ID})
	require.NoError(t, err)

	// general_admin 不接受场所作用域
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{
		WorkspaceID: &ws.ID,
		FacilityID:  &facility.ID,
	})
	assert.Equal(t, KindValidation, KindOf(err))

	// 科室主任只能挂接主科室
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleDepartmentHead, RoleScope{
		FacilityID:   &facility.ID,
		DepartmentID: &sub.ID,
	})
	assert.Equal(t, KindInvalidScope, KindOf(err))

	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleDepartmentHead, RoleScope{
		FacilityID:   &facility.ID,
		DepartmentID: &dept.ID,
	})
	require.NoError(t, err)

	// 员工只能挂接子科室
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleStaff, RoleScope{
		FacilityID:   &facility.ID,
		DepartmentID: &dept.ID,
	})
	assert.Equal(t, KindInvalidScope, KindOf(err))

	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleStaff, RoleScope{
		FacilityID:   &facility.ID,
		DepartmentID: &sub.ID,
	})
	require.NoError(t, err)

	// super_admin 不接受任何作用域
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleSuperAdmin, RoleScope{})
	assert.Equal(t, KindPermissionDenied, KindOf(err))
}

func TestAddRoleCreatorAuthority(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	user := createProfile(t, db, "张三", "zhang@example.com")

	// 授予同级或更高角色在服务端被拒绝
	_, err := svc.AddRole(model.RoleGeneralAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{WorkspaceID: &ws.ID})
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	_, err = svc.AddRole(model.RoleGeneralAdmin, user.ID, model.RoleOrganizationAdmin, RoleScope{OrganizationID: &org.ID})
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	_, err = svc.AddRole(model.RoleGeneralAdmin, user.ID, model.RoleWorkplaceSupervisor, RoleScope{WorkspaceID: &ws.ID})
	require.NoError(t, err)
}

func TestAddRoleOrganizationAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	user := createProfile(t, db, "李四", "li@example.com")

	// organization_admin 必须指定机构
	_, err := svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleOrganizationAdmin, RoleScope{})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleOrganizationAdmin, RoleScope{OrganizationID: &org.ID})
	require.NoError(t, err)

	// 作用域落到机构 owner_id
	var reloaded model.Organization
	require.NoError(t, db.First(&reloaded, "id = ?", org.ID).Error)
	require.NotNil(t, reloaded.OwnerID)
	assert.Equal(t, user.ID, *reloaded.OwnerID)

	// 其他角色不接受机构作用域
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{
		OrganizationID: &org.ID,
		WorkspaceID:    &ws.ID,
	})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestAddRoleTargets(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")

	// 用户不存在
	_, err := svc.AddRole(model.RoleSuperAdmin, "missing", model.RoleGeneralAdmin, RoleScope{WorkspaceID: &ws.ID})
	assert.Equal(t, KindNotFound, KindOf(err))

	// 作用域实体不存在
	user := createProfile(t, db, "张三", "zhang@example.com")
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{WorkspaceID: strptr("missing")})
	assert.Equal(t, KindNotFound, KindOf(err))

	// 无效角色
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.Role("doctor"), RoleScope{})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRemoveRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	user := createProfile(t, db, "张三", "zhang@example.com")

	ur, err := svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleGeneralAdmin, RoleScope{WorkspaceID: &ws.ID})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveRole(ur.ID))

	// 删除后派生权限随之消失
	roles, err := svc.UserRoles(user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	assert.Equal(t, KindNotFound, KindOf(svc.RemoveRole(ur.ID)))
}

func TestHighestRoleOf(t *testing.T) {
	db := newTestDB(t)
	svc := NewRoleService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	facility := createFacility(t, db, ws.ID, "门诊楼")
	dept := createDepartment(t, db, "外科", &facility.ID, nil)
	sub := createDepartment(t, db, "普外科", &facility.ID, &dept.ID)
	user := createProfile(t, db, "张三", "zhang@example.com")

	highest, err := svc.HighestRoleOf(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Role(""), highest)

	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleStaff, RoleScope{
		FacilityID:   &facility.ID,
		DepartmentID: &sub.ID,
	})
	require.NoError(t, err)
	_, err = svc.AddRole(model.RoleSuperAdmin, user.ID, model.RoleWorkplaceSupervisor, RoleScope{WorkspaceID: &ws.ID})
	require.NoError(t, err)

	highest, err = svc.HighestRoleOf(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleWorkplaceSupervisor, highest)
}
