package service

import (
	"testing"

	"clinic-admin-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkspaceLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "受限机构", 1, 0, 0)

	_, err := svc.CreateWorkspace(org.ID, "第一工作区")
	require.NoError(t, err)

	_, err = svc.CreateWorkspace(org.ID, "第二工作区")
	assert.Equal(t, KindLimitExceeded, KindOf(err))

	// 0 表示不限
	unlimited := createOrg(t, db, "不限机构", 0, 0, 0)
	for _, name := range []string{"工作区一", "工作区二", "工作区三"} {
		_, err = svc.CreateWorkspace(unlimited.ID, name)
		require.NoError(t, err)
	}
}

func TestCreateWorkspaceValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)

	_, err := svc.CreateWorkspace(org.ID, "x")
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.CreateWorkspace("missing-org", "正常名称")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCreateFacilityOrgWideLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	// 场所配额按机构聚合，而不是按单个工作区
	org := createOrg(t, db, "受限机构", 0, 2, 0)
	ws1 := createWorkspace(t, db, org.ID, "工作区一")
	ws2 := createWorkspace(t, db, org.ID, "工作区二")

	_, err := svc.CreateFacility(ws1.ID, "场所一")
	require.NoError(t, err)
	_, err = svc.CreateFacility(ws2.ID, "场所二")
	require.NoError(t, err)

	_, err = svc.CreateFacility(ws1.ID, "场所三")
	assert.Equal(t, KindLimitExceeded, KindOf(err))

	// 其他机构不受影响
	other := createOrg(t, db, "其他机构", 0, 2, 0)
	otherWs := createWorkspace(t, db, other.ID, "其他工作区")
	_, err = svc.CreateFacility(otherWs.ID, "其他场所")
	require.NoError(t, err)
}

func TestCreateDepartment(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	facility := createFacility(t, db, ws.ID, "门诊楼")
	createCategory(t, db, "医疗")

	dept, err := svc.CreateDepartment(CreateDepartmentInput{
		Name:       "外科",
		Category:   "医疗",
		FacilityID: &facility.ID,
	})
	require.NoError(t, err)
	assert.True(t, dept.IsMain())
	assert.Equal(t, 1, dept.MinStaffing)

	sub, err := svc.CreateDepartment(CreateDepartmentInput{
		Name:               "普外科",
		Category:           "医疗",
		FacilityID:         &facility.ID,
		ParentDepartmentID: &dept.ID,
		MinStaffing:        2,
	})
	require.NoError(t, err)
	assert.True(t, sub.IsSubdepartment())

	// 深度固定为 2：子科室不能再作为父级
	_, err = svc.CreateDepartment(CreateDepartmentInput{
		Name:               "更深一层",
		FacilityID:         &facility.ID,
		ParentDepartmentID: &sub.ID,
	})
	assert.Equal(t, KindInvalidHierarchy, KindOf(err))

	// 子科室必须与主科室同场所
	otherFacility := createFacility(t, db, ws.ID, "住院楼")
	_, err = svc.CreateDepartment(CreateDepartmentInput{
		Name:               "跨场所子科室",
		FacilityID:         &otherFacility.ID,
		ParentDepartmentID: &dept.ID,
	})
	assert.Equal(t, KindInvalidHierarchy, KindOf(err))
}

func TestCreateDepartmentValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	facility := createFacility(t, db, ws.ID, "门诊楼")

	// 模板科室不能挂接场所
	_, err := svc.CreateDepartment(CreateDepartmentInput{
		Name:       "模板科室",
		IsTemplate: true,
		FacilityID: &facility.ID,
	})
	assert.Equal(t, KindValidation, KindOf(err))

	// 非模板科室必须指定场所
	_, err = svc.CreateDepartment(CreateDepartmentInput{Name: "无场所科室"})
	assert.Equal(t, KindValidation, KindOf(err))

	// 停用的类别不可用
	cat := createCategory(t, db, "停用类别")
	require.NoError(t, db.Model(cat).Update("is_active", false).Error)
	_, err = svc.CreateDepartment(CreateDepartmentInput{
		Name:       "外科",
		Category:   "停用类别",
		FacilityID: &facility.ID,
	})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestDeleteGuards(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	facility := createFacility(t, db, ws.ID, "门诊楼")
	dept := createDepartment(t, db, "外科", &facility.ID, nil)
	sub := createDepartment(t, db, "普外科", &facility.ID, &dept.ID)

	// 自下而上逐级阻止
	assert.Equal(t, KindHasChildren, KindOf(svc.DeleteOrganization(org.ID)))
	assert.Equal(t, KindHasChildren, KindOf(svc.DeleteWorkspace(ws.ID)))
	assert.Equal(t, KindHasChildren, KindOf(svc.DeleteFacility(facility.ID)))
	assert.Equal(t, KindHasChildren, KindOf(svc.DeleteDepartment(dept.ID)))

	// 子科室仍有用户挂接时被阻止
	user := createProfile(t, db, "张三", "zhang@example.com")
	require.NoError(t, db.Create(&model.UserRole{
		UserID:       user.ID,
		Role:         model.RoleStaff,
		WorkspaceID:  &ws.ID,
		FacilityID:   &facility.ID,
		DepartmentID: &sub.ID,
	}).Error)
	assert.Equal(t, KindHasAssignedUsers, KindOf(svc.DeleteDepartment(sub.ID)))

	// 解除依赖后自下而上删除成功
	require.NoError(t, db.Where("user_id = ?", user.ID).Delete(&model.UserRole{}).Error)
	require.NoError(t, svc.DeleteDepartment(sub.ID))
	require.NoError(t, svc.DeleteDepartment(dept.ID))
	require.NoError(t, svc.DeleteFacility(facility.ID))
	require.NoError(t, svc.DeleteWorkspace(ws.ID))
	require.NoError(t, svc.DeleteOrganization(org.ID))

	var count int64
	db.Model(&model.Organization{}).Count(&count)
	assert.Zero(t, count)
}

func TestDeleteNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	assert.Equal(t, KindNotFound, KindOf(svc.DeleteOrganization("missing")))
	assert.Equal(t, KindNotFound, KindOf(svc.DeleteWorkspace("missing")))
	assert.Equal(t, KindNotFound, KindOf(svc.DeleteFacility("missing")))
	assert.Equal(t, KindNotFound, KindOf(svc.DeleteDepartment("missing")))
}

func TestAssignTemplateDepartment(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	template := createDepartment(t, db, "模板外科", nil, nil)

	require.NoError(t, svc.AssignTemplateDepartmentToWorkspace(ws.ID, template.ID))

	// 重复分配幂等
	require.NoError(t, svc.AssignTemplateDepartmentToWorkspace(ws.ID, template.ID))
	var count int64
	db.Model(&model.WorkspaceDepartment{}).Where("workspace_id = ?", ws.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	// 非模板科室不能分配
	facility := createFacility(t, db, ws.ID, "门诊楼")
	normal := createDepartment(t, db, "外科", &facility.ID, nil)
	err := svc.AssignTemplateDepartmentToWorkspace(ws.ID, normal.ID)
	assert.Equal(t, KindValidation, KindOf(err))

	// 删除模板科室时清理工作区关联
	require.NoError(t, svc.DeleteDepartment(template.ID))
	db.Model(&model.WorkspaceDepartment{}).Where("workspace_id = ?", ws.ID).Count(&count)
	assert.Zero(t, count)
}

func TestAssignCategoryToWorkspace(t *testing.T) {
	db := newTestDB(t)
	svc := NewHierarchyService(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	cat := createCategory(t, db, "医疗")

	require.NoError(t, svc.AssignCategoryToWorkspace(ws.ID, cat.ID))
	require.NoError(t, svc.AssignCategoryToWorkspace(ws.ID, cat.ID))

	var count int64
	db.Model(&model.WorkspaceCategory{}).Where("workspace_id = ?", ws.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, KindNotFound, KindOf(svc.AssignCategoryToWorkspace(ws.ID, "missing")))
}
