package service

import (
	"testing"

	"clinic-admin-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateModule(t *testing.T) {
	db := newTestDB(t)
	svc := NewModuleService(db)

	module, err := svc.CreateModule("scheduling", "排班", nil)
	require.NoError(t, err)
	assert.True(t, module.IsActive)

	// 全部角色的默认能力矩阵已播种
	var rows []model.RoleModuleAccess
	require.NoError(t, db.Where("module_id = ?", module.ID).Find(&rows).Error)
	assert.Len(t, rows, len(model.DefaultRoleModuleMatrix))

	// key 重复
	_, err = svc.CreateModule("scheduling", "排班二", nil)
	assert.Equal(t, KindValidation, KindOf(err))

	// key 过短
	_, err = svc.CreateModule("x", "单字符", nil)
	assert.Equal(t, KindValidation, KindOf(err))

	// 依赖必须已注册
	_, err = svc.CreateModule("billing", "计费", []string{"missing"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = svc.CreateModule("billing", "计费", []string{"scheduling"})
	require.NoError(t, err)
}

func TestSetModuleActive(t *testing.T) {
	db := newTestDB(t)
	svc := NewModuleService(db)

	require.NoError(t, svc.SeedCoreModule())
	_, err := svc.CreateModule("scheduling", "排班", nil)
	require.NoError(t, err)
	_, err = svc.CreateModule("billing", "计费", []string{"scheduling"})
	require.NoError(t, err)

	// core 不可停用
	assert.Equal(t, KindValidation, KindOf(svc.SetModuleActive(model.ModuleKeyCore, false)))

	// 被启用模块依赖时不可停用
	assert.Equal(t, KindValidation, KindOf(svc.SetModuleActive("scheduling", false)))

	// 先停用依赖方，再停用被依赖方
	require.NoError(t, svc.SetModuleActive("billing", false))
	require.NoError(t, svc.SetModuleActive("scheduling", false))

	// 重新启用
	require.NoError(t, svc.SetModuleActive("scheduling", true))

	assert.Equal(t, KindNotFound, KindOf(svc.SetModuleActive("missing", false)))
}

func TestSeedCoreModuleIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewModuleService(db)

	require.NoError(t, svc.SeedCoreModule())
	require.NoError(t, svc.SeedCoreModule())

	var count int64
	db.Model(&model.ModuleDefinition{}).Where("`key` = ?", model.ModuleKeyCore).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestSetRoleAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewModuleService(db)

	_, err := svc.CreateModule("scheduling", "排班", nil)
	require.NoError(t, err)

	caps := model.Capabilities{CanView: true, CanEdit: true}
	require.NoError(t, svc.SetRoleAccess(model.RoleStaff, "scheduling", caps))

	var rma model.RoleModuleAccess
	require.NoError(t, db.First(&rma, "role = ?", model.RoleStaff).Error)
	assert.Equal(t, caps, rma.Capabilities)

	assert.Equal(t, KindValidation, KindOf(svc.SetRoleAccess(model.Role("doctor"), "scheduling", caps)))
	assert.Equal(t, KindNotFound, KindOf(svc.SetRoleAccess(model.RoleStaff, "missing", caps)))
}

func TestSetUserOverride(t *testing.T) {
	db := newTestDB(t)
	svc := NewModuleService(db)

	user := createProfile(t, db, "张三", "zhang@example.com")
	_, err := svc.CreateModule("scheduling", "排班", nil)
	require.NoError(t, err)

	caps := model.Capabilities{CanView: true}
	require.NoError(t, svc.SetUserOverride(user.ID, "scheduling", caps))

	var uma model.UserModuleAccess
	require.NoError(t, db.First(&uma, "user_id = ?", user.ID).Error)
	assert.True(t, uma.IsOverride)
	assert.Equal(t, caps, uma.Capabilities)

	// 再次设置是更新而不是追加
	require.NoError(t, svc.SetUserOverride(user.ID, "scheduling", model.Capabilities{}))
	var count int64
	db.Model(&model.UserModuleAccess{}).Where("user_id = ?", user.ID).Count(&count)
	assert.EqualValues(t, 1, count)

	require.NoError(t, svc.ClearUserOverride(user.ID, "scheduling"))
	db.Model(&model.UserModuleAccess{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)

	assert.Equal(t, KindNotFound, KindOf(svc.SetUserOverride("missing", "scheduling", caps)))
}
