package service

import (
	"testing"

	"clinic-admin-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fullCaps = model.Capabilities{CanView: true, CanEdit: true, CanDelete: true, CanAdmin: true}
	viewOnly = model.Capabilities{CanView: true}
	editCaps = model.Capabilities{CanView: true, CanEdit: true}
)

func boolptr(b bool) *bool {
	return &b
}

func TestResolveCapabilities(t *testing.T) {
	tests := []struct {
		name             string
		moduleActive     bool
		isCore           bool
		grants           []model.Capabilities
		workspaceEnabled *bool
		override         *model.Capabilities
		want             model.Capabilities
	}{
		{
			name:         "系统停用压倒一切",
			moduleActive: false,
			grants:       []model.Capabilities{fullCaps},
			override:     &fullCaps,
			want:         model.NoCapabilities,
		},
		{
			name:         "core 模块不受系统停用影响",
			moduleActive: false,
			isCore:       true,
			grants:       []model.Capabilities{viewOnly},
			want:         viewOnly,
		},
		{
			name:         "角色能力按位或合并",
			moduleActive: true,
			grants: []model.Capabilities{
				viewOnly,
				{CanEdit: true},
			},
			want: editCaps,
		},
		{
			name:             "工作区停用后全否",
			moduleActive:     true,
			grants:           []model.Capabilities{fullCaps},
			workspaceEnabled: boolptr(false),
			want:             model.NoCapabilities,
		},
		{
			name:             "工作区启用不改变角色推导",
			moduleActive:     true,
			grants:           []model.Capabilities{viewOnly},
			workspaceEnabled: boolptr(true),
			want:             viewOnly,
		},
		{
			name:             "用户覆盖优先于工作区停用",
			moduleActive:     true,
			grants:           []model.Capabilities{viewOnly},
			workspaceEnabled: boolptr(false),
			override:         &editCaps,
			want:             editCaps,
		},
		{
			name:         "用户覆盖可以收窄为全否",
			moduleActive: true,
			grants:       []model.Capabilities{fullCaps},
			override:     &model.NoCapabilities,
			want:         model.NoCapabilities,
		},
		{
			name:         "无任何记录时全否",
			moduleActive: true,
			want:         model.NoCapabilities,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCapabilities(tt.moduleActive, tt.isCore, tt.grants, tt.workspaceEnabled, tt.override)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveAccess(t *testing.T) {
	db := newTestDB(t)
	modules := NewModuleService(db)
	resolver := NewPermissionResolver(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	user := createProfile(t, db, "测试用户", "user@example.com")

	module, err := modules.CreateModule("scheduling", "排班", nil)
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.UserRole{
		UserID:      user.ID,
		Role:        model.RoleStaff,
		WorkspaceID: &ws.ID,
	}).Error)

	// staff 默认只读
	caps, err := resolver.EffectiveAccess(user.ID, ws.ID, "scheduling")
	require.NoError(t, err)
	assert.Equal(t, model.Capabilities{CanView: true}, caps)

	// 工作区停用后全否
	require.NoError(t, modules.SetWorkspaceEnabled(ws.ID, "scheduling", false))
	caps, err = resolver.EffectiveAccess(user.ID, ws.ID, "scheduling")
	require.NoError(t, err)
	assert.Equal(t, model.NoCapabilities, caps)

	// 用户覆盖仍然生效
	require.NoError(t, modules.SetUserOverride(user.ID, "scheduling", editCaps))
	caps, err = resolver.EffectiveAccess(user.ID, ws.ID, "scheduling")
	require.NoError(t, err)
	assert.Equal(t, editCaps, caps)

	// 清除覆盖恢复工作区停用的全否
	require.NoError(t, modules.ClearUserOverride(user.ID, "scheduling"))
	caps, err = resolver.EffectiveAccess(user.ID, ws.ID, "scheduling")
	require.NoError(t, err)
	assert.Equal(t, model.NoCapabilities, caps)

	// 系统停用压倒一切
	require.NoError(t, modules.SetUserOverride(user.ID, "scheduling", fullCaps))
	require.NoError(t, db.Model(module).Update("is_active", false).Error)
	caps, err = resolver.EffectiveAccess(user.ID, ws.ID, "scheduling")
	require.NoError(t, err)
	assert.Equal(t, model.NoCapabilities, caps)
}

func TestEffectiveAccessMultipleRoles(t *testing.T) {
	db := newTestDB(t)
	modules := NewModuleService(db)
	resolver := NewPermissionResolver(db)

	org := createOrg(t, db, "测试机构", 0, 0, 0)
	ws := createWorkspace(t, db, org.ID, "门诊工作区")
	user := createProfile(t, db, "双角色用户", "both@example.com")

	_, err := modules.CreateModule("reporting", "报表", nil)
	require.NoError(t, err)

	// staff 只读 + general_admin 可编辑可删除，合并取并集
	require.NoError(t, db.Create(&model.UserRole{UserID: user.ID, Role: model.RoleStaff, WorkspaceID: &ws.ID}).Error)
	require.NoError(t, db.Create(&model.UserRole{UserID: user.ID, Role: model.RoleGeneralAdmin, WorkspaceID: &ws.ID}).Error)

	caps, err := resolver.EffectiveAccess(user.ID, ws.ID, "reporting")
	require.NoError(t, err)
	assert.Equal(t, model.Capabilities{CanView: true, CanEdit: true, CanDelete: true}, caps)
}

func TestEffectiveAccessUnknownModule(t *testing.T) {
	db := newTestDB(t)
	resolver := NewPermissionResolver(db)

	user := createProfile(t, db, "测试用户", "user@example.com")

	caps, err := resolver.EffectiveAccess(user.ID, "", "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, model.NoCapabilities, caps)
}
