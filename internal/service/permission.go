package service

import (
	"errors"

	"clinic-admin-server/internal/model"

	"gorm.io/gorm"
)

// ResolveCapabilities 计算 (用户, 模块) 的有效能力，纯函数
//
// 优先级从高到低：
//  1. 模块被系统级停用 → 全否（core 模块不可停用，不受此规则影响）
//  2. 用户覆盖（is_override）→ 整体替换角色推导结果
//  3. 工作区停用 → 全否（只能收窄，不能放宽）
//  4. 角色默认能力按位或合并（任一角色授予即生效）
//
// 缺失记录一律视为全否（fail-closed），不作为错误
func ResolveCapabilities(moduleActive, isCore bool, grants []model.Capabilities, workspaceEnabled *bool, override *model.Capabilities) model.Capabilities {
	if !moduleActive && !isCore {
		return model.NoCapabilities
	}

	// 用户覆盖优先于工作区停用：覆盖是对单个用户的显式特批
	if override != nil {
		return *override
	}

	if workspaceEnabled != nil && !*workspaceEnabled {
		return model.NoCapabilities
	}

	resolved := model.NoCapabilities
	for _, g := range grants {
		resolved = resolved.Or(g)
	}
	return resolved
}

// PermissionResolver 基于存储的有效权限解析
type PermissionResolver struct {
	db *gorm.DB
}

// NewPermissionResolver 创建权限解析器
func NewPermissionResolver(db *gorm.DB) *PermissionResolver {
	return &PermissionResolver{db: db}
}

// EffectiveAccess 计算用户在某工作区范围内对模块的有效能力
// workspaceID 为空串时不应用工作区级开关
func (r *PermissionResolver) EffectiveAccess(userID, workspaceID, moduleKey string) (model.Capabilities, error) {
	var module model.ModuleDefinition
	if err := r.db.First(&module, "`key` = ?", moduleKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 未知模块视为全否
			return model.NoCapabilities, nil
		}
		return model.NoCapabilities, err
	}

	var userRoles []model.UserRole
	if err := r.db.Where("user_id = ?", userID).Find(&userRoles).Error; err != nil {
		return model.NoCapabilities, err
	}

	roles := make([]model.Role, 0, len(userRoles))
	seen := make(map[model.Role]bool)
	for _, ur := range userRoles {
		if !seen[ur.Role] {
			seen[ur.Role] = true
			roles = append(roles, ur.Role)
		}
	}

	grants := make([]model.Capabilities, 0, len(roles))
	if len(roles) > 0 {
		var rows []model.RoleModuleAccess
		if err := r.db.Where("module_id = ? AND role IN ?", module.ID, roles).Find(&rows).Error; err != nil {
			return model.NoCapabilities, err
		}
		for _, row := range rows {
			grants = append(grants, row.Capabilities)
		}
	}

	var workspaceEnabled *bool
	if workspaceID != "" {
		var wma model.WorkspaceModuleAccess
		err := r.db.Where("workspace_id = ? AND module_id = ?", workspaceID, module.ID).First(&wma).Error
		if err == nil {
			workspaceEnabled = &wma.IsEnabled
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return model.NoCapabilities, err
		}
	}

	var override *model.Capabilities
	var uma model.UserModuleAccess
	err := r.db.Where("user_id = ? AND module_id = ?", userID, module.ID).First(&uma).Error
	if err == nil {
		if uma.IsOverride {
			override = &uma.Capabilities
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.NoCapabilities, err
	}

	return ResolveCapabilities(module.IsActive, module.IsCore(), grants, workspaceEnabled, override), nil
}
