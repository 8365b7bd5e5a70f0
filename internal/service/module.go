package service

import (
	"errors"
	"fmt"

	"clinic-admin-server/internal/model"

	"gorm.io/gorm"
)

// ModuleService 模块定义与三级权限配置（角色默认 / 工作区开关 / 用户覆盖）
type ModuleService struct {
	db *gorm.DB
}

// NewModuleService 创建模块服务
func NewModuleService(db *gorm.DB) *ModuleService {
	return &ModuleService{db: db}
}

// CreateModule 注册功能模块，并为所有角色写入默认能力矩阵
func (s *ModuleService) CreateModule(key, name string, dependsOn []string) (*model.ModuleDefinition, error) {
	if len(key) < 2 {
		return nil, NewError(KindValidation, "模块 key 至少 2 个字符")
	}

	var existing model.ModuleDefinition
	if err := s.db.First(&existing, "`key` = ?", key).Error; err == nil {
		return nil, NewError(KindValidation, "模块 key 已存在")
	}

	// 依赖必须指向已注册的模块
	for _, dep := range dependsOn {
		var m model.ModuleDefinition
		if err := s.db.First(&m, "`key` = ?", dep).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewError(KindValidation, fmt.Sprintf("依赖的模块 %s 不存在", dep))
			}
			return nil, err
		}
	}

	module := model.ModuleDefinition{
		Key:      key,
		Name:     name,
		IsActive: true,
	}
	if err := module.SetDependencies(dependsOn); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&module).Error; err != nil {
			return err
		}
		for role, caps := range model.DefaultRoleModuleMatrix {
			rma := model.RoleModuleAccess{
				Role:         role,
				ModuleID:     module.ID,
				Capabilities: caps,
			}
			if err := tx.Create(&rma).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &module, nil
}

// SetModuleActive 系统级启停模块
// core 模块不可停用；被其他启用模块依赖的模块也不可停用
func (s *ModuleService) SetModuleActive(key string, active bool) error {
	var module model.ModuleDefinition
	if err := s.db.First(&module, "`key` = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "模块不存在")
		}
		return err
	}

	if !active {
		if module.IsCore() {
			return NewError(KindValidation, "core 模块不可停用")
		}
		var all []model.ModuleDefinition
		if err := s.db.Where("is_active = ?", true).Find(&all).Error; err != nil {
			return err
		}
		for _, m := range all {
			if m.Key == key {
				continue
			}
			for _, dep := range m.Dependencies() {
				if dep == key {
					return NewError(KindValidation, fmt.Sprintf("模块被 %s 依赖，无法停用", m.Key))
				}
			}
		}
	}

	return s.db.Model(&module).Update("is_active", active).Error
}

// SetRoleAccess 设置角色在模块上的默认能力
func (s *ModuleService) SetRoleAccess(role model.Role, moduleKey string, caps model.Capabilities) error {
	if !role.Valid() {
		return NewError(KindValidation, "无效的角色")
	}

	module, err := s.findModule(moduleKey)
	if err != nil {
		return err
	}

	var rma model.RoleModuleAccess
	err = s.db.Where("role = ? AND module_id = ?", role, module.ID).First(&rma).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rma = model.RoleModuleAccess{Role: role, ModuleID: module.ID, Capabilities: caps}
		return s.db.Create(&rma).Error
	}
	if err != nil {
		return err
	}
	rma.Capabilities = caps
	return s.db.Save(&rma).Error
}

// SetWorkspaceEnabled 工作区级模块开关，只能在系统启用的基础上选择退出
func (s *ModuleService) SetWorkspaceEnabled(workspaceID, moduleKey string, enabled bool) error {
	var ws model.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "工作区不存在")
		}
		return err
	}

	module, err := s.findModule(moduleKey)
	if err != nil {
		return err
	}

	var wma model.WorkspaceModuleAccess
	err = s.db.Where("workspace_id = ? AND module_id = ?", workspaceID, module.ID).First(&wma).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		wma = model.WorkspaceModuleAccess{WorkspaceID: workspaceID, ModuleID: module.ID, IsEnabled: enabled}
		return s.db.Create(&wma).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&wma).Update("is_enabled", enabled).Error
}

// SetUserOverride 设置用户级权限覆盖，整体替换角色推导结果
func (s *ModuleService) SetUserOverride(userID, moduleKey string, caps model.Capabilities) error {
	var user model.Profile
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "用户不存在")
		}
		return err
	}

	module, err := s.findModule(moduleKey)
	if err != nil {
		return err
	}

	var uma model.UserModuleAccess
	err = s.db.Where("user_id = ? AND module_id = ?", userID, module.ID).First(&uma).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		uma = model.UserModuleAccess{
			UserID:       userID,
			ModuleID:     module.ID,
			Capabilities: caps,
			IsOverride:   true,
		}
		return s.db.Create(&uma).Error
	}
	if err != nil {
		return err
	}
	uma.Capabilities = caps
	uma.IsOverride = true
	return s.db.Save(&uma).Error
}

// ClearUserOverride 清除用户级覆盖，恢复角色推导
func (s *ModuleService) ClearUserOverride(userID, moduleKey string) error {
	module, err := s.findModule(moduleKey)
	if err != nil {
		return err
	}
	return s.db.Where("user_id = ? AND module_id = ?", userID, module.ID).
		Delete(&model.UserModuleAccess{}).Error
}

// SeedCoreModule 确保 core 模块存在（启动时调用）
func (s *ModuleService) SeedCoreModule() error {
	var module model.ModuleDefinition
	err := s.db.First(&module, "`key` = ?", model.ModuleKeyCore).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	_, err = s.CreateModule(model.ModuleKeyCore, "核心", nil)
	return err
}

func (s *ModuleService) findModule(key string) (*model.ModuleDefinition, error) {
	var module model.ModuleDefinition
	if err := s.db.First(&module, "`key` = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "模块不存在")
		}
		return nil, err
	}
	return &module, nil
}
