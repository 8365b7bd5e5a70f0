package model

import "encoding/json"

// ModuleKeyCore 核心模块，永远不可停用
const ModuleKeyCore = "core"

// ModuleDefinition 功能模块定义
type ModuleDefinition struct {
	BaseModel
	Key       string `gorm:"type:varchar(50);uniqueIndex;not null" json:"key"`
	Name      string `gorm:"type:varchar(100);not null" json:"name"`
	IsActive  bool   `gorm:"default:true" json:"is_active"` // 系统级开关
	DependsOn string `gorm:"type:text" json:"-"`            // 依赖的模块 key 列表，JSON 数组
}

func (ModuleDefinition) TableName() string {
	return "module_definitions"
}

// IsCore 是否为核心模块
func (m *ModuleDefinition) IsCore() bool {
	return m.Key == ModuleKeyCore
}

// Dependencies 解析依赖的模块 key 列表
func (m *ModuleDefinition) Dependencies() []string {
	if m.DependsOn == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(m.DependsOn), &keys); err != nil {
		return nil
	}
	return keys
}

// SetDependencies 序列化依赖列表
func (m *ModuleDefinition) SetDependencies(keys []string) error {
	if len(keys) == 0 {
		m.DependsOn = ""
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	m.DependsOn = string(data)
	return nil
}

// Capabilities 模块能力集合
type Capabilities struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanAdmin  bool `json:"can_admin"`
}

// NoCapabilities 全否能力集合（缺失记录时的 fail-closed 结果）
var NoCapabilities = Capabilities{}

// Or 按能力位逻辑或合并
func (c Capabilities) Or(other Capabilities) Capabilities {
	return Capabilities{
		CanView:   c.CanView || other.CanView,
		CanEdit:   c.CanEdit || other.CanEdit,
		CanDelete: c.CanDelete || other.CanDelete,
		CanAdmin:  c.CanAdmin || other.CanAdmin,
	}
}

// RoleModuleAccess 角色在某模块上的默认能力
type RoleModuleAccess struct {
	BaseModel
	Role     Role   `gorm:"type:varchar(30);not null;uniqueIndex:idx_role_module" json:"role"`
	ModuleID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_role_module" json:"module_id"`
	Capabilities

	// 关联
	Module *ModuleDefinition `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

func (RoleModuleAccess) TableName() string {
	return "role_module_access"
}

// WorkspaceModuleAccess 工作区级模块开关 - 只能在系统启用的基础上收窄
type WorkspaceModuleAccess struct {
	BaseModel
	WorkspaceID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ws_module" json:"workspace_id"`
	ModuleID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ws_module" json:"module_id"`
	IsEnabled   bool   `gorm:"default:true" json:"is_enabled"`

	// 关联
	Workspace *Workspace        `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Module    *ModuleDefinition `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

func (WorkspaceModuleAccess) TableName() string {
	return "workspace_module_access"
}

// UserModuleAccess 用户级模块权限覆盖 - 优先级最高，整体替换角色推导结果
type UserModuleAccess struct {
	BaseModel
	UserID   string `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_module" json:"user_id"`
	ModuleID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_module" json:"module_id"`
	Capabilities
	IsOverride bool `gorm:"default:false" json:"is_override"`

	// 关联
	User   *Profile          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Module *ModuleDefinition `gorm:"foreignKey:ModuleID" json:"module,omitempty"`
}

func (UserModuleAccess) TableName() string {
	return "user_module_access"
}

// DefaultRoleModuleMatrix 各角色的默认模块能力，用于初始化权限矩阵
var DefaultRoleModuleMatrix = map[Role]Capabilities{
	RoleSuperAdmin:          {CanView: true, CanEdit: true, CanDelete: true, CanAdmin: true},
	RoleOrganizationAdmin:   {CanView: true, CanEdit: true, CanDelete: true, CanAdmin: true},
	RoleGeneralAdmin:        {CanView: true, CanEdit: true, CanDelete: true, CanAdmin: false},
	RoleWorkplaceSupervisor: {CanView: true, CanEdit: true, CanDelete: false, CanAdmin: false},
	RoleFacilitySupervisor:  {CanView: true, CanEdit: true, CanDelete: false, CanAdmin: false},
	RoleDepartmentHead:      {CanView: true, CanEdit: true, CanDelete: false, CanAdmin: false},
	RoleStaff:               {CanView: true, CanEdit: false, CanDelete: false, CanAdmin: false},
}
