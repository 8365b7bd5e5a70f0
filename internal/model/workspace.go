package model

// Workspace 工作区 - 机构下的二级容器
type Workspace struct {
	BaseModel
	Name              string `gorm:"type:varchar(100);not null" json:"name"`
	OrganizationID    string `gorm:"type:varchar(36);index;not null" json:"organization_id"`
	MaxVacationSplits int    `gorm:"default:2" json:"max_vacation_splits"`

	// 关联
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Facilities   []Facility    `gorm:"foreignKey:WorkspaceID" json:"facilities,omitempty"`
}

func (Workspace) TableName() string {
	return "workspaces"
}

// WorkspaceDepartment 工作区启用的模板科室（多对多）
type WorkspaceDepartment struct {
	BaseModel
	WorkspaceID  string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ws_dept" json:"workspace_id"`
	DepartmentID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ws_dept" json:"department_id"`

	// 关联
	Workspace  *Workspace  `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (WorkspaceDepartment) TableName() string {
	return "workspace_departments"
}

// WorkspaceCategory 工作区启用的科室类别（多对多）
type WorkspaceCategory struct {
	BaseModel
	WorkspaceID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ws_cat" json:"workspace_id"`
	CategoryID  string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ws_cat" json:"category_id"`

	// 关联
	Workspace *Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Category  *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (WorkspaceCategory) TableName() string {
	return "workspace_categories"
}
