package model

// Facility 场所 - 工作区下的物理站点（院区/门诊部等）
type Facility struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);not null" json:"name"`
	WorkspaceID string `gorm:"type:varchar(36);index;not null" json:"workspace_id"`

	// 关联
	Workspace   *Workspace   `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Departments []Department `gorm:"foreignKey:FacilityID" json:"departments,omitempty"`
}

func (Facility) TableName() string {
	return "facilities"
}
