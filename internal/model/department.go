package model

// Department 科室
// 层级固定为两层：主科室 → 子科室（亚专科），子科室不能再有下级。
// 模板科室不属于任何场所，通过 workspace_departments 关联到工作区。
type Department struct {
	BaseModel
	Name               string  `gorm:"type:varchar(100);not null" json:"name"`
	Category           string  `gorm:"type:varchar(100)" json:"category"` // 对应 Category.Name
	FacilityID         *string `gorm:"type:varchar(36);index" json:"facility_id"`
	IsTemplate         bool    `gorm:"default:false" json:"is_template"`
	ParentDepartmentID *string `gorm:"type:varchar(36);index" json:"parent_department_id"` // 为空表示主科室
	MinStaffing        int     `gorm:"default:1" json:"min_staffing"`

	// 关联
	Facility *Facility    `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	Parent   *Department  `gorm:"foreignKey:ParentDepartmentID" json:"parent,omitempty"`
	Children []Department `gorm:"foreignKey:ParentDepartmentID" json:"children,omitempty"`
}

func (Department) TableName() string {
	return "departments"
}

// IsMain 是否为主科室
func (d *Department) IsMain() bool {
	return d.ParentDepartmentID == nil
}

// IsSubdepartment 是否为子科室
func (d *Department) IsSubdepartment() bool {
	return d.ParentDepartmentID != nil
}
