package model

// LimitUnlimited 资源配额不限
const LimitUnlimited = 0

// Organization 机构 - 资源隔离的顶层单位
type Organization struct {
	BaseModel
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	OwnerID     *string `gorm:"type:varchar(36);index" json:"owner_id"` // 机构管理员（organization_admin）

	// 资源配额，0 表示不限
	MaxWorkspaces int `gorm:"default:0" json:"max_workspaces"`
	MaxFacilities int `gorm:"default:0" json:"max_facilities"`
	MaxUsers      int `gorm:"default:0" json:"max_users"`

	// 关联
	Owner      *Profile    `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Workspaces []Workspace `gorm:"foreignKey:OrganizationID" json:"workspaces,omitempty"`
}

func (Organization) TableName() string {
	return "organizations"
}

// WorkspaceLimited 工作区配额是否有限
func (o *Organization) WorkspaceLimited() bool {
	return o.MaxWorkspaces > LimitUnlimited
}

// FacilityLimited 场所配额是否有限
func (o *Organization) FacilityLimited() bool {
	return o.MaxFacilities > LimitUnlimited
}

// UserLimited 用户配额是否有限
func (o *Organization) UserLimited() bool {
	return o.MaxUsers > LimitUnlimited
}
