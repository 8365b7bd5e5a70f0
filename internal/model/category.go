package model

// Category 科室类别 - 平铺的查找表，用于给科室打标签
type Category struct {
	BaseModel
	Name            string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description     string `gorm:"type:text" json:"description"`
	IsSystemDefault bool   `gorm:"default:false" json:"is_system_default"` // 系统默认类别禁止改名和删除
	IsActive        bool   `gorm:"default:true" json:"is_active"`          // 软停用
}

func (Category) TableName() string {
	return "categories"
}
