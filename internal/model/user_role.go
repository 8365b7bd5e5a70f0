package model

// Role 角色，按权限从高到低排列
type Role string

const (
	RoleSuperAdmin          Role = "super_admin"          // 超级管理员：全局权限
	RoleOrganizationAdmin   Role = "organization_admin"   // 机构管理员
	RoleGeneralAdmin        Role = "general_admin"        // 综合管理员
	RoleWorkplaceSupervisor Role = "workplace_supervisor" // 工作区主管
	RoleFacilitySupervisor  Role = "facility_supervisor"  // 场所主管
	RoleDepartmentHead      Role = "department_head"      // 科室主任
	RoleStaff               Role = "staff"                // 员工
)

// roleAuthority 角色权限等级，数值越大权限越高
var roleAuthority = map[Role]int{
	RoleSuperAdmin:          7,
	RoleOrganizationAdmin:   6,
	RoleGeneralAdmin:        5,
	RoleWorkplaceSupervisor: 4,
	RoleFacilitySupervisor:  3,
	RoleDepartmentHead:      2,
	RoleStaff:               1,
}

// Authority 返回角色的权限等级，未知角色为 0
func (r Role) Authority() int {
	return roleAuthority[r]
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	return roleAuthority[r] > 0
}

// HighestRole 返回角色集合中权限最高的角色
func HighestRole(roles []UserRole) Role {
	var highest Role
	for _, ur := range roles {
		if ur.Role.Authority() > highest.Authority() {
			highest = ur.Role
		}
	}
	return highest
}

// UserRole 用户角色分配 - 一个用户可同时持有多条（角色, 作用域）
type UserRole struct {
	BaseModel
	UserID       string  `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Role         Role    `gorm:"type:varchar(30);not null" json:"role"`
	WorkspaceID  *string `gorm:"type:varchar(36);index" json:"workspace_id"`
	FacilityID   *string `gorm:"type:varchar(36);index" json:"facility_id"`
	DepartmentID *string `gorm:"type:varchar(36);index" json:"department_id"`
	SpecialtyID  *string `gorm:"type:varchar(36)" json:"specialty_id"`

	// 关联
	User       *Profile    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Workspace  *Workspace  `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Facility   *Facility   `gorm:"foreignKey:FacilityID" json:"facility,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
