package service

import (
	"errors"
	"fmt"

	"clinic-admin-server/internal/model"

	"gorm.io/gorm"
)

// RoleScope 角色作用域
// 各字段按角色要求必填或禁止，见 roleScopeRules
type RoleScope struct {
	OrganizationID *string // 仅 organization_admin 使用，落到机构的 owner_id
	WorkspaceID    *string
	FacilityID     *string
	DepartmentID   *string
	SpecialtyID    *string
}

// scopeRule 某角色对作用域字段的要求
type scopeRule struct {
	requireWorkspace  bool
	requireFacility   bool
	requireDepartment bool
	forbidWorkspace   bool
	forbidFacility    bool
	forbidDepartment  bool
	forbidSpecialty   bool
	// 科室必须是主科室还是子科室
	departmentMustBeMain bool
	departmentMustBeSub  bool
}

// roleScopeRules 每个角色需要哪些作用域字段，在这里表达一次
var roleScopeRules = map[model.Role]scopeRule{
	model.RoleSuperAdmin: {
		forbidWorkspace: true, forbidFacility: true, forbidDepartment: true, forbidSpecialty: true,
	},
	// organization_admin 的作用域是机构本身（owner_id 链接），不落作用域字段
	model.RoleOrganizationAdmin: {
		forbidWorkspace: true, forbidFacility: true, forbidDepartment: true, forbidSpecialty: true,
	},
	model.RoleGeneralAdmin: {
		requireWorkspace: true, forbidFacility: true, forbidDepartment: true, forbidSpecialty: true,
	},
	model.RoleWorkplaceSupervisor: {
		requireWorkspace: true, forbidFacility: true, forbidDepartment: true, forbidSpecialty: true,
	},
	model.RoleFacilitySupervisor: {
		requireFacility: true, forbidDepartment: true, forbidSpecialty: true,
	},
	model.RoleDepartmentHead: {
		requireFacility: true, requireDepartment: true, forbidSpecialty: true,
		departmentMustBeMain: true,
	},
	model.RoleStaff: {
		requireFacility: true, requireDepartment: true,
		departmentMustBeSub: true,
	},
}

// RoleService 负责 (角色, 作用域) 的挂接与校验
type RoleService struct {
	db *gorm.DB
}

// NewRoleService 创建角色服务
func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

// CanGrant 创建者只能授予严格低于自己最高角色的角色
// 该检查在服务端强制执行，不依赖前端隐藏选项
func CanGrant(creatorHighest, target model.Role) bool {
	return target.Authority() < creatorHighest.Authority()
}

// AddRole 为用户挂接一条 (角色, 作用域)
func (s *RoleService) AddRole(creatorHighest model.Role, userID string, role model.Role, scope RoleScope) (*model.UserRole, error) {
	if !role.Valid() {
		return nil, NewError(KindValidation, "无效的角色")
	}
	if !CanGrant(creatorHighest, role) {
		return nil, NewError(KindPermissionDenied, "不能授予不低于自己权限的角色")
	}

	var user model.Profile
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "用户不存在")
		}
		return nil, err
	}

	if err := s.validateScope(role, scope); err != nil {
		return nil, err
	}

	ur := model.UserRole{
		UserID:       userID,
		Role:         role,
		WorkspaceID:  scope.WorkspaceID,
		FacilityID:   scope.FacilityID,
		DepartmentID: scope.DepartmentID,
		SpecialtyID:  scope.SpecialtyID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// organization_admin 特例：作用域是机构 owner 链接
		if role == model.RoleOrganizationAdmin {
			var org model.Organization
			if err := tx.First(&org, "id = ?", *scope.OrganizationID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return NewError(KindNotFound, "机构不存在")
				}
				return err
			}
			if err := tx.Model(&org).Update("owner_id", userID).Error; err != nil {
				return err
			}
		}
		return tx.Create(&ur).Error
	})
	if err != nil {
		return nil, err
	}
	return &ur, nil
}

// RemoveRole 删除一条角色分配，无级联副作用（派生权限随之消失）
func (s *RoleService) RemoveRole(roleRowID string) error {
	result := s.db.Delete(&model.UserRole{}, "id = ?", roleRowID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewError(KindNotFound, "角色分配不存在")
	}
	return nil
}

// UserRoles 查询用户的全部角色分配
func (s *RoleService) UserRoles(userID string) ([]model.UserRole, error) {
	var roles []model.UserRole
	if err := s.db.Where("user_id = ?", userID).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// HighestRoleOf 查询用户当前最高角色
func (s *RoleService) HighestRoleOf(userID string) (model.Role, error) {
	roles, err := s.UserRoles(userID)
	if err != nil {
		return "", err
	}
	return model.HighestRole(roles), nil
}

// validateScope 按角色校验作用域完整性与层级约束
func (s *RoleService) validateScope(role model.Role, scope RoleScope) error {
	rule := roleScopeRules[role]

	if role == model.RoleOrganizationAdmin {
		if scope.OrganizationID == nil {
			return NewError(KindValidation, "organization_admin 必须指定机构")
		}
	} else if scope.OrganizationID != nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 不接受机构作用域", role))
	}

	if rule.requireWorkspace && scope.WorkspaceID == nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 必须指定工作区", role))
	}
	if rule.requireFacility && scope.FacilityID == nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 必须指定场所", role))
	}
	if rule.requireDepartment && scope.DepartmentID == nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 必须指定科室", role))
	}
	if rule.forbidWorkspace && scope.WorkspaceID != nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 不接受工作区作用域", role))
	}
	if rule.forbidFacility && scope.FacilityID != nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 不接受场所作用域", role))
	}
	if rule.forbidDepartment && scope.DepartmentID != nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 不接受科室作用域", role))
	}
	if rule.forbidSpecialty && scope.SpecialtyID != nil {
		return NewError(KindValidation, fmt.Sprintf("角色 %s 不接受亚专科作用域", role))
	}

	if scope.WorkspaceID != nil {
		var ws model.Workspace
		if err := s.db.First(&ws, "id = ?", *scope.WorkspaceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(KindNotFound, "工作区不存在")
			}
			return err
		}
	}
	if scope.FacilityID != nil {
		var facility model.Facility
		if err := s.db.First(&facility, "id = ?", *scope.FacilityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(KindNotFound, "场所不存在")
			}
			return err
		}
	}

	if scope.DepartmentID != nil {
		var dept model.Department
		if err := s.db.First(&dept, "id = ?", *scope.DepartmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewError(KindNotFound, "科室不存在")
			}
			return err
		}
		if rule.departmentMustBeMain && dept.IsSubdepartment() {
			return NewError(KindInvalidScope, "科室主任只能挂接主科室")
		}
		if rule.departmentMustBeSub && dept.IsMain() {
			return NewError(KindInvalidScope, "员工只能挂接子科室")
		}
	}

	return nil
}
