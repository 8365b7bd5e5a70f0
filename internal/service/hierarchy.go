package service

import (
	"errors"

	"clinic-admin-server/internal/model"

	"gorm.io/gorm"
)

// HierarchyService 维护 机构 → 工作区 → 场所 → 科室 → 子科室 的结构不变量
type HierarchyService struct {
	db *gorm.DB
}

// NewHierarchyService 创建层级服务
func NewHierarchyService(db *gorm.DB) *HierarchyService {
	return &HierarchyService{db: db}
}

// CreateWorkspace 在机构下创建工作区
// 机构 max_workspaces 有限且已满时返回 limit_exceeded
func (s *HierarchyService) CreateWorkspace(orgID, name string) (*model.Workspace, error) {
	if len([]rune(name)) < 2 {
		return nil, NewError(KindValidation, "工作区名称至少 2 个字符")
	}

	var org model.Organization
	if err := s.db.First(&org, "id = ?", orgID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "机构不存在")
		}
		return nil, err
	}

	if org.WorkspaceLimited() {
		var count int64
		if err := s.db.Model(&model.Workspace{}).Where("organization_id = ?", orgID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count >= int64(org.MaxWorkspaces) {
			return nil, NewError(KindLimitExceeded, "已达到机构的工作区数量上限")
		}
	}

	ws := model.Workspace{
		Name:           name,
		OrganizationID: orgID,
	}
	if err := s.db.Create(&ws).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

// CreateFacility 在工作区下创建场所
// 场所配额按机构聚合：机构所有工作区的场所总数受 max_facilities 约束
func (s *HierarchyService) CreateFacility(workspaceID, name string) (*model.Facility, error) {
	if len([]rune(name)) < 2 {
		return nil, NewError(KindValidation, "场所名称至少 2 个字符")
	}

	var ws model.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewError(KindNotFound, "工作区不存在")
		}
		return nil, err
	}

	var org model.Organization
	if err := s.db.First(&org, "id = ?", ws.OrganizationID).Error; err != nil {
		return nil, err
	}

	if org.FacilityLimited() {
		var count int64
		err := s.db.Model(&model.Facility{}).
			Joins("JOIN workspaces ON workspaces.id = facilities.workspace_id").
			Where("workspaces.organization_id = ?", org.ID).
			Count(&count).Error
		if err != nil {
			return nil, err
		}
		if count >= int64(org.MaxFacilities) {
			return nil, NewError(KindLimitExceeded, "已达到机构的场所数量上限")
		}
	}

	facility := model.Facility{
		Name:        name,
		WorkspaceID: workspaceID,
	}
	if err := s.db.Create(&facility).Error; err != nil {
		return nil, err
	}
	return &facility, nil
}

// CreateDepartmentInput 创建科室参数
type CreateDepartmentInput struct {
	Name               string
	Category           string
	FacilityID         *string // 为空且 IsTemplate 时创建模板科室
	IsTemplate         bool
	ParentDepartmentID *string
	MinStaffing        int // 0 时取默认值 1
}

// CreateDepartment 创建科室或子科室
// 层级深度固定为 2：子科室不能再作为父级
func (s *HierarchyService) CreateDepartment(in CreateDepartmentInput) (*model.Department, error) {
	if len([]rune(in.Name)) < 2 {
		return nil, NewError(KindValidation, "科室名称至少 2 个字符")
	}
	if in.MinStaffing == 0 {
		in.MinStaffing = 1
	}
	if in.MinStaffing < 1 {
		return nil, NewError(KindValidation, "最低在岗人数必须大于等于 1")
	}
	if in.IsTemplate && in.FacilityID != nil {
		return nil, NewError(KindValidation, "模板科室不能挂接场所")
	}
	if !in.IsTemplate && in.FacilityID == nil {
		return nil, NewError(KindValidation, "非模板科室必须指定场所")
	}

	if in.Category != "" {
		var cat model.Category
		if err := s.db.First(&cat, "name = ? AND is_active = ?", in.Category, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewError(KindValidation, "科室类别不存在或已停用")
			}
			return nil, err
		}
	}

	if in.FacilityID != nil {
		var facility model.Facility
		if err := s.db.First(&facility, "id = ?", *in.FacilityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewError(KindNotFound, "场所不存在")
			}
			return nil, err
		}
	}

	if in.ParentDepartmentID != nil {
		var parent model.Department
		if err := s.db.First(&parent, "id = ?", *in.ParentDepartmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewError(KindNotFound, "上级科室不存在")
			}
			return nil, err
		}
		if parent.IsSubdepartment() {
			return nil, NewError(KindInvalidHierarchy, "子科室不能再创建下级科室")
		}
		// 子科室与主科室必须在同一场所（模板树同理）
		if !sameFacility(parent.FacilityID, in.FacilityID) {
			return nil, NewError(KindInvalidHierarchy, "子科室必须与主科室属于同一场所")
		}
	}

	dept := model.Department{
		Name:               in.Name,
		Category:           in.Category,
		FacilityID:         in.FacilityID,
		IsTemplate:         in.IsTemplate,
		ParentDepartmentID: in.ParentDepartmentID,
		MinStaffing:        in.MinStaffing,
	}
	if err := s.db.Create(&dept).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

func sameFacility(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// DeleteDepartment 删除科室，受删除守卫约束
func (s *HierarchyService) DeleteDepartment(id string) error {
	var dept model.Department
	if err := s.db.First(&dept, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "科室不存在")
		}
		return err
	}

	if err := s.departmentDeleteGuard(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// 模板科室同时清理工作区关联
		if dept.IsTemplate {
			if err := tx.Where("department_id = ?", id).Delete(&model.WorkspaceDepartment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Department{}, "id = ?", id).Error
	})
}

// DeleteWorkspace 删除工作区，存在场所时被阻止
func (s *HierarchyService) DeleteWorkspace(id string) error {
	var ws model.Workspace
	if err := s.db.First(&ws, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "工作区不存在")
		}
		return err
	}

	if err := s.workspaceDeleteGuard(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("workspace_id = ?", id).Delete(&model.WorkspaceDepartment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", id).Delete(&model.WorkspaceCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", id).Delete(&model.WorkspaceModuleAccess{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Workspace{}, "id = ?", id).Error
	})
}

// DeleteFacility 删除场所，存在科室时被阻止
func (s *HierarchyService) DeleteFacility(id string) error {
	var facility model.Facility
	if err := s.db.First(&facility, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "场所不存在")
		}
		return err
	}

	if err := s.facilityDeleteGuard(id); err != nil {
		return err
	}
	return s.db.Delete(&model.Facility{}, "id = ?", id).Error
}

// DeleteOrganization 删除机构，存在工作区时被阻止
func (s *HierarchyService) DeleteOrganization(id string) error {
	var org model.Organization
	if err := s.db.First(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "机构不存在")
		}
		return err
	}

	if err := s.organizationDeleteGuard(id); err != nil {
		return err
	}
	return s.db.Delete(&model.Organization{}, "id = ?", id).Error
}

// AssignTemplateDepartmentToWorkspace 为工作区启用模板科室，幂等
func (s *HierarchyService) AssignTemplateDepartmentToWorkspace(workspaceID, departmentID string) error {
	var ws model.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "工作区不存在")
		}
		return err
	}

	var dept model.Department
	if err := s.db.First(&dept, "id = ?", departmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "科室不存在")
		}
		return err
	}
	if !dept.IsTemplate {
		return NewError(KindValidation, "只有模板科室可以分配给工作区")
	}

	// 重复分配视为空操作
	return s.db.Where(model.WorkspaceDepartment{
		WorkspaceID:  workspaceID,
		DepartmentID: departmentID,
	}).FirstOrCreate(&model.WorkspaceDepartment{}).Error
}

// AssignCategoryToWorkspace 为工作区启用科室类别，幂等
func (s *HierarchyService) AssignCategoryToWorkspace(workspaceID, categoryID string) error {
	var ws model.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "工作区不存在")
		}
		return err
	}

	var cat model.Category
	if err := s.db.First(&cat, "id = ?", categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewError(KindNotFound, "类别不存在")
		}
		return err
	}

	return s.db.Where(model.WorkspaceCategory{
		WorkspaceID: workspaceID,
		CategoryID:  categoryID,
	}).FirstOrCreate(&model.WorkspaceCategory{}).Error
}

// ==================== 删除守卫 ====================
// 每种实体的 "能否删除" 判定只在这里表达一次

func (s *HierarchyService) organizationDeleteGuard(orgID string) error {
	var count int64
	if err := s.db.Model(&model.Workspace{}).Where("organization_id = ?", orgID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewError(KindHasChildren, "机构下仍有工作区，无法删除")
	}
	return nil
}

func (s *HierarchyService) workspaceDeleteGuard(workspaceID string) error {
	var count int64
	if err := s.db.Model(&model.Facility{}).Where("workspace_id = ?", workspaceID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewError(KindHasChildren, "工作区下仍有场所，无法删除")
	}
	return nil
}

func (s *HierarchyService) facilityDeleteGuard(facilityID string) error {
	var count int64
	if err := s.db.Model(&model.Department{}).Where("facility_id = ?", facilityID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return NewError(KindHasChildren, "场所下仍有科室，无法删除")
	}
	return nil
}

func (s *HierarchyService) departmentDeleteGuard(departmentID string) error {
	var children int64
	if err := s.db.Model(&model.Department{}).Where("parent_department_id = ?", departmentID).Count(&children).Error; err != nil {
		return err
	}
	if children > 0 {
		return NewError(KindHasChildren, "科室下仍有子科室，无法删除")
	}

	var assigned int64
	if err := s.db.Model(&model.UserRole{}).
		Where("department_id = ? OR specialty_id = ?", departmentID, departmentID).
		Count(&assigned).Error; err != nil {
		return err
	}
	if assigned > 0 {
		return NewError(KindHasAssignedUsers, "科室仍有已分配的用户，无法删除")
	}
	return nil
}
