package service

import (
	"errors"
	"fmt"
	"net/mail"

	"clinic-admin-server/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityCreator 外部身份创建副作用
// 给定账号资料创建可登录身份并返回其标识；邮箱已存在时返回 duplicate_user
type IdentityCreator interface {
	CreateIdentity(email, password, fullName string, mustChangePassword bool) (string, error)
}

// AccountIdentity 默认身份实现：在本库 accounts 表中创建登录账号
type AccountIdentity struct {
	db *gorm.DB
}

// NewAccountIdentity 创建默认身份实现
func NewAccountIdentity(db *gorm.DB) *AccountIdentity {
	return &AccountIdentity{db: db}
}

// CreateIdentity 创建登录账号，返回的标识同时作为 Profile ID
func (a *AccountIdentity) CreateIdentity(email, password, fullName string, mustChangePassword bool) (string, error) {
	var existing model.Account
	if err := a.db.First(&existing, "email = ?", email).Error; err == nil {
		return "", NewError(KindDuplicateUser, "该邮箱已被注册")
	}

	account := model.Account{
		Email:              email,
		Status:             model.AccountStatusActive,
		MustChangePassword: mustChangePassword,
	}
	if err := account.SetPassword(password); err != nil {
		return "", err
	}
	// Profile 与账号共用同一标识
	account.ID = uuid.New().String()
	account.ProfileID = account.ID

	if err := a.db.Create(&account).Error; err != nil {
		return "", err
	}
	return account.ProfileID, nil
}

// ProvisionInput 创建用户请求
type ProvisionInput struct {
	Email    string
	FullName string
	Role     model.Role
	Scope    RoleScope
	Password string // 为空时使用系统初始密码并强制首次修改
}

// ProvisionService 用户开通流程
type ProvisionService struct {
	db              *gorm.DB
	identity        IdentityCreator
	roles           *RoleService
	defaultPassword string
}

// NewProvisionService 创建用户开通服务
func NewProvisionService(db *gorm.DB, identity IdentityCreator, defaultPassword string) *ProvisionService {
	return &ProvisionService{
		db:              db,
		identity:        identity,
		roles:           NewRoleService(db),
		defaultPassword: defaultPassword,
	}
}

// ProvisionUser 校验后创建用户：身份副作用成功后写入 Profile 和 UserRole
func (s *ProvisionService) ProvisionUser(creatorHighest model.Role, in ProvisionInput) (*model.Profile, error) {
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validateFullName(in.FullName); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, NewError(KindValidation, "无效的角色")
	}
	if !CanGrant(creatorHighest, in.Role) {
		return nil, NewError(KindPermissionDenied, "不能授予不低于自己权限的角色")
	}
	// 作用域校验全部发生在任何写入之前
	if err := s.roles.validateScope(in.Role, in.Scope); err != nil {
		return nil, err
	}
	if err := s.checkUserLimit(in.Scope); err != nil {
		return nil, err
	}

	var existing model.Profile
	if err := s.db.First(&existing, "email = ?", in.Email).Error; err == nil {
		return nil, NewError(KindDuplicateUser, "该邮箱已被注册")
	}

	password := in.Password
	mustChange := false
	if password == "" {
		password = s.defaultPassword
		mustChange = true
	}

	userID, err := s.identity.CreateIdentity(in.Email, password, in.FullName, mustChange)
	if err != nil {
		return nil, err
	}

	profile := model.Profile{
		BaseModel: model.BaseModel{ID: userID},
		FullName:  in.FullName,
		Email:     in.Email,
		IsActive:  true,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}
		_, err := NewRoleService(tx).AddRole(creatorHighest, profile.ID, in.Role, in.Scope)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// checkUserLimit 机构 max_users 有限时约束其范围内的用户总数
func (s *ProvisionService) checkUserLimit(scope RoleScope) error {
	orgID, err := s.resolveOrganization(scope)
	if err != nil || orgID == "" {
		return err
	}

	var org model.Organization
	if err := s.db.First(&org, "id = ?", orgID).Error; err != nil {
		return err
	}
	if !org.UserLimited() {
		return nil
	}

	// 角色可能直接挂工作区，也可能只挂场所（员工、科室主任等），
	// 两条路径都要归并到机构
	var count int64
	err = s.db.Model(&model.UserRole{}).
		Distinct("user_roles.user_id").
		Joins("LEFT JOIN workspaces ON workspaces.id = user_roles.workspace_id").
		Joins("LEFT JOIN facilities ON facilities.id = user_roles.facility_id").
		Joins("LEFT JOIN workspaces AS facility_workspaces ON facility_workspaces.id = facilities.workspace_id").
		Where("workspaces.organization_id = ? OR facility_workspaces.organization_id = ?", orgID, orgID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count >= int64(org.MaxUsers) {
		return NewError(KindLimitExceeded, "已达到机构的用户数量上限")
	}
	return nil
}

// resolveOrganization 从作用域推导所属机构
func (s *ProvisionService) resolveOrganization(scope RoleScope) (string, error) {
	if scope.OrganizationID != nil {
		return *scope.OrganizationID, nil
	}

	workspaceID := ""
	if scope.WorkspaceID != nil {
		workspaceID = *scope.WorkspaceID
	} else if scope.FacilityID != nil {
		var facility model.Facility
		if err := s.db.First(&facility, "id = ?", *scope.FacilityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", nil
			}
			return "", err
		}
		workspaceID = facility.WorkspaceID
	}
	if workspaceID == "" {
		return "", nil
	}

	var ws model.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return ws.OrganizationID, nil
}

// ImportRow 批量导入的一行（由表格解析方产出）
type ImportRow struct {
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	FacilityName   string `json:"facility_name"`
	DepartmentName string `json:"department_name"`
	SpecialtyName  string `json:"specialty_name"`
	Role           string `json:"role"`
}

// ImportError 单行导入失败
type ImportError struct {
	Row     int    `json:"row"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ImportReport 批量导入结果：逐行尝试，失败累积而不中断整批
type ImportReport struct {
	Created int           `json:"created"`
	Failed  int           `json:"failed"`
	Errors  []ImportError `json:"errors"`
}

// BulkProvision 在指定工作区内按名称解析作用域并逐行开通用户
func (s *ProvisionService) BulkProvision(creatorHighest model.Role, workspaceID string, rows []ImportRow) ImportReport {
	report := ImportReport{}

	for i, row := range rows {
		if err := s.provisionRow(creatorHighest, workspaceID, row); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ImportError{
				Row:     i + 1,
				Email:   row.Email,
				Message: err.Error(),
			})
			continue
		}
		report.Created++
	}
	return report
}

func (s *ProvisionService) provisionRow(creatorHighest model.Role, workspaceID string, row ImportRow) error {
	role := model.Role(row.Role)
	if !role.Valid() {
		return NewError(KindValidation, fmt.Sprintf("无效的角色 %q", row.Role))
	}

	scope, err := s.resolveRowScope(role, workspaceID, row)
	if err != nil {
		return err
	}

	_, err = s.ProvisionUser(creatorHighest, ProvisionInput{
		Email:    row.Email,
		FullName: row.FullName,
		Role:     role,
		Scope:    scope,
	})
	return err
}

// resolveRowScope 把导入行中的名称解析成作用域标识
func (s *ProvisionService) resolveRowScope(role model.Role, workspaceID string, row ImportRow) (RoleScope, error) {
	scope := RoleScope{}
	rule := roleScopeRules[role]

	if rule.requireWorkspace {
		scope.WorkspaceID = &workspaceID
	}

	if row.FacilityName != "" {
		var facility model.Facility
		err := s.db.First(&facility, "workspace_id = ? AND name = ?", workspaceID, row.FacilityName).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return scope, NewError(KindValidation, fmt.Sprintf("场所 %q 不存在", row.FacilityName))
			}
			return scope, err
		}
		scope.FacilityID = &facility.ID

		if row.DepartmentName != "" {
			var dept model.Department
			err := s.db.First(&dept, "facility_id = ? AND name = ? AND parent_department_id IS NULL", facility.ID, row.DepartmentName).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return scope, NewError(KindValidation, fmt.Sprintf("科室 %q 不存在", row.DepartmentName))
				}
				return scope, err
			}

			if row.SpecialtyName != "" {
				var sub model.Department
				err := s.db.First(&sub, "parent_department_id = ? AND name = ?", dept.ID, row.SpecialtyName).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return scope, NewError(KindValidation, fmt.Sprintf("亚专科 %q 不存在", row.SpecialtyName))
					}
					return scope, err
				}
				// 员工挂接子科室
				scope.DepartmentID = &sub.ID
			} else {
				scope.DepartmentID = &dept.ID
			}
		}
	}

	return scope, nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > 255 {
		return NewError(KindValidation, "邮箱为空或超过 255 个字符")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewError(KindValidation, "邮箱格式不正确")
	}
	return nil
}

func validateFullName(name string) error {
	n := len([]rune(name))
	if n < 2 || n > 100 {
		return NewError(KindValidation, "姓名长度必须在 2 到 100 个字符之间")
	}
	return nil
}
