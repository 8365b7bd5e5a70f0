package handler

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"clinic-admin-server/internal/config"
	"clinic-admin-server/internal/middleware"
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	roles    *service.RoleService
	resolver *service.PermissionResolver
}

func NewUserHandler() *UserHandler {
	return &UserHandler{
		roles:    service.NewRoleService(model.DB),
		resolver: service.NewPermissionResolver(model.DB),
	}
}

func (h *UserHandler) provision() *service.ProvisionService {
	cfg := config.Get()
	identity := service.NewAccountIdentity(model.DB)
	return service.NewProvisionService(model.DB, identity, cfg.Provision.DefaultPassword)
}

// creatorHighest 取当前登录用户的最高角色，授权校验以库内数据为准
func (h *UserHandler) creatorHighest(c *gin.Context) (model.Role, bool) {
	highest, err := h.roles.HighestRoleOf(middleware.GetUserID(c))
	if err != nil || highest == "" {
		response.Forbidden(c, "当前用户没有任何角色，无权创建用户")
		return "", false
	}
	return highest, true
}

// List 获取用户列表
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := model.DB.Model(&model.Profile{})
	if keyword := c.Query("keyword"); keyword != "" {
		query = query.Where("full_name LIKE ? OR email LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if wsID := c.Query("workspace_id"); wsID != "" {
		query = query.
			Joins("JOIN user_roles ON user_roles.user_id = profiles.id").
			Where("user_roles.workspace_id = ?", wsID).
			Distinct("profiles.*")
	}

	var total int64
	query.Count(&total)

	var profiles []model.Profile
	query.Offset((page - 1) * pageSize).Limit(pageSize).Order("full_name ASC").Find(&profiles)

	response.SuccessPage(c, profiles, total, page, pageSize)
}

// Get 获取用户详情，含全部角色挂接
func (h *UserHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var profile model.Profile
	if err := model.DB.First(&profile, "id = ?", id).Error; err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	roles, err := h.roles.UserRoles(id)
	if err != nil {
		response.ServerError(c, "查询用户角色失败")
		return
	}

	response.Success(c, gin.H{
		"user":  profile,
		"roles": roles,
	})
}

// CreateUserRequest 创建用户请求，角色和作用域一次给齐
type CreateUserRequest struct {
	Email          string  `json:"email" binding:"required"`
	FullName       string  `json:"full_name" binding:"required"`
	Role           string  `json:"role" binding:"required"`
	Password       string  `json:"password"`
	OrganizationID *string `json:"organization_id"`
	WorkspaceID    *string `json:"workspace_id"`
	FacilityID     *string `json:"facility_id"`
	DepartmentID   *string `json:"department_id"`
	SpecialtyID    *string `json:"specialty_id"`
}

// Create 开通用户：创建登录账号、资料和首个角色挂接
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	highest, ok := h.creatorHighest(c)
	if !ok {
		return
	}

	profile, err := h.provision().ProvisionUser(highest, service.ProvisionInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     model.Role(req.Role),
		Password: req.Password,
		Scope: service.RoleScope{
			OrganizationID: req.OrganizationID,
			WorkspaceID:    req.WorkspaceID,
			FacilityID:     req.FacilityID,
			DepartmentID:   req.DepartmentID,
			SpecialtyID:    req.SpecialtyID,
		},
	})
	if err != nil {
		respondServiceError(c, err, "创建用户失败")
		return
	}
	response.Success(c, profile)
}

// 导入表头到字段的映射，兼容中英文表头
var importHeaderAlias = map[string]string{
	"email":           "email",
	"邮箱":              "email",
	"full_name":       "full_name",
	"姓名":              "full_name",
	"facility_name":   "facility_name",
	"场所":              "facility_name",
	"department_name": "department_name",
	"科室":              "department_name",
	"specialty_name":  "specialty_name",
	"子科室":             "specialty_name",
	"role":            "role",
	"角色":              "role",
}

// Import 批量导入用户
// CSV 首行为表头，逐行尝试，失败行记入结果不影响其余行
func (h *UserHandler) Import(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		response.BadRequest(c, "缺少 workspace_id 参数")
		return
	}

	highest, ok := h.creatorHighest(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "缺少上传文件")
		return
	}
	defer file.Close()

	rows, err := parseImportCSV(file, config.Get().Provision.ImportMaxRows)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report := h.provision().BulkProvision(highest, workspaceID, rows)
	response.Success(c, report)
}

// parseImportCSV 解析导入文件，按表头定位列
func parseImportCSV(r io.Reader, maxRows int) ([]service.ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, service.NewError(service.KindValidation, "无法读取表头行")
	}

	cols := map[string]int{}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if field, ok := importHeaderAlias[key]; ok {
			cols[field] = i
		}
	}
	if _, ok := cols["email"]; !ok {
		return nil, service.NewError(service.KindValidation, "表头缺少邮箱列")
	}

	pick := func(record []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []service.ImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, service.NewError(service.KindValidation, "文件格式错误: "+err.Error())
		}
		rows = append(rows, service.ImportRow{
			Email:          pick(record, "email"),
			FullName:       pick(record, "full_name"),
			FacilityName:   pick(record, "facility_name"),
			DepartmentName: pick(record, "department_name"),
			SpecialtyName:  pick(record, "specialty_name"),
			Role:           pick(record, "role"),
		})
		if maxRows > 0 && len(rows) > maxRows {
			return nil, service.NewError(service.KindValidation, "导入行数超过上限")
		}
	}
	return rows, nil
}

// AddRoleRequest 追加角色挂接请求
type AddRoleRequest struct {
	Role           string  `json:"role" binding:"required"`
	OrganizationID *string `json:"organization_id"`
	WorkspaceID    *string `json:"workspace_id"`
	FacilityID     *string `json:"facility_id"`
	DepartmentID   *string `json:"department_id"`
	SpecialtyID    *string `json:"specialty_id"`
}

// AddRole 给已有用户追加一个角色挂接
func (h *UserHandler) AddRole(c *gin.Context) {
	var req AddRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	highest, ok := h.creatorHighest(c)
	if !ok {
		return
	}

	userRole, err := h.roles.AddRole(highest, c.Param("id"), model.Role(req.Role), service.RoleScope{
		OrganizationID: req.OrganizationID,
		WorkspaceID:    req.WorkspaceID,
		FacilityID:     req.FacilityID,
		DepartmentID:   req.DepartmentID,
		SpecialtyID:    req.SpecialtyID,
	})
	if err != nil {
		respondServiceError(c, err, "追加角色失败")
		return
	}
	response.Success(c, userRole)
}

// RemoveRole 移除一条角色挂接
func (h *UserHandler) RemoveRole(c *gin.Context) {
	if err := h.roles.RemoveRole(c.Param("role_id")); err != nil {
		respondServiceError(c, err, "移除角色失败")
		return
	}
	response.SuccessWithMessage(c, "已移除", nil)
}

// EffectiveAccess 计算用户在某工作区内对模块的有效权限
func (h *UserHandler) EffectiveAccess(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		response.BadRequest(c, "缺少 workspace_id 参数")
		return
	}

	caps, err := h.resolver.EffectiveAccess(c.Param("id"), workspaceID, c.Param("key"))
	if err != nil {
		respondServiceError(c, err, "权限计算失败")
		return
	}
	response.Success(c, caps)
}
