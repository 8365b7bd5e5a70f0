package handler

import (
	"strconv"

	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type WorkspaceHandler struct {
	hierarchy *service.HierarchyService
	modules   *service.ModuleService
}

func NewWorkspaceHandler() *WorkspaceHandler {
	return &WorkspaceHandler{
		hierarchy: service.NewHierarchyService(model.DB),
		modules:   service.NewModuleService(model.DB),
	}
}

// List 获取工作区列表
func (h *WorkspaceHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := model.DB.Model(&model.Workspace{})
	if orgID := c.Query("organization_id"); orgID != "" {
		query = query.Where("organization_id = ?", orgID)
	}
	if name := c.Query("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}

	var total int64
	query.Count(&total)

	var workspaces []model.Workspace
	query.Offset((page - 1) * pageSize).Limit(pageSize).Order("created_at DESC").Find(&workspaces)

	response.SuccessPage(c, workspaces, total, page, pageSize)
}

// Get 获取工作区详情，含场所和已挂接的模板科室、分类
func (h *WorkspaceHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var ws model.Workspace
	if err := model.DB.First(&ws, "id = ?", id).Error; err != nil {
		response.NotFound(c, "工作区不存在")
		return
	}

	var facilities []model.Facility
	model.DB.Where("workspace_id = ?", id).Order("name ASC").Find(&facilities)

	var departments []model.Department
	model.DB.Model(&model.Department{}).
		Joins("JOIN workspace_departments ON workspace_departments.department_id = departments.id").
		Where("workspace_departments.workspace_id = ?", id).
		Find(&departments)

	var categories []model.Category
	model.DB.Model(&model.Category{}).
		Joins("JOIN workspace_categories ON workspace_categories.category_id = categories.id").
		Where("workspace_categories.workspace_id = ?", id).
		Find(&categories)

	response.Success(c, gin.H{
		"workspace":  ws,
		"facilities": facilities,
		"templates":  departments,
		"categories": categories,
	})
}

// CreateWorkspaceRequest 创建工作区请求
type CreateWorkspaceRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
}

// Create 创建工作区，受机构配额限制
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ws, err := h.hierarchy.CreateWorkspace(req.OrganizationID, req.Name)
	if err != nil {
		respondServiceError(c, err, "创建工作区失败")
		return
	}
	response.Success(c, ws)
}

// UpdateWorkspaceRequest 更新工作区请求
type UpdateWorkspaceRequest struct {
	Name              *string `json:"name" binding:"omitempty,min=2,max=100"`
	MaxVacationSplits *int    `json:"max_vacation_splits" binding:"omitempty,min=1"`
}

// Update 更新工作区
func (h *WorkspaceHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var ws model.Workspace
	if err := model.DB.First(&ws, "id = ?", id).Error; err != nil {
		response.NotFound(c, "工作区不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.MaxVacationSplits != nil {
		updates["max_vacation_splits"] = *req.MaxVacationSplits
	}
	if len(updates) > 0 {
		if err := model.DB.Model(&ws).Updates(updates).Error; err != nil {
			response.ServerError(c, "更新工作区失败")
			return
		}
	}

	response.SuccessWithMessage(c, "更新成功", nil)
}

// Delete 删除工作区，仍有场所时被阻止
func (h *WorkspaceHandler) Delete(c *gin.Context) {
	if err := h.hierarchy.DeleteWorkspace(c.Param("id")); err != nil {
		respondServiceError(c, err, "删除工作区失败")
		return
	}
	response.SuccessWithMessage(c, "工作区已删除", nil)
}

// AssignDepartmentRequest 挂接模板科室请求
type AssignDepartmentRequest struct {
	DepartmentID string `json:"department_id" binding:"required"`
}

// AssignDepartment 将模板科室挂接到工作区，重复挂接幂等
func (h *WorkspaceHandler) AssignDepartment(c *gin.Context) {
	var req AssignDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.hierarchy.AssignTemplateDepartmentToWorkspace(c.Param("id"), req.DepartmentID); err != nil {
		respondServiceError(c, err, "挂接模板科室失败")
		return
	}
	response.SuccessWithMessage(c, "挂接成功", nil)
}

// AssignCategoryRequest 挂接分类请求
type AssignCategoryRequest struct {
	CategoryID string `json:"category_id" binding:"required"`
}

// AssignCategory 将科室分类挂接到工作区
func (h *WorkspaceHandler) AssignCategory(c *gin.Context) {
	var req AssignCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.hierarchy.AssignCategoryToWorkspace(c.Param("id"), req.CategoryID); err != nil {
		respondServiceError(c, err, "挂接分类失败")
		return
	}
	response.SuccessWithMessage(c, "挂接成功", nil)
}

// SetModuleRequest 工作区模块开关请求
type SetModuleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetModule 启用或停用工作区内的某个功能模块
func (h *WorkspaceHandler) SetModule(c *gin.Context) {
	var req SetModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.modules.SetWorkspaceEnabled(c.Param("id"), c.Param("key"), *req.Enabled); err != nil {
		respondServiceError(c, err, "设置工作区模块失败")
		return
	}
	response.SuccessWithMessage(c, "设置成功", nil)
}

// ListModules 列出工作区的模块启用状态
func (h *WorkspaceHandler) ListModules(c *gin.Context) {
	id := c.Param("id")

	var ws model.Workspace
	if err := model.DB.First(&ws, "id = ?", id).Error; err != nil {
		response.NotFound(c, "工作区不存在")
		return
	}

	var rows []model.WorkspaceModuleAccess
	model.DB.Where("workspace_id = ?", id).Find(&rows)

	response.Success(c, rows)
}
