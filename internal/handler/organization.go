package handler

import (
	"strconv"

	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type OrganizationHandler struct {
	hierarchy *service.HierarchyService
}

func NewOrganizationHandler() *OrganizationHandler {
	return &OrganizationHandler{hierarchy: service.NewHierarchyService(model.DB)}
}

// List 获取机构列表
func (h *OrganizationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := model.DB.Model(&model.Organization{})
	if name := c.Query("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}

	var total int64
	query.Count(&total)

	var orgs []model.Organization
	query.Offset((page - 1) * pageSize).Limit(pageSize).Order("name ASC").Find(&orgs)

	response.SuccessPage(c, orgs, total, page, pageSize)
}

// Get 获取机构详情和用量
func (h *OrganizationHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var org model.Organization
	if err := model.DB.Preload("Owner").First(&org, "id = ?", id).Error; err != nil {
		response.NotFound(c, "机构不存在")
		return
	}

	var workspaceCount, facilityCount, userCount int64
	model.DB.Model(&model.Workspace{}).Where("organization_id = ?", id).Count(&workspaceCount)
	model.DB.Model(&model.Facility{}).
		Joins("JOIN workspaces ON workspaces.id = facilities.workspace_id").
		Where("workspaces.organization_id = ?", id).
		Count(&facilityCount)
	model.DB.Model(&model.UserRole{}).
		Distinct("user_roles.user_id").
		Joins("LEFT JOIN workspaces ON workspaces.id = user_roles.workspace_id").
		Joins("LEFT JOIN facilities ON facilities.id = user_roles.facility_id").
		Joins("LEFT JOIN workspaces AS facility_workspaces ON facility_workspaces.id = facilities.workspace_id").
		Where("workspaces.organization_id = ? OR facility_workspaces.organization_id = ?", id, id).
		Count(&userCount)

	response.Success(c, gin.H{
		"id":          org.ID,
		"name":        org.Name,
		"description": org.Description,
		"owner":       org.Owner,
		"created_at":  org.CreatedAt,
		"limits": gin.H{
			"max_workspaces": org.MaxWorkspaces,
			"max_facilities": org.MaxFacilities,
			"max_users":      org.MaxUsers,
		},
		"usage": gin.H{
			"workspaces": workspaceCount,
			"facilities": facilityCount,
			"users":      userCount,
		},
	})
}

// CreateOrganizationRequest 创建机构请求
type CreateOrganizationRequest struct {
	Name          string `json:"name" binding:"required,min=2,max=100"`
	Description   string `json:"description"`
	MaxWorkspaces int    `json:"max_workspaces" binding:"omitempty,min=0"`
	MaxFacilities int    `json:"max_facilities" binding:"omitempty,min=0"`
	MaxUsers      int    `json:"max_users" binding:"omitempty,min=0"`
}

// Create 创建机构
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	org := model.Organization{
		Name:          req.Name,
		Description:   req.Description,
		MaxWorkspaces: req.MaxWorkspaces,
		MaxFacilities: req.MaxFacilities,
		MaxUsers:      req.MaxUsers,
	}
	if err := model.DB.Create(&org).Error; err != nil {
		response.ServerError(c, "创建机构失败")
		return
	}

	response.Success(c, org)
}

// UpdateOrganizationRequest 更新机构请求，配额 0 表示不限
type UpdateOrganizationRequest struct {
	Name          *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description   *string `json:"description"`
	MaxWorkspaces *int    `json:"max_workspaces" binding:"omitempty,min=0"`
	MaxFacilities *int    `json:"max_facilities" binding:"omitempty,min=0"`
	MaxUsers      *int    `json:"max_users" binding:"omitempty,min=0"`
}

// Update 更新机构（部分字段）
func (h *OrganizationHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var org model.Organization
	if err := model.DB.First(&org, "id = ?", id).Error; err != nil {
		response.NotFound(c, "机构不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.MaxWorkspaces != nil {
		updates["max_workspaces"] = *req.MaxWorkspaces
	}
	if req.MaxFacilities != nil {
		updates["max_facilities"] = *req.MaxFacilities
	}
	if req.MaxUsers != nil {
		updates["max_users"] = *req.MaxUsers
	}

	if len(updates) > 0 {
		if err := model.DB.Model(&org).Updates(updates).Error; err != nil {
			response.ServerError(c, "更新机构失败")
			return
		}
	}

	response.SuccessWithMessage(c, "更新成功", nil)
}

// Delete 删除机构，机构下仍有工作区时被阻止
func (h *OrganizationHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.hierarchy.DeleteOrganization(id); err != nil {
		respondServiceError(c, err, "删除机构失败")
		return
	}
	response.SuccessWithMessage(c, "机构已删除", nil)
}
