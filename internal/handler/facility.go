package handler

import (
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type FacilityHandler struct {
	hierarchy *service.HierarchyService
}

func NewFacilityHandler() *FacilityHandler {
	return &FacilityHandler{hierarchy: service.NewHierarchyService(model.DB)}
}

// List 获取场所列表，按工作区过滤
func (h *FacilityHandler) List(c *gin.Context) {
	query := model.DB.Model(&model.Facility{})
	if wsID := c.Query("workspace_id"); wsID != "" {
		query = query.Where("workspace_id = ?", wsID)
	}

	var facilities []model.Facility
	query.Order("name ASC").Find(&facilities)

	response.Success(c, facilities)
}

// Get 获取场所详情，含下属科室
func (h *FacilityHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var facility model.Facility
	if err := model.DB.First(&facility, "id = ?", id).Error; err != nil {
		response.NotFound(c, "场所不存在")
		return
	}

	var departments []model.Department
	model.DB.Where("facility_id = ?", id).Order("name ASC").Find(&departments)

	response.Success(c, gin.H{
		"facility":    facility,
		"departments": departments,
	})
}

// CreateFacilityRequest 创建场所请求
type CreateFacilityRequest struct {
	WorkspaceID string `json:"workspace_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
}

// Create 创建场所，配额按机构下全部工作区合计
func (h *FacilityHandler) Create(c *gin.Context) {
	var req CreateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	facility, err := h.hierarchy.CreateFacility(req.WorkspaceID, req.Name)
	if err != nil {
		respondServiceError(c, err, "创建场所失败")
		return
	}
	response.Success(c, facility)
}

// UpdateFacilityRequest 更新场所请求
type UpdateFacilityRequest struct {
	Name *string `json:"name" binding:"omitempty,min=2,max=100"`
}

// Update 更新场所
func (h *FacilityHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req UpdateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var facility model.Facility
	if err := model.DB.First(&facility, "id = ?", id).Error; err != nil {
		response.NotFound(c, "场所不存在")
		return
	}

	if req.Name != nil {
		if err := model.DB.Model(&facility).Update("name", *req.Name).Error; err != nil {
			response.ServerError(c, "更新场所失败")
			return
		}
	}
	response.SuccessWithMessage(c, "更新成功", nil)
}

// Delete 删除场所，仍有科室时被阻止
func (h *FacilityHandler) Delete(c *gin.Context) {
	if err := h.hierarchy.DeleteFacility(c.Param("id")); err != nil {
		respondServiceError(c, err, "删除场所失败")
		return
	}
	response.SuccessWithMessage(c, "场所已删除", nil)
}
