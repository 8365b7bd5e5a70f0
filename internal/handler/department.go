package handler

import (
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type DepartmentHandler struct {
	hierarchy *service.HierarchyService
}

func NewDepartmentHandler() *DepartmentHandler {
	return &DepartmentHandler{hierarchy: service.NewHierarchyService(model.DB)}
}

// List 获取科室列表，支持按场所、分类、是否模板过滤
func (h *DepartmentHandler) List(c *gin.Context) {
	query := model.DB.Model(&model.Department{})
	if facilityID := c.Query("facility_id"); facilityID != "" {
		query = query.Where("facility_id = ?", facilityID)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("template") == "true" {
		query = query.Where("is_template = ?", true)
	}

	var departments []model.Department
	query.Order("name ASC").Find(&departments)

	response.Success(c, departments)
}

// Templates 获取模板科室列表
func (h *DepartmentHandler) Templates(c *gin.Context) {
	var departments []model.Department
	model.DB.Where("is_template = ?", true).Order("name ASC").Find(&departments)
	response.Success(c, departments)
}

// Get 获取科室详情，含子科室
func (h *DepartmentHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var dept model.Department
	if err := model.DB.First(&dept, "id = ?", id).Error; err != nil {
		response.NotFound(c, "科室不存在")
		return
	}

	var children []model.Department
	model.DB.Where("parent_department_id = ?", id).Order("name ASC").Find(&children)

	response.Success(c, gin.H{
		"department":     dept,
		"subdepartments": children,
	})
}

// CreateDepartmentRequest 创建科室请求
// facility_id 为空且 is_template 为真时创建模板科室
type CreateDepartmentRequest struct {
	Name               string  `json:"name" binding:"required"`
	Category           string  `json:"category" binding:"required"`
	FacilityID         *string `json:"facility_id"`
	IsTemplate         bool    `json:"is_template"`
	ParentDepartmentID *string `json:"parent_department_id"`
	MinStaffing        int     `json:"min_staffing" binding:"omitempty,min=1"`
}

// Create 创建科室或子科室
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	dept, err := h.hierarchy.CreateDepartment(service.CreateDepartmentInput{
		Name:               req.Name,
		Category:           req.Category,
		FacilityID:         req.FacilityID,
		IsTemplate:         req.IsTemplate,
		ParentDepartmentID: req.ParentDepartmentID,
		MinStaffing:        req.MinStaffing,
	})
	if err != nil {
		respondServiceError(c, err, "创建科室失败")
		return
	}
	response.Success(c, dept)
}

// UpdateDepartmentRequest 更新科室请求
type UpdateDepartmentRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	MinStaffing *int    `json:"min_staffing" binding:"omitempty,min=1"`
}

// Update 更新科室
func (h *DepartmentHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var dept model.Department
	if err := model.DB.First(&dept, "id = ?", id).Error; err != nil {
		response.NotFound(c, "科室不存在")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.MinStaffing != nil {
		updates["min_staffing"] = *req.MinStaffing
	}
	if len(updates) > 0 {
		if err := model.DB.Model(&dept).Updates(updates).Error; err != nil {
			response.ServerError(c, "更新科室失败")
			return
		}
	}
	response.SuccessWithMessage(c, "更新成功", nil)
}

// Delete 删除科室，仍有子科室或用户挂接时被阻止
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.hierarchy.DeleteDepartment(c.Param("id")); err != nil {
		respondServiceError(c, err, "删除科室失败")
		return
	}
	response.SuccessWithMessage(c, "科室已删除", nil)
}
