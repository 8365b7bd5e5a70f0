package handler

import (
	"errors"

	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// List 获取科室分类列表
func (h *CategoryHandler) List(c *gin.Context) {
	query := model.DB.Model(&model.Category{})
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var categories []model.Category
	query.Order("name ASC").Find(&categories)

	response.Success(c, categories)
}

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=2,max=50"`
}

// Create 创建分类，名称全局唯一
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var existing model.Category
	if err := model.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		response.Conflict(c, "分类名称已存在")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		response.ServerError(c, "查询分类失败")
		return
	}

	category := model.Category{Name: req.Name, IsActive: true}
	if err := model.DB.Create(&category).Error; err != nil {
		response.ServerError(c, "创建分类失败")
		return
	}
	response.Success(c, category)
}

// UpdateCategoryRequest 更新分类请求
type UpdateCategoryRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=50"`
	IsActive *bool   `json:"is_active"`
}

// Update 更新分类，系统默认分类不允许改名或停用
func (h *CategoryHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	var category model.Category
	if err := model.DB.First(&category, "id = ?", id).Error; err != nil {
		response.NotFound(c, "分类不存在")
		return
	}

	if category.IsSystemDefault {
		response.Forbidden(c, "系统默认分类不允许修改")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := model.DB.Model(&category).Updates(updates).Error; err != nil {
			response.ServerError(c, "更新分类失败")
			return
		}
	}
	response.SuccessWithMessage(c, "更新成功", nil)
}

// Delete 删除分类，系统默认分类和仍被科室引用的分类不允许删除
func (h *CategoryHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	var category model.Category
	if err := model.DB.First(&category, "id = ?", id).Error; err != nil {
		response.NotFound(c, "分类不存在")
		return
	}

	if category.IsSystemDefault {
		response.Forbidden(c, "系统默认分类不允许删除")
		return
	}

	var inUse int64
	model.DB.Model(&model.Department{}).Where("category = ?", category.Name).Count(&inUse)
	if inUse > 0 {
		response.Conflict(c, "分类仍被科室使用，不能删除")
		return
	}

	if err := model.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&model.WorkspaceCategory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	}); err != nil {
		response.ServerError(c, "删除分类失败")
		return
	}
	response.SuccessWithMessage(c, "分类已删除", nil)
}
