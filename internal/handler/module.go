package handler

import (
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type ModuleHandler struct {
	modules *service.ModuleService
}

func NewModuleHandler() *ModuleHandler {
	return &ModuleHandler{modules: service.NewModuleService(model.DB)}
}

// List 获取功能模块列表
func (h *ModuleHandler) List(c *gin.Context) {
	var modules []model.ModuleDefinition
	model.DB.Order("`key` ASC").Find(&modules)
	response.Success(c, modules)
}

// CreateModuleRequest 注册功能模块请求
type CreateModuleRequest struct {
	Key       string   `json:"key" binding:"required"`
	Name      string   `json:"name" binding:"required"`
	DependsOn []string `json:"depends_on"`
}

// Create 注册功能模块并播种默认角色权限矩阵
func (h *ModuleHandler) Create(c *gin.Context) {
	var req CreateModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	def, err := h.modules.CreateModule(req.Key, req.Name, req.DependsOn)
	if err != nil {
		respondServiceError(c, err, "注册模块失败")
		return
	}
	response.Success(c, def)
}

// SetActiveRequest 模块系统级开关请求
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive 系统级启停模块
// core 模块不能停用，被其他启用模块依赖的模块也不能停用
func (h *ModuleHandler) SetActive(c *gin.Context) {
	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.modules.SetModuleActive(c.Param("key"), *req.Active); err != nil {
		respondServiceError(c, err, "设置模块状态失败")
		return
	}
	response.SuccessWithMessage(c, "设置成功", nil)
}

// RoleMatrix 获取模块的角色权限矩阵
func (h *ModuleHandler) RoleMatrix(c *gin.Context) {
	key := c.Param("key")

	var def model.ModuleDefinition
	if err := model.DB.Where("`key` = ?", key).First(&def).Error; err != nil {
		response.NotFound(c, "模块不存在")
		return
	}

	var rows []model.RoleModuleAccess
	model.DB.Where("module_id = ?", def.ID).Find(&rows)

	response.Success(c, gin.H{
		"module": def,
		"roles":  rows,
	})
}

// SetRoleAccessRequest 设置角色权限请求
type SetRoleAccessRequest struct {
	Role      string `json:"role" binding:"required"`
	CanView   bool   `json:"can_view"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
	CanAdmin  bool   `json:"can_admin"`
}

// SetRoleAccess 设置某角色在模块上的能力组合
func (h *ModuleHandler) SetRoleAccess(c *gin.Context) {
	var req SetRoleAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	role := model.Role(req.Role)
	if !role.Valid() {
		response.BadRequest(c, "无效的角色")
		return
	}

	caps := model.Capabilities{
		CanView:   req.CanView,
		CanEdit:   req.CanEdit,
		CanDelete: req.CanDelete,
		CanAdmin:  req.CanAdmin,
	}
	if err := h.modules.SetRoleAccess(role, c.Param("key"), caps); err != nil {
		respondServiceError(c, err, "设置角色权限失败")
		return
	}
	response.SuccessWithMessage(c, "设置成功", nil)
}

// SetUserOverrideRequest 设置用户级覆盖请求
type SetUserOverrideRequest struct {
	CanView   bool `json:"can_view"`
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
	CanAdmin  bool `json:"can_admin"`
}

// SetUserOverride 设置用户级权限覆盖，整体替换角色合并结果
func (h *ModuleHandler) SetUserOverride(c *gin.Context) {
	var req SetUserOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	caps := model.Capabilities{
		CanView:   req.CanView,
		CanEdit:   req.CanEdit,
		CanDelete: req.CanDelete,
		CanAdmin:  req.CanAdmin,
	}
	if err := h.modules.SetUserOverride(c.Param("id"), c.Param("key"), caps); err != nil {
		respondServiceError(c, err, "设置用户覆盖失败")
		return
	}
	response.SuccessWithMessage(c, "设置成功", nil)
}

// ClearUserOverride 清除用户级权限覆盖，恢复按角色合并
func (h *ModuleHandler) ClearUserOverride(c *gin.Context) {
	if err := h.modules.ClearUserOverride(c.Param("id"), c.Param("key")); err != nil {
		respondServiceError(c, err, "清除用户覆盖失败")
		return
	}
	response.SuccessWithMessage(c, "已清除", nil)
}
