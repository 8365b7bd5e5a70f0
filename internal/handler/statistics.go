package handler

import (
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct{}

func NewStatisticsHandler() *StatisticsHandler {
	return &StatisticsHandler{}
}

// Dashboard 管理面板统计
func (h *StatisticsHandler) Dashboard(c *gin.Context) {
	var orgCount, workspaceCount, facilityCount, departmentCount, userCount, moduleCount int64

	model.DB.Model(&model.Organization{}).Count(&orgCount)
	model.DB.Model(&model.Workspace{}).Count(&workspaceCount)
	model.DB.Model(&model.Facility{}).Count(&facilityCount)
	model.DB.Model(&model.Department{}).Count(&departmentCount)
	model.DB.Model(&model.Profile{}).Count(&userCount)
	model.DB.Model(&model.ModuleDefinition{}).Where("is_active = ?", true).Count(&moduleCount)

	// 各角色人数分布
	type roleCount struct {
		Role  string `json:"role"`
		Count int64  `json:"count"`
	}
	var roleCounts []roleCount
	model.DB.Model(&model.UserRole{}).
		Select("role, COUNT(DISTINCT user_id) AS count").
		Group("role").
		Scan(&roleCounts)

	response.Success(c, gin.H{
		"organizations":  orgCount,
		"workspaces":     workspaceCount,
		"facilities":     facilityCount,
		"departments":    departmentCount,
		"users":          userCount,
		"active_modules": moduleCount,
		"role_counts":    roleCounts,
	})
}
