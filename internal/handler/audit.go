package handler

import (
	"strconv"

	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct{}

func NewAuditHandler() *AuditHandler {
	return &AuditHandler{}
}

// List 获取操作日志列表
func (h *AuditHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := model.DB.Model(&model.AuditLog{})
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}

	var total int64
	query.Count(&total)

	var logs []model.AuditLog
	query.Offset((page - 1) * pageSize).Limit(pageSize).Order("created_at DESC").Find(&logs)

	response.SuccessPage(c, logs, total, page, pageSize)
}

// Get 获取单条操作日志
func (h *AuditHandler) Get(c *gin.Context) {
	var log model.AuditLog
	if err := model.DB.First(&log, "id = ?", c.Param("id")).Error; err != nil {
		response.NotFound(c, "日志不存在")
		return
	}
	response.Success(c, log)
}
