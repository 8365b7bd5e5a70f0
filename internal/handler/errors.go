package handler

import (
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

// respondServiceError 把业务错误映射到统一响应
func respondServiceError(c *gin.Context, err error, fallback string) {
	switch service.KindOf(err) {
	case service.KindValidation, service.KindInvalidScope:
		response.BadRequest(c, err.Error())
	case service.KindLimitExceeded,
		service.KindInvalidHierarchy,
		service.KindHasChildren,
		service.KindHasAssignedUsers,
		service.KindDuplicateUser:
		response.Conflict(c, err.Error())
	case service.KindPermissionDenied:
		response.Forbidden(c, err.Error())
	case service.KindNotFound:
		response.NotFound(c, err.Error())
	default:
		response.ServerError(c, fallback)
	}
}
