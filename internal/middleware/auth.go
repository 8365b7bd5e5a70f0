package middleware

import (
	"strings"

	"clinic-admin-server/internal/config"
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/crypto"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware JWT 认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "缺少认证信息")
			c.Abort()
			return
		}

		// Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := crypto.ParseToken(parts[1], config.Get().JWT.Secret)
		if err != nil {
			response.Unauthorized(c, "无效的认证信息")
			c.Abort()
			return
		}

		// 将用户信息存入上下文
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// ActiveUserMiddleware 校验用户档案仍然有效
func ActiveUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)

		var profile model.Profile
		if err := model.DB.First(&profile, "id = ?", userID).Error; err != nil {
			response.Forbidden(c, "用户不存在")
			c.Abort()
			return
		}
		if !profile.IsActive {
			response.Forbidden(c, "用户已被停用")
			c.Abort()
			return
		}

		c.Next()
	}
}

// ModuleAccessMiddleware 模块能力检查中间件
// capability 取 view/edit/delete/admin 之一；工作区范围从查询参数或表单取 workspace_id
func ModuleAccessMiddleware(moduleKey, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		workspaceID := c.Query("workspace_id")
		if workspaceID == "" {
			workspaceID = c.Param("workspace_id")
		}

		resolver := service.NewPermissionResolver(model.DB)
		caps, err := resolver.EffectiveAccess(userID, workspaceID, moduleKey)
		if err != nil {
			response.ServerError(c, "权限解析失败")
			c.Abort()
			return
		}

		allowed := false
		switch capability {
		case "view":
			allowed = caps.CanView
		case "edit":
			allowed = caps.CanEdit
		case "delete":
			allowed = caps.CanDelete
		case "admin":
			allowed = caps.CanAdmin
		}
		if !allowed {
			response.Forbidden(c, "没有操作权限")
			c.Abort()
			return
		}

		c.Next()
	}
}

// MinRoleMiddleware 最低角色中间件，粗粒度保护管理接口
func MinRoleMiddleware(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := model.Role(GetUserRole(c))
		if role.Authority() < min.Authority() {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetUserEmail 从上下文获取用户邮箱
func GetUserEmail(c *gin.Context) string {
	email, _ := c.Get("email")
	if e, ok := email.(string); ok {
		return e
	}
	return ""
}

// GetUserRole 从上下文获取用户最高角色
func GetUserRole(c *gin.Context) string {
	role, _ := c.Get("role")
	if r, ok := role.(string); ok {
		return r
	}
	return ""
}
