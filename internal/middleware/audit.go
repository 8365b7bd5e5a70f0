package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"clinic-admin-server/internal/model"

	"github.com/gin-gonic/gin"
)

// AuditMiddleware 审计日志中间件，记录管理接口的写操作
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/health") || strings.Contains(path, "/statistics/") {
			c.Next()
			return
		}

		// 只记录写操作
		method := c.Request.Method
		if method == "GET" {
			c.Next()
			return
		}

		startTime := time.Now()

		// 读取请求体
		var requestBody string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			requestBody = string(bodyBytes)
			// 重新设置请求体供后续使用
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

			// 脱敏处理密码字段
			if strings.Contains(requestBody, "password") {
				requestBody = maskSensitiveData(requestBody)
			}
		}

		c.Next()

		duration := time.Since(startTime).Milliseconds()

		action, resource, resourceID := parseActionFromPath(method, path)

		entry := model.AuditLog{
			UserID:       GetUserID(c),
			UserEmail:    GetUserEmail(c),
			Action:       action,
			Resource:     resource,
			ResourceID:   resourceID,
			Description:  generateDescription(action, resource),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			RequestBody:  truncateString(requestBody, 2000),
			ResponseCode: c.Writer.Status(),
			Duration:     duration,
		}

		// 异步写入日志
		go func() {
			model.DB.Create(&entry)
		}()
	}
}

// parseActionFromPath 从路径解析操作类型
func parseActionFromPath(method, path string) (action, resource, resourceID string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")

	// 解析资源类型
	for _, part := range parts {
		switch part {
		case "organizations":
			resource = model.ResourceOrganization
		case "workspaces":
			resource = model.ResourceWorkspace
		case "facilities":
			resource = model.ResourceFacility
		case "departments":
			resource = model.ResourceDepartment
		case "categories":
			resource = model.ResourceCategory
		case "modules":
			resource = model.ResourceModule
		case "users":
			resource = model.ResourceUser
		case "roles":
			resource = model.ResourceRole
		case "auth":
			resource = model.ResourceAccount
		}
	}

	// 解析操作类型
	switch method {
	case "POST":
		switch {
		case strings.Contains(path, "/login"):
			action = model.ActionLogin
		case strings.Contains(path, "/import"):
			action = model.ActionImport
		case strings.Contains(path, "/assign"):
			action = model.ActionAssign
		case strings.Contains(path, "/reset"):
			action = model.ActionReset
		default:
			action = model.ActionCreate
		}
	case "PUT":
		action = model.ActionUpdate
	case "DELETE":
		action = model.ActionDelete
	default:
		action = method
	}

	// 尝试提取资源ID（UUID 形态的路径段）
	for _, part := range parts {
		if len(part) == 36 && strings.Count(part, "-") == 4 {
			resourceID = part
			break
		}
	}

	return
}

func generateDescription(action, resource string) string {
	actionMap := map[string]string{
		model.ActionCreate: "创建",
		model.ActionUpdate: "更新",
		model.ActionDelete: "删除",
		model.ActionLogin:  "登录",
		model.ActionImport: "导入",
		model.ActionAssign: "分配",
		model.ActionReset:  "重置",
	}
	resourceMap := map[string]string{
		model.ResourceOrganization: "机构",
		model.ResourceWorkspace:    "工作区",
		model.ResourceFacility:     "场所",
		model.ResourceDepartment:   "科室",
		model.ResourceCategory:     "类别",
		model.ResourceModule:       "模块",
		model.ResourceUser:         "用户",
		model.ResourceRole:         "角色",
		model.ResourceAccount:      "账号",
	}

	a := actionMap[action]
	if a == "" {
		a = action
	}
	r := resourceMap[resource]
	if r == "" {
		r = resource
	}

	return a + r
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func maskSensitiveData(data string) string {
	// 简单的密码脱敏
	data = strings.ReplaceAll(data, `"password"`, `"password":"***"`)
	data = strings.ReplaceAll(data, `"old_password"`, `"old_password":"***"`)
	data = strings.ReplaceAll(data, `"new_password"`, `"new_password":"***"`)
	return data
}
