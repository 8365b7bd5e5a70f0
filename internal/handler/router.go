package handler

import (
	"time"

	"clinic-admin-server/internal/config"
	"clinic-admin-server/internal/middleware"
	"clinic-admin-server/internal/model"

	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(r *gin.Engine) {
	cfg := config.Get()

	// 全局中间件
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(gin.Recovery())

	// 安全响应头
	if cfg.Security.EnableSecurityHeaders {
		r.Use(middleware.SecurityHeadersMiddleware())
	}

	// 速率限制器
	limiter := middleware.NewRateLimiter(100, time.Minute)    // 管理接口：每个账号每分钟100次
	authLimiter := middleware.NewRateLimiter(10, time.Minute) // 登录接口：每个IP每分钟10次

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API 路由组
	api := r.Group("/api")

	// API 健康检查（供 Docker/K8s 使用）
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "clinic-admin-server"})
	})

	// 初始化 Handler
	authHandler := NewAuthHandler()
	orgHandler := NewOrganizationHandler()
	workspaceHandler := NewWorkspaceHandler()
	facilityHandler := NewFacilityHandler()
	departmentHandler := NewDepartmentHandler()
	categoryHandler := NewCategoryHandler()
	moduleHandler := NewModuleHandler()
	userHandler := NewUserHandler()
	statsHandler := NewStatisticsHandler()
	auditHandler := NewAuditHandler()

	// ==================== 公开接口 ====================
	// 登录（更严格的速率限制）
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware(authLimiter))
	{
		auth.POST("/login", authHandler.Login)
	}

	// ==================== 需要认证的接口 ====================
	// 限流放在认证之后，按账号而不是出口 IP 计数
	authenticated := api.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	authenticated.Use(middleware.ActiveUserMiddleware())
	authenticated.Use(middleware.RateLimitMiddleware(limiter))
	{
		// 用户信息
		authenticated.GET("/auth/profile", authHandler.GetProfile)
		authenticated.PUT("/auth/password", authHandler.ChangePassword)
	}

	// 管理台本身由 core 模块治理，按请求性质检查能力位
	canView := middleware.ModuleAccessMiddleware(model.ModuleKeyCore, "view")
	canEdit := middleware.ModuleAccessMiddleware(model.ModuleKeyCore, "edit")
	canDelete := middleware.ModuleAccessMiddleware(model.ModuleKeyCore, "delete")
	canAdmin := middleware.ModuleAccessMiddleware(model.ModuleKeyCore, "admin")

	// ==================== 管理接口 ====================
	admin := authenticated.Group("/admin")
	admin.Use(middleware.AuditMiddleware())
	{
		// 机构管理（仅超级管理员）
		organizations := admin.Group("/organizations")
		organizations.Use(middleware.MinRoleMiddleware(model.RoleSuperAdmin))
		{
			organizations.GET("", canView, orgHandler.List)
			organizations.GET("/:id", canView, orgHandler.Get)
			organizations.POST("", canEdit, orgHandler.Create)
			organizations.PUT("/:id", canEdit, orgHandler.Update)
			organizations.DELETE("/:id", canDelete, orgHandler.Delete)
		}

		// 工作区管理
		workspaces := admin.Group("/workspaces")
		workspaces.Use(middleware.MinRoleMiddleware(model.RoleGeneralAdmin))
		{
			workspaces.GET("", canView, workspaceHandler.List)
			workspaces.GET("/:id", canView, workspaceHandler.Get)
			workspaces.POST("", canEdit, workspaceHandler.Create)
			workspaces.PUT("/:id", canEdit, workspaceHandler.Update)
			workspaces.DELETE("/:id", canDelete, workspaceHandler.Delete)

			// 模板科室与分类挂接
			workspaces.POST("/:id/departments", canEdit, workspaceHandler.AssignDepartment)
			workspaces.POST("/:id/categories", canEdit, workspaceHandler.AssignCategory)

			// 工作区模块开关
			workspaces.GET("/:id/modules", canView, workspaceHandler.ListModules)
			workspaces.PUT("/:id/modules/:key", canAdmin, workspaceHandler.SetModule)
		}

		// 场所管理
		facilities := admin.Group("/facilities")
		facilities.Use(middleware.MinRoleMiddleware(model.RoleWorkplaceSupervisor))
		{
			facilities.GET("", canView, facilityHandler.List)
			facilities.GET("/:id", canView, facilityHandler.Get)
			facilities.POST("", canEdit, facilityHandler.Create)
			facilities.PUT("/:id", canEdit, facilityHandler.Update)
			facilities.DELETE("/:id", canDelete, facilityHandler.Delete)
		}

		// 科室管理
		departments := admin.Group("/departments")
		departments.Use(middleware.MinRoleMiddleware(model.RoleFacilitySupervisor))
		{
			departments.GET("", canView, departmentHandler.List)
			departments.GET("/templates", canView, departmentHandler.Templates)
			departments.GET("/:id", canView, departmentHandler.Get)
			departments.POST("", canEdit, departmentHandler.Create)
			departments.PUT("/:id", canEdit, departmentHandler.Update)
			departments.DELETE("/:id", canDelete, departmentHandler.Delete)
		}

		// 科室分类管理（仅超级管理员）
		categories := admin.Group("/categories")
		categories.Use(middleware.MinRoleMiddleware(model.RoleSuperAdmin))
		{
			categories.GET("", canView, categoryHandler.List)
			categories.POST("", canEdit, categoryHandler.Create)
			categories.PUT("/:id", canEdit, categoryHandler.Update)
			categories.DELETE("/:id", canDelete, categoryHandler.Delete)
		}

		// 功能模块管理（仅超级管理员）
		modules := admin.Group("/modules")
		modules.Use(middleware.MinRoleMiddleware(model.RoleSuperAdmin))
		{
			modules.GET("", canView, moduleHandler.List)
			modules.POST("", canAdmin, moduleHandler.Create)
			modules.PUT("/:key/active", canAdmin, moduleHandler.SetActive)
			modules.GET("/:key/roles", canAdmin, moduleHandler.RoleMatrix)
			modules.PUT("/:key/roles", canAdmin, moduleHandler.SetRoleAccess)
		}

		// 用户管理
		users := admin.Group("/users")
		users.Use(middleware.MinRoleMiddleware(model.RoleDepartmentHead))
		{
			users.GET("", canView, userHandler.List)
			users.GET("/:id", canView, userHandler.Get)
			users.POST("", canEdit, userHandler.Create)
			users.POST("/import", canEdit, userHandler.Import)
			users.POST("/:id/roles", canEdit, userHandler.AddRole)
			users.DELETE("/:id/roles/:role_id", canDelete, userHandler.RemoveRole)
			users.GET("/:id/modules/:key/access", canView, userHandler.EffectiveAccess)

			// 用户级权限覆盖（仅超级管理员）
			override := users.Group("")
			override.Use(middleware.MinRoleMiddleware(model.RoleSuperAdmin))
			{
				override.PUT("/:id/modules/:key/override", canAdmin, moduleHandler.SetUserOverride)
				override.DELETE("/:id/modules/:key/override", canAdmin, moduleHandler.ClearUserOverride)
			}
		}

		// 统计面板
		statistics := admin.Group("/statistics")
		statistics.Use(middleware.MinRoleMiddleware(model.RoleGeneralAdmin))
		{
			statistics.GET("/dashboard", canView, statsHandler.Dashboard)
		}

		// 操作日志（仅超级管理员）
		audits := admin.Group("/audit-logs")
		audits.Use(middleware.MinRoleMiddleware(model.RoleSuperAdmin))
		{
			audits.GET("", canView, auditHandler.List)
			audits.GET("/:id", canView, auditHandler.Get)
		}
	}
}
