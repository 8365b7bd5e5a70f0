package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupAccessTest 准备内存库并挂到全局 model.DB，测试结束后还原
func setupAccessTest(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库随连接销毁，限制为单连接
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, model.MigrateAll(db))
	require.NoError(t, service.NewModuleService(db).SeedCoreModule())

	prev := model.DB
	model.DB = db
	t.Cleanup(func() { model.DB = prev })
	return db
}

// newAccessRouter 模拟带能力检查的管理路由，认证部分直接注入用户 ID
func newAccessRouter(userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
	})
	r.GET("/departments", ModuleAccessMiddleware(model.ModuleKeyCore, "view"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/departments", ModuleAccessMiddleware(model.ModuleKeyCore, "edit"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestModuleAccessMiddlewareStaffCapabilities(t *testing.T) {
	db := setupAccessTest(t)

	staff := &model.Profile{FullName: "前台员工", Email: "staff@clinic.test", IsActive: true}
	require.NoError(t, db.Create(staff).Error)
	require.NoError(t, db.Create(&model.UserRole{UserID: staff.ID, Role: model.RoleStaff}).Error)

	router := newAccessRouter(staff.ID)

	// 员工默认只读
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/departments", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/departments", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestModuleAccessMiddlewareUserOverride(t *testing.T) {
	db := setupAccessTest(t)

	staff := &model.Profile{FullName: "值班员工", Email: "override@clinic.test", IsActive: true}
	require.NoError(t, db.Create(staff).Error)
	require.NoError(t, db.Create(&model.UserRole{UserID: staff.ID, Role: model.RoleStaff}).Error)

	moduleSvc := service.NewModuleService(db)
	require.NoError(t, moduleSvc.SetUserOverride(staff.ID, model.ModuleKeyCore, model.Capabilities{
		CanView: true,
		CanEdit: true,
	}))

	router := newAccessRouter(staff.ID)

	// 覆盖授予编辑后写接口放行
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/departments", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 清除覆盖回到角色默认
	require.NoError(t, moduleSvc.ClearUserOverride(staff.ID, model.ModuleKeyCore))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/departments", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestModuleAccessMiddlewareWorkspaceDisabled(t *testing.T) {
	db := setupAccessTest(t)

	org := &model.Organization{Name: "社区诊所集团"}
	require.NoError(t, db.Create(org).Error)
	ws := &model.Workspace{Name: "门诊部", OrganizationID: org.ID}
	require.NoError(t, db.Create(ws).Error)

	admin := &model.Profile{FullName: "综合管理员", Email: "admin@clinic.test", IsActive: true}
	require.NoError(t, db.Create(admin).Error)
	require.NoError(t, db.Create(&model.UserRole{
		UserID:      admin.ID,
		Role:        model.RoleGeneralAdmin,
		WorkspaceID: &ws.ID,
	}).Error)

	router := newAccessRouter(admin.ID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/departments?workspace_id="+ws.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 工作区停用 core 以外的模块才生效，这里用一个普通模块验证联动
	moduleSvc := service.NewModuleService(db)
	_, err := moduleSvc.CreateModule("scheduling", "排班", nil)
	require.NoError(t, err)
	require.NoError(t, moduleSvc.SetWorkspaceEnabled(ws.ID, "scheduling", false))

	gated := gin.New()
	gated.Use(func(c *gin.Context) {
		c.Set("user_id", admin.ID)
	})
	gated.GET("/schedules", ModuleAccessMiddleware("scheduling", "view"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w = httptest.NewRecorder()
	gated.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules?workspace_id="+ws.ID, nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
