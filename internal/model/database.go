package model

import (
	"clinic-admin-server/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB 初始化数据库连接
func InitDB(cfg *config.DatabaseConfig) error {
	var logLevel logger.LogLevel
	if config.Get().Server.Mode == "debug" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Silent
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true, // 禁用外键约束检查
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	DB = db
	return nil
}

// AutoMigrate 自动迁移数据库表
func AutoMigrate() error {
	return MigrateAll(DB)
}

// MigrateAll 在指定连接上迁移全部表（测试使用内存库时复用）
func MigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// 组织层级
		&Organization{},
		&Workspace{},
		&Facility{},
		&Category{},
		&Department{},
		&WorkspaceDepartment{},
		&WorkspaceCategory{},
		// 用户与角色
		&Profile{},
		&Account{},
		&UserRole{},
		// 模块权限
		&ModuleDefinition{},
		&RoleModuleAccess{},
		&WorkspaceModuleAccess{},
		&UserModuleAccess{},
		// 日志
		&AuditLog{},
	)
}
