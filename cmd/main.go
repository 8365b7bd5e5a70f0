package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"clinic-admin-server/internal/config"
	"clinic-admin-server/internal/handler"
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	migrate := flag.Bool("migrate", false, "是否执行数据库迁移")
	initAdmin := flag.Bool("init-admin", false, "初始化超级管理员账号")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库
	if err := model.InitDB(&cfg.Database); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	log.Println("数据库连接成功")

	// 自动执行数据库迁移（确保表结构是最新的）
	log.Println("检查数据库表结构...")
	if err := model.AutoMigrate(); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}

	// 播种 core 模块和默认分类
	if err := seedDefaults(); err != nil {
		log.Fatalf("初始化基础数据失败: %v", err)
	}

	// 数据库迁移（仅迁移模式）
	if *migrate {
		log.Println("数据库迁移完成")
		os.Exit(0)
	}

	// 初始化超级管理员账号
	if *initAdmin {
		initSuperAdmin()
		os.Exit(0)
	}

	// 创建 Gin 引擎
	r := gin.New()

	// 设置路由
	handler.SetupRouter(r)

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if cfg.Server.TLS.Enabled {
		log.Printf("服务器启动在 https://%s", addr)
		if err := r.RunTLS(addr, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil {
			log.Fatalf("服务器启动失败: %v", err)
		}
		return
	}
	log.Printf("服务器启动在 http://%s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}

// seedDefaults 保证 core 模块和系统默认分类存在
func seedDefaults() error {
	if err := service.NewModuleService(model.DB).SeedCoreModule(); err != nil {
		return err
	}

	var count int64
	model.DB.Model(&model.Category{}).Where("is_system_default = ?", true).Count(&count)
	if count == 0 {
		category := model.Category{
			Name:            "医疗",
			IsSystemDefault: true,
			IsActive:        true,
		}
		if err := model.DB.Create(&category).Error; err != nil {
			return err
		}
	}
	return nil
}

// initSuperAdmin 创建首个超级管理员
// 开通流程要求创建者角色高于目标角色，首个超管只能在这里直接落库
func initSuperAdmin() {
	log.Println("初始化超级管理员账号...")

	adminEmail := "admin@example.com"
	adminPassword := "admin123"

	var existing model.Account
	if err := model.DB.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		log.Println("超级管理员账号已存在")
		return
	}

	err := model.DB.Transaction(func(tx *gorm.DB) error {
		profile := model.Profile{
			FullName: "超级管理员",
			Email:    adminEmail,
			IsActive: true,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return err
		}

		account := model.Account{
			ProfileID:          profile.ID,
			Email:              adminEmail,
			Status:             model.AccountStatusActive,
			MustChangePassword: true,
		}
		account.ID = profile.ID
		if err := account.SetPassword(adminPassword); err != nil {
			return err
		}
		if err := tx.Create(&account).Error; err != nil {
			return err
		}

		return tx.Create(&model.UserRole{
			UserID: profile.ID,
			Role:   model.RoleSuperAdmin,
		}).Error
	})
	if err != nil {
		log.Fatalf("创建超级管理员失败: %v", err)
	}

	log.Println("超级管理员账号创建成功!")
	log.Println("邮箱: admin@example.com")
	log.Println("密码: admin123")
	log.Println("")
	log.Println("【重要提示】请登录后立即修改默认密码！")
}
