package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Profile 用户档案 - 每个认证用户一条
type Profile struct {
	BaseModel
	FullName string `gorm:"type:varchar(100);not null" json:"full_name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// 关联
	Roles []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Account 登录账号 - 身份凭据，与 Profile 一一对应
// 账号创建由 service.IdentityCreator 封装，保持身份侧为可替换的外部协作方
type Account struct {
	BaseModel
	ProfileID string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"profile_id"`
	Email     string        `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string        `gorm:"type:varchar(255);not null" json:"-"`
	Status    AccountStatus `gorm:"type:varchar(20);default:active" json:"status"`

	// 系统分配初始密码后强制首次登录修改
	MustChangePassword bool       `gorm:"default:false" json:"must_change_password"`
	LastLoginAt        *time.Time `json:"last_login_at"`
	LastLoginIP        string     `gorm:"type:varchar(45)" json:"last_login_ip"`

	// 关联
	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

// AccountStatus 账号状态
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"   // 正常
	AccountStatusDisabled AccountStatus = "disabled" // 已禁用
)

func (Account) TableName() string {
	return "accounts"
}

// SetPassword 设置密码（bcrypt 加密）
func (a *Account) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.Password = string(hashedPassword)
	return nil
}

// CheckPassword 验证密码
func (a *Account) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password))
	return err == nil
}
