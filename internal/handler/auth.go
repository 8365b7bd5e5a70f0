package handler

import (
	"fmt"
	"time"

	"clinic-admin-server/internal/config"
	"clinic-admin-server/internal/middleware"
	"clinic-admin-server/internal/model"
	"clinic-admin-server/internal/pkg/crypto"
	"clinic-admin-server/internal/pkg/response"
	"clinic-admin-server/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 管理员登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	clientIP := c.ClientIP()
	loginLimiter := service.GetLoginLimiter()
	ipLimiter := service.GetIPLoginLimiter()

	// 检查 IP 是否被锁定
	if locked, remaining := ipLimiter.IsLocked(clientIP); locked {
		response.Error(c, 429, fmt.Sprintf("IP 已被临时锁定，请 %d 分钟后再试", int(remaining.Minutes())+1))
		return
	}

	// 检查账号是否被锁定
	if locked, remaining := loginLimiter.IsLocked(req.Email); locked {
		response.Error(c, 429, fmt.Sprintf("账号已被临时锁定，请 %d 分钟后再试", int(remaining.Minutes())+1))
		return
	}

	var account model.Account
	if err := model.DB.Preload("Profile").Where("email = ?", req.Email).First(&account).Error; err != nil {
		loginLimiter.RecordFailure(req.Email)
		ipLimiter.RecordFailure(clientIP)
		remainingAttempts := loginLimiter.GetRemainingAttempts(req.Email)
		if remainingAttempts > 0 {
			response.Error(c, 401, fmt.Sprintf("邮箱或密码错误，还剩 %d 次尝试机会", remainingAttempts))
		} else {
			response.Error(c, 401, "邮箱或密码错误")
		}
		return
	}

	// 验证密码
	if !account.CheckPassword(req.Password) {
		locked, lockDuration := loginLimiter.RecordFailure(req.Email)
		ipLimiter.RecordFailure(clientIP)
		if locked {
			response.Error(c, 429, fmt.Sprintf("登录失败次数过多，账号已被锁定 %d 分钟", int(lockDuration.Minutes())))
		} else {
			remainingAttempts := loginLimiter.GetRemainingAttempts(req.Email)
			response.Error(c, 401, fmt.Sprintf("邮箱或密码错误，还剩 %d 次尝试机会", remainingAttempts))
		}
		return
	}

	// 检查账号与档案状态
	if account.Status != model.AccountStatusActive {
		response.Error(c, 403, "账号已被禁用")
		return
	}
	if account.Profile != nil && !account.Profile.IsActive {
		response.Error(c, 403, "用户已被停用")
		return
	}

	// 登录成功，清除失败记录
	loginLimiter.RecordSuccess(req.Email)
	ipLimiter.RecordSuccess(clientIP)

	// 更新最后登录时间和IP
	now := time.Now()
	model.DB.Model(&account).Updates(map[string]interface{}{
		"last_login_at": now,
		"last_login_ip": clientIP,
	})

	// 最高角色写入 Token，细粒度检查由权限解析器在每次请求时完成
	var roles []model.UserRole
	model.DB.Where("user_id = ?", account.ProfileID).Find(&roles)
	highest := model.HighestRole(roles)

	token, err := crypto.GenerateToken(account.ProfileID, account.Email, string(highest), config.Get().JWT.Secret, config.Get().JWT.ExpireHours)
	if err != nil {
		response.ServerError(c, "生成Token失败")
		return
	}

	fullName := ""
	if account.Profile != nil {
		fullName = account.Profile.FullName
	}

	response.Success(c, gin.H{
		"token": token,
		"user": gin.H{
			"id":                   account.ProfileID,
			"email":                account.Email,
			"full_name":            fullName,
			"highest_role":         highest,
			"must_change_password": account.MustChangePassword,
		},
	})
}

// GetProfile 获取当前用户信息
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var profile model.Profile
	if err := model.DB.Preload("Roles").First(&profile, "id = ?", userID).Error; err != nil {
		response.NotFound(c, "用户不存在")
		return
	}

	var account model.Account
	model.DB.First(&account, "profile_id = ?", userID)

	response.Success(c, gin.H{
		"id":                   profile.ID,
		"email":                profile.Email,
		"full_name":            profile.FullName,
		"is_active":            profile.IsActive,
		"roles":                profile.Roles,
		"highest_role":         model.HighestRole(profile.Roles),
		"must_change_password": account.MustChangePassword,
		"last_login_at":        account.LastLoginAt,
		"created_at":           profile.CreatedAt,
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword 修改密码，完成后解除首次登录强制修改标记
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if len(req.NewPassword) < config.Get().Security.PasswordMinLength {
		response.BadRequest(c, fmt.Sprintf("密码长度至少 %d 个字符", config.Get().Security.PasswordMinLength))
		return
	}

	var account model.Account
	if err := model.DB.First(&account, "profile_id = ?", userID).Error; err != nil {
		response.NotFound(c, "账号不存在")
		return
	}

	// 验证旧密码
	if !account.CheckPassword(req.OldPassword) {
		response.Error(c, 400, "原密码错误")
		return
	}

	if err := account.SetPassword(req.NewPassword); err != nil {
		response.ServerError(c, "密码加密失败")
		return
	}
	account.MustChangePassword = false

	if err := model.DB.Save(&account).Error; err != nil {
		response.ServerError(c, "修改密码失败")
		return
	}

	response.SuccessWithMessage(c, "密码修改成功", nil)
}
