package models

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/aurelia-shop/internal/logger"
)

const fallbackAdminPassword = "admin123"

// InitDefaultAdmin 在管理员表为空时创建默认账号
func InitDefaultAdmin(username, password string) error {
	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if username == "" {
		username = "admin"
	}
	usingFallback := password == "" || password == fallbackAdminPassword
	if password == "" {
		password = fallbackAdminPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	if usingFallback {
		logger.Warnw("default_admin_created_with_fallback_password", "username", username)
	} else {
		logger.Infow("default_admin_created", "username", username)
	}
	return nil
}
