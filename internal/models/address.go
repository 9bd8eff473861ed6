package models

import (
	"time"
)

// Address 收货地址表
type Address struct {
	ID         uint      `gorm:"primarykey" json:"id"`                           // 主键
	UserID     uint      `gorm:"not null;index" json:"user_id"`                  // 用户ID
	Recipient  string    `gorm:"not null" json:"recipient"`                      // 收件人
	Phone      string    `gorm:"type:varchar(32);not null" json:"phone"`         // 联系电话
	Line1      string    `gorm:"not null" json:"line1"`                          // 地址一行
	Line2      string    `json:"line2"`                                          // 地址二行
	City       string    `gorm:"not null" json:"city"`                           // 城市
	State      string    `json:"state"`                                          // 省/州
	PostalCode string    `gorm:"type:varchar(20);not null" json:"postal_code"`   // 邮编
	Country    string    `gorm:"type:varchar(2);not null" json:"country"`        // 国家代码（ISO 3166-1 alpha-2）
	IsDefault  bool      `gorm:"not null;default:false;index" json:"is_default"` // 是否默认地址
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt  time.Time `json:"updated_at"`                                     // 更新时间
}

// TableName 指定表名
func (Address) TableName() string {
	return "addresses"
}
