package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID          uint   `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo     string `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	UserID      uint   `gorm:"index;not null" json:"user_id"`                             // 用户ID
	Status      string `gorm:"index;not null" json:"status"`                              // 订单状态
	Currency    string `gorm:"not null" json:"currency"`                                  // 币种
	Subtotal    Money  `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`     // 商品小计
	TotalAmount Money  `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 订单总额（创建后冻结）
	AddressID   uint   `gorm:"index" json:"address_id"`                                   // 下单时选择的地址ID

	// 地址快照（下单时冻结，后续地址修改不影响订单）
	Recipient  string `gorm:"not null" json:"recipient"`               // 收件人
	Phone      string `gorm:"type:varchar(32)" json:"phone"`           // 联系电话
	Line1      string `gorm:"not null" json:"line1"`                   // 地址一行
	Line2      string `json:"line2"`                                   // 地址二行
	City       string `gorm:"not null" json:"city"`                    // 城市
	State      string `json:"state"`                                   // 省/州
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`     // 邮编
	Country    string `gorm:"type:varchar(2);not null" json:"country"` // 国家代码

	ClientIP   string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"` // 下单客户端IP
	ExpiresAt  *time.Time     `gorm:"index" json:"expires_at"`                     // 待支付过期时间
	PaidAt     *time.Time     `gorm:"index" json:"paid_at"`                        // 支付时间
	CanceledAt *time.Time     `gorm:"index" json:"canceled_at"`                    // 取消时间
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                     // 创建时间
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`                     // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                              // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
