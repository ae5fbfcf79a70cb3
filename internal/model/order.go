package model

import (
	"time"
)

const (
	OrderStatusCreated = "CREATED"
	OrderStatusPaying  = "PAYING"
	OrderStatusPaid    = "PAID"
	OrderStatusFailed  = "FAILED"
	OrderStatusClosed  = "CLOSED"
)

var ValidOrderTransitions = map[string][]string{
	OrderStatusCreated: {OrderStatusPaying, OrderStatusClosed},
	OrderStatusPaying:  {OrderStatusPaid, OrderStatusFailed},
}

func CanOrderTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidOrderTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// PurchaseOrder 消费订单表
// 合格消费是整个奖金引擎的触发事件：支付成功后发放直推奖、
// 沿安置树向上累计成员数/BV，并投递碰对结算任务
type PurchaseOrder struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNo   string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_no"`
	RequestID string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID，客户端生成
	MemberID  int64      `gorm:"index;not null" json:"member_id"`
	ProductID string     `gorm:"type:varchar(64);not null" json:"product_id"`
	Amount    int64      `gorm:"not null" json:"amount"`  // 支付金额
	BV        int64      `gorm:"not null" json:"bv"`      // 本单产生的业绩 BV
	Activated bool       `gorm:"not null" json:"activated"` // 本单是否触发了会员激活
	Status    string     `gorm:"type:varchar(20);index;not null" json:"status"`
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_order"
}
