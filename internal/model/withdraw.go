package model

import (
	"time"
)

const (
	WithdrawStatusPending  = "PENDING"
	WithdrawStatusApproved = "APPROVED"
	WithdrawStatusPaid     = "PAID"
	WithdrawStatusRejected = "REJECTED"
)

var ValidWithdrawTransitions = map[string][]string{
	WithdrawStatusPending:  {WithdrawStatusApproved, WithdrawStatusRejected},
	WithdrawStatusApproved: {WithdrawStatusPaid},
}

func CanWithdrawTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidWithdrawTransitions[currentStatus]
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

// WithdrawRequest 提现申请表
// 申请时即冻结扣款（WITHDRAW 负数流水），驳回时原路返还；
// 打款走外部网关，这里只记录状态流转
type WithdrawRequest struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	WithdrawNo string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"withdraw_no"`
	RequestID  string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"` // 幂等ID
	MemberID   int64      `gorm:"index;not null" json:"member_id"`
	Amount     int64      `gorm:"not null" json:"amount"`
	Status     string     `gorm:"type:varchar(20);index;not null" json:"status"`
	Remark     string     `gorm:"type:varchar(256)" json:"remark"`
	PaidAt     *time.Time `json:"paid_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WithdrawRequest) TableName() string {
	return "withdraw_request"
}
