package model

import (
	"time"
)

const (
	TaskStatusPending = "PENDING"
	TaskStatusDone    = "DONE"
	TaskStatusFailed  = "FAILED"
)

// MatchingTask 碰对结算任务表
// 支付事务内为每个计数器发生变化的上级写入一条任务，由后台 worker 异步消费，
// 把"支付确认"和"奖金计算"解耦。投递语义是 at-least-once：
// 任务可能被重复执行，结算逻辑必须基于持久化计数器幂等重算
type MatchingTask struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID   int64     `gorm:"index;not null" json:"member_id"`                // 待结算的上级会员
	OrderNo    string    `gorm:"type:varchar(64);index;not null" json:"order_no"` // 触发本任务的订单
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MatchingTask) TableName() string {
	return "matching_task"
}
