package model

import (
	"time"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionTypeRecharge   = "RECHARGE"         // 充值
	TransactionTypePurchase   = "PURCHASE"         // 消费（扣款）
	TransactionTypeDirect     = "DIRECT_BONUS"     // 直推奖
	TransactionTypeMatching   = "MATCHING_BONUS"   // 碰对奖
	TransactionTypeLeadership = "LEADERSHIP_BONUS" // 领导奖（晋升奖励）
	TransactionTypeWithdraw   = "WITHDRAW"         // 提现（负数）及提现驳回返还（正数）
)

// ============================================================================
// 钱包流水实体
// ============================================================================

// WalletTransaction 钱包流水表
// 记录钱包的每一笔资金变动，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 每笔流水必须关联业务单号（订单号、结算单号或提现单号）—— 便于对账
// 3. 记录交易前后余额 —— 便于校验余额一致性
type WalletTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	MemberID      int64     `gorm:"index;not null" json:"member_id"`                             // 会员ID
	RefNo         string    `gorm:"type:varchar(64);index;not null" json:"ref_no"`               // 关联业务单号
	Amount        int64     `gorm:"not null" json:"amount"`                                      // 金额（正数入账，负数出账）
	Type          string    `gorm:"type:varchar(20);index;not null" json:"type"`                 // 交易类型
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`                              // 交易前余额
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`                               // 交易后余额
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`                             // 备注
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
