package model

import (
	"time"
)

const (
	MatchTypeTwoOne = "2:1"   // 左2右1
	MatchTypeOneTwo = "1:2"   // 左1右2
	MatchTypeMixed  = "MIXED" // 一次结算中两种规则都触发
)

// PairPayoutRecord 碰对结算记录表
// 每次结算产生一行，与 MATCHING_BONUS 流水一一对应，只追加不修改
//
// 【对账恒等式】对任意会员的任意一侧：
//
//	Σ(本表 consumed) + 当前 carry_count + 当前 member_count == member.total_count
//
// two_one_pairs / one_two_pairs 是本次结算各规则的碰对数，是权威口径；
// match_type 只是由二者推导出的展示标签
type PairPayoutRecord struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PayoutNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"payout_no"`
	MemberID      int64     `gorm:"index;not null" json:"member_id"`
	Pairs         int       `gorm:"not null" json:"pairs"`          // 本次结算碰对数
	TwoOnePairs   int       `gorm:"not null" json:"two_one_pairs"`  // 2:1 规则碰对数
	OneTwoPairs   int       `gorm:"not null" json:"one_two_pairs"`  // 1:2 规则碰对数
	LeftConsumed  int       `gorm:"not null" json:"left_consumed"`  // 左侧本次消耗成员数
	RightConsumed int       `gorm:"not null" json:"right_consumed"` // 右侧本次消耗成员数
	Amount        int64     `gorm:"not null" json:"amount"`         // 奖金金额
	MatchType     string    `gorm:"type:varchar(8);not null" json:"match_type"`
	DeferredPairs int       `gorm:"not null;default:0" json:"deferred_pairs"` // 因日封顶被推迟的对数（诊断用）
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PairPayoutRecord) TableName() string {
	return "pair_payout_record"
}

// DeriveMatchType 由两种规则的碰对数推导展示标签
func DeriveMatchType(twoOne, oneTwo int) string {
	switch {
	case twoOne > 0 && oneTwo > 0:
		return MatchTypeMixed
	case oneTwo > 0:
		return MatchTypeOneTwo
	default:
		return MatchTypeTwoOne
	}
}
