package model

import (
	"time"
)

// RankTier 职级档位（名称 + 终身碰对数门槛 + 晋升奖励金额）
type RankTier struct {
	Name   string
	Pairs  int
	Reward int64
}

// DefaultRankTable 内置职级表，按门槛升序排列
// 配置文件中的 business.ranks 非空时覆盖本表
var DefaultRankTable = []RankTier{
	{Name: "Rookie", Pairs: 0, Reward: 0},
	{Name: "Bronze", Pairs: 25, Reward: 1000},
	{Name: "Silver", Pairs: 100, Reward: 5000},
	{Name: "Gold", Pairs: 500, Reward: 20000},
	{Name: "Platinum", Pairs: 2000, Reward: 50000},
	{Name: "Diamond", Pairs: 10000, Reward: 200000},
	{Name: "National Director", Pairs: 50000, Reward: 1000000},
}

// ResolveRankIndex 返回 totalPairs 能达到的最高档位下标
// 即"不超过 totalPairs 的最后一个门槛"；表很小，线性扫描即可
func ResolveRankIndex(table []RankTier, totalPairs int) int {
	idx := 0
	for i, tier := range table {
		if totalPairs >= tier.Pairs {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// RankIndexOf 返回职级名称在表中的下标，未知名称视为最低档
func RankIndexOf(table []RankTier, name string) int {
	for i, tier := range table {
		if tier.Name == name {
			return i
		}
	}
	return 0
}

// RankChange 职级变更记录表，每跨越一个档位一行
// rewarded 由管理员确认晋升奖励发放后置位，只升不降
type RankChange struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID      int64     `gorm:"index;not null" json:"member_id"`
	FromRank      string    `gorm:"type:varchar(32);not null" json:"from_rank"`
	ToRank        string    `gorm:"type:varchar(32);not null" json:"to_rank"`
	PairsAtChange int       `gorm:"not null" json:"pairs_at_change"`
	Rewarded      bool      `gorm:"not null;default:false" json:"rewarded"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RankChange) TableName() string {
	return "rank_change"
}
