package model

import (
	"time"
)

// DayKey 日封顶计数的自然日键
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// DailyPairCounter 每人每日碰对结算计数（防刷限流）
// 超出 daily_pair_cap 的可碰对数留在 carry 中顺延到次日，不是错误
type DailyPairCounter struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID  int64     `gorm:"uniqueIndex:idx_member_day;not null" json:"member_id"`
	Day       string    `gorm:"type:varchar(10);uniqueIndex:idx_member_day;not null" json:"day"`
	Pairs     int       `gorm:"not null;default:0" json:"pairs"` // 当日已结算对数
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailyPairCounter) TableName() string {
	return "daily_pair_counter"
}

// DailyLeadershipCounter 每人每日领导奖发放计数
type DailyLeadershipCounter struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberID  int64     `gorm:"uniqueIndex:idx_lead_member_day;not null" json:"member_id"`
	Day       string    `gorm:"type:varchar(10);uniqueIndex:idx_lead_member_day;not null" json:"day"`
	Count     int       `gorm:"not null;default:0" json:"count"` // 当日已发放次数
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DailyLeadershipCounter) TableName() string {
	return "daily_leadership_counter"
}
