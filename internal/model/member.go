package model

import (
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

const (
	PositionRoot  = "ROOT"
	PositionLeft  = "LEFT"
	PositionRight = "RIGHT"
)

// Member 会员表（安置树节点）
// 每个会员同时挂在两棵关系上：
//  1. 安置树：parent_id + position 决定二叉树中的物理位置，碰对奖沿这棵树计算
//  2. 推荐关系：sponsor_id 指向推荐人，只影响直推奖，与安置位置无关
//     （A 推荐的人可以因为 A 的两条腿已满而被安置到 B 下面）
//
// 【计数器约定】
// left_member_count / right_member_count 只保存"尚未结算"的新增成员数，
// 结算时被消耗的部分进入 pair_payout_record，剩余进入 carry；
// left_total_count / right_total_count 是该侧历史累计激活成员数，只增不减，
// 用于对账恒等式：Σ(payout.consumed) + carry + member_count == total_count
type Member struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	MemberNo  string `gorm:"type:varchar(64);uniqueIndex;not null" json:"member_no"`
	Username  string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email     string `gorm:"type:varchar(128);not null" json:"email"`
	Role      string `gorm:"type:varchar(16);not null;default:USER" json:"role"`
	ParentID  *int64 `gorm:"uniqueIndex:idx_parent_slot" json:"parent_id"` // 安置树父节点，根节点为空
	Position  string `gorm:"type:varchar(8);uniqueIndex:idx_parent_slot;not null" json:"position"`
	SponsorID *int64 `gorm:"index" json:"sponsor_id"` // 推荐人，直推奖受益人

	LeftMemberCount  int   `gorm:"not null;default:0" json:"left_member_count"`  // 左侧未结算成员数
	RightMemberCount int   `gorm:"not null;default:0" json:"right_member_count"` // 右侧未结算成员数
	LeftCarryCount   int   `gorm:"not null;default:0" json:"left_carry_count"`   // 左侧上次结算后结转成员数
	RightCarryCount  int   `gorm:"not null;default:0" json:"right_carry_count"`  // 右侧上次结算后结转成员数
	LeftBV           int64 `gorm:"not null;default:0" json:"left_bv"`            // 左侧累计业绩 BV
	RightBV          int64 `gorm:"not null;default:0" json:"right_bv"`           // 右侧累计业绩 BV
	LeftTotalCount   int   `gorm:"not null;default:0" json:"left_total_count"`   // 左侧历史累计激活成员数
	RightTotalCount  int   `gorm:"not null;default:0" json:"right_total_count"`  // 右侧历史累计激活成员数
	TotalPairs       int   `gorm:"not null;default:0" json:"total_pairs"`        // 终身碰对数，驱动职级

	Rank      string    `gorm:"type:varchar(32);not null" json:"rank"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`  // 首次合格消费后激活，激活时才向上计数
	IsBlocked bool      `gorm:"not null;default:false" json:"is_blocked"` // 软禁用，不物理删除
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "member"
}

// OppositePosition 返回另一条腿
func OppositePosition(position string) string {
	if position == PositionLeft {
		return PositionRight
	}
	return PositionLeft
}
