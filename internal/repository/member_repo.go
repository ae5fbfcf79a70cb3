package repository

import (
	"context"
	"errors"

	"mlmsystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrMemberNotFound  = errors.New("会员不存在")
	ErrSlotOccupied    = errors.New("安置位置已被占用")
	ErrCounterConflict = errors.New("计数器版本冲突，请重试")
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(ctx context.Context, tx *gorm.DB, member *model.Member) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(member).Error
}

func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// GetByIDTx 事务内读取，结算时必须用事务连接避免读到事务外快照
func (r *MemberRepository) GetByIDTx(ctx context.Context, tx *gorm.DB, id int64) (*model.Member, error) {
	if tx == nil {
		tx = r.db
	}
	var member model.Member
	err := tx.WithContext(ctx).Where("id = ?", id).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) GetByUsername(ctx context.Context, username string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

// GetChild 读取某个安置位上的直接子节点，空位返回 nil
func (r *MemberRepository) GetChild(ctx context.Context, parentID int64, position string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		Where("parent_id = ? AND position = ?", parentID, position).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) GetChildren(ctx context.Context, parentID int64) ([]*model.Member, error) {
	var members []*model.Member
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("position ASC").
		Find(&members).Error
	return members, err
}

// AddSideCounts 向某个节点的一侧原子累加成员数和 BV
//
// 【关键点】单条 UPDATE 自增，绝不能读出来加完再写回 ——
// 并发消费沿树向上传播时会在公共祖先上竞争，read-modify-write 会丢更新。
// members > 0 时同步累加 total_count，保持对账恒等式的右边
func (r *MemberRepository) AddSideCounts(ctx context.Context, tx *gorm.DB, memberID int64, side string, members int, bv int64) error {
	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{}
	if side == model.PositionLeft {
		if members != 0 {
			updates["left_member_count"] = gorm.Expr("left_member_count + ?", members)
			updates["left_total_count"] = gorm.Expr("left_total_count + ?", members)
		}
		if bv != 0 {
			updates["left_bv"] = gorm.Expr("left_bv + ?", bv)
		}
	} else {
		if members != 0 {
			updates["right_member_count"] = gorm.Expr("right_member_count + ?", members)
			updates["right_total_count"] = gorm.Expr("right_total_count + ?", members)
		}
		if bv != 0 {
			updates["right_bv"] = gorm.Expr("right_bv + ?", bv)
		}
	}

	if len(updates) == 0 {
		return nil
	}

	result := tx.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", memberID).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// SettleCounters 结算后的计数器落库：未结算成员数清零、写入新结转、累加终身碰对数
//
// 【关键点】WHERE 条件带上读取时的四个计数器值做守卫 ——
// 结算期间若有新的传播进来（member_count 变了），本次 UPDATE 影响 0 行，
// 返回 ErrCounterConflict 由调用方重读重算，绝不能覆盖掉并发写入
func (r *MemberRepository) SettleCounters(ctx context.Context, tx *gorm.DB, m *model.Member, carryLeft, carryRight, pairs int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ? AND left_member_count = ? AND right_member_count = ? AND left_carry_count = ? AND right_carry_count = ?",
			m.ID, m.LeftMemberCount, m.RightMemberCount, m.LeftCarryCount, m.RightCarryCount).
		Updates(map[string]interface{}{
			"left_member_count":  0,
			"right_member_count": 0,
			"left_carry_count":   carryLeft,
			"right_carry_count":  carryRight,
			"total_pairs":        gorm.Expr("total_pairs + ?", pairs),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCounterConflict
	}
	return nil
}

func (r *MemberRepository) UpdateRank(ctx context.Context, tx *gorm.DB, memberID int64, rank string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", memberID).
		Update("rank", rank).Error
}

func (r *MemberRepository) Activate(ctx context.Context, tx *gorm.DB, memberID int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", memberID).
		Update("is_active", true).Error
}

func (r *MemberRepository) SetBlocked(ctx context.Context, memberID int64, blocked bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", memberID).
		Update("is_blocked", blocked).Error
}

func (r *MemberRepository) List(ctx context.Context, page, pageSize int) ([]*model.Member, int64, error) {
	var members []*model.Member
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Member{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&members).Error

	return members, total, err
}
