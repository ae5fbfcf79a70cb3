package repository

import (
	"context"
	"errors"

	"mlmsystem/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyCounterRepository 日封顶计数（碰对 / 领导奖）
type DailyCounterRepository struct {
	db *gorm.DB
}

func NewDailyCounterRepository(db *gorm.DB) *DailyCounterRepository {
	return &DailyCounterRepository{db: db}
}

// GetPairCount 读取某会员某日已结算对数，无记录视为 0
func (r *DailyCounterRepository) GetPairCount(ctx context.Context, tx *gorm.DB, memberID int64, day string) (int, error) {
	if tx == nil {
		tx = r.db
	}
	var counter model.DailyPairCounter
	err := tx.WithContext(ctx).
		Where("member_id = ? AND day = ?", memberID, day).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Pairs, nil
}

// AddPairs 累加某会员某日结算对数，行不存在时插入
func (r *DailyCounterRepository) AddPairs(ctx context.Context, tx *gorm.DB, memberID int64, day string, pairs int) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"pairs": gorm.Expr("pairs + ?", pairs)}),
		}).
		Create(&model.DailyPairCounter{MemberID: memberID, Day: day, Pairs: pairs}).Error
}

func (r *DailyCounterRepository) GetLeadershipCount(ctx context.Context, tx *gorm.DB, memberID int64, day string) (int, error) {
	if tx == nil {
		tx = r.db
	}
	var counter model.DailyLeadershipCounter
	err := tx.WithContext(ctx).
		Where("member_id = ? AND day = ?", memberID, day).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Count, nil
}

func (r *DailyCounterRepository) AddLeadership(ctx context.Context, tx *gorm.DB, memberID int64, day string, count int) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + ?", count)}),
		}).
		Create(&model.DailyLeadershipCounter{MemberID: memberID, Day: day, Count: count}).Error
}
