package repository

import (
	"context"
	"errors"

	"mlmsystem/internal/model"

	"gorm.io/gorm"
)

var ErrRankChangeNotFound = errors.New("职级变更记录不存在")

type RankRepository struct {
	db *gorm.DB
}

func NewRankRepository(db *gorm.DB) *RankRepository {
	return &RankRepository{db: db}
}

func (r *RankRepository) Create(ctx context.Context, tx *gorm.DB, change *model.RankChange) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(change).Error
}

func (r *RankRepository) GetByID(ctx context.Context, id int64) (*model.RankChange, error) {
	var change model.RankChange
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&change).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRankChangeNotFound
		}
		return nil, err
	}
	return &change, nil
}

func (r *RankRepository) ListByMemberID(ctx context.Context, memberID int64) ([]*model.RankChange, error) {
	var changes []*model.RankChange
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at ASC").
		Find(&changes).Error
	return changes, err
}

// ListUnrewarded 管理端：待确认晋升奖励的变更记录
func (r *RankRepository) ListUnrewarded(ctx context.Context, limit int) ([]*model.RankChange, error) {
	var changes []*model.RankChange
	err := r.db.WithContext(ctx).
		Where("rewarded = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

// MarkRewarded 置位奖励已发放，带状态守卫防止重复发放
func (r *RankRepository) MarkRewarded(ctx context.Context, tx *gorm.DB, id int64) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).
		Model(&model.RankChange{}).
		Where("id = ? AND rewarded = ?", id, false).
		Update("rewarded", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRankChangeNotFound
	}
	return nil
}
