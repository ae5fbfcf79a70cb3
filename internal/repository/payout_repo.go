package repository

import (
	"context"

	"mlmsystem/internal/model"

	"gorm.io/gorm"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(ctx context.Context, tx *gorm.DB, record *model.PairPayoutRecord) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(record).Error
}

func (r *PayoutRepository) ListByMemberID(ctx context.Context, memberID int64, page, pageSize int) ([]*model.PairPayoutRecord, int64, error) {
	var records []*model.PairPayoutRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.PairPayoutRecord{}).Where("member_id = ?", memberID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error

	return records, total, err
}

// ConsumedSums 某会员结算单上历史累计消耗（两侧），报表和对账的口径来源
type ConsumedSums struct {
	LeftConsumed  int `json:"left_consumed"`
	RightConsumed int `json:"right_consumed"`
	TotalPairs    int `json:"total_pairs"`
}

func (r *PayoutRepository) SumConsumedByMemberID(ctx context.Context, memberID int64) (*ConsumedSums, error) {
	var sums struct {
		LeftConsumed  *int
		RightConsumed *int
		TotalPairs    *int
	}
	err := r.db.WithContext(ctx).
		Model(&model.PairPayoutRecord{}).
		Where("member_id = ?", memberID).
		Select("SUM(left_consumed) AS left_consumed, SUM(right_consumed) AS right_consumed, SUM(pairs) AS total_pairs").
		Scan(&sums).Error
	if err != nil {
		return nil, err
	}

	result := &ConsumedSums{}
	if sums.LeftConsumed != nil {
		result.LeftConsumed = *sums.LeftConsumed
	}
	if sums.RightConsumed != nil {
		result.RightConsumed = *sums.RightConsumed
	}
	if sums.TotalPairs != nil {
		result.TotalPairs = *sums.TotalPairs
	}
	return result, nil
}
