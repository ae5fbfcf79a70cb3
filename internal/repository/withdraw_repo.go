package repository

import (
	"context"
	"errors"
	"time"

	"mlmsystem/internal/model"

	"gorm.io/gorm"
)

var (
	ErrWithdrawNotFound      = errors.New("提现申请不存在")
	ErrWithdrawStatusInvalid = errors.New("提现状态不合法")
)

type WithdrawRepository struct {
	db *gorm.DB
}

func NewWithdrawRepository(db *gorm.DB) *WithdrawRepository {
	return &WithdrawRepository{db: db}
}

func (r *WithdrawRepository) Create(ctx context.Context, tx *gorm.DB, req *model.WithdrawRequest) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(req).Error
}

func (r *WithdrawRepository) GetByWithdrawNo(ctx context.Context, withdrawNo string) (*model.WithdrawRequest, error) {
	var req model.WithdrawRequest
	err := r.db.WithContext(ctx).Where("withdraw_no = ?", withdrawNo).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *WithdrawRepository) GetByRequestID(ctx context.Context, requestID string) (*model.WithdrawRequest, error) {
	var req model.WithdrawRequest
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *WithdrawRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, withdrawNo string, fromStatus, toStatus string) error {
	if !model.CanWithdrawTransitionTo(fromStatus, toStatus) {
		return ErrWithdrawStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	updates := map[string]interface{}{
		"status": toStatus,
	}
	if toStatus == model.WithdrawStatusPaid {
		now := time.Now()
		updates["paid_at"] = &now
	}

	result := tx.WithContext(ctx).
		Model(&model.WithdrawRequest{}).
		Where("withdraw_no = ? AND status = ?", withdrawNo, fromStatus).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWithdrawStatusInvalid
	}
	return nil
}

func (r *WithdrawRepository) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.WithdrawRequest, int64, error) {
	var requests []*model.WithdrawRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WithdrawRequest{}).Where("status = ?", status)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}

func (r *WithdrawRepository) ListByMemberID(ctx context.Context, memberID int64, page, pageSize int) ([]*model.WithdrawRequest, int64, error) {
	var requests []*model.WithdrawRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&model.WithdrawRequest{}).Where("member_id = ?", memberID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}
