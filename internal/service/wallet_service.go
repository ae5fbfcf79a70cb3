package service

import (
	"context"
	"errors"
	"fmt"

	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
	"mlmsystem/pkg/idgen"

	"gorm.io/gorm"
)

type WalletService struct {
	db         *gorm.DB
	walletRepo *repository.WalletRepository
	transRepo  *repository.TransactionRepository
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{
		db:         db,
		walletRepo: repository.NewWalletRepository(db),
		transRepo:  repository.NewTransactionRepository(db),
	}
}

func (s *WalletService) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	wallet, err := s.walletRepo.GetByMemberID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *WalletService) GetWallet(ctx context.Context, memberID int64) (*model.Wallet, error) {
	return s.walletRepo.GetOrCreate(ctx, nil, memberID)
}

// Recharge 充值（简化版，实际应该走支付渠道回调）
// 入账和流水同事务，保持 balance == Σ(amount) 恒等式
func (s *WalletService) Recharge(ctx context.Context, memberID int64, amount int64) error {
	if amount <= 0 {
		return errors.New("充值金额必须大于0")
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, nil, memberID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.walletRepo.Increase(ctx, tx, memberID, amount); err != nil {
			return err
		}
		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			MemberID:      memberID,
			RefNo:         idgen.GenerateOrderNo(),
			Amount:        amount,
			Type:          model.TransactionTypeRecharge,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance + amount,
			Remark:        "充值",
		}
		if err := s.transRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}
		return nil
	})
}

func (s *WalletService) ListTransactions(ctx context.Context, memberID int64, page, pageSize int) ([]*model.WalletTransaction, int64, error) {
	return s.transRepo.ListByMemberID(ctx, memberID, page, pageSize)
}
