package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"mlmsystem/internal/config"
	"mlmsystem/internal/infrastructure/lock"
	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
	"mlmsystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// WithdrawService 提现服务
// 申请即扣款（防止审核期间余额被花掉），驳回时原路返还；
// 实际打款走外部网关，这里只做状态流转和账务
type WithdrawService struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cfg          *config.Config
	withdrawRepo *repository.WithdrawRepository
	walletRepo   *repository.WalletRepository
	transRepo    *repository.TransactionRepository
}

func NewWithdrawService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *WithdrawService {
	return &WithdrawService{
		db:           db,
		redisClient:  redisClient,
		cfg:          cfg,
		withdrawRepo: repository.NewWithdrawRepository(db),
		walletRepo:   repository.NewWalletRepository(db),
		transRepo:    repository.NewTransactionRepository(db),
	}
}

type WithdrawApplyRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID
	MemberID  int64  `json:"member_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

// Apply 申请提现（幂等 + 分布式锁）
func (s *WithdrawService) Apply(ctx context.Context, req *WithdrawApplyRequest) (*model.WithdrawRequest, error) {
	existing, err := s.withdrawRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询提现申请失败: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	withdrawLock := lock.NewWithdrawLock(s.redisClient, req.MemberID, req.RequestID)
	if err := withdrawLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer withdrawLock.Unlock(ctx)

	existing, err = s.withdrawRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	return s.doApply(ctx, req)
}

func (s *WithdrawService) doApply(ctx context.Context, req *WithdrawApplyRequest) (*model.WithdrawRequest, error) {
	wallet, err := s.walletRepo.GetByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}
	if wallet.Balance < req.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	withdrawNo := idgen.GenerateWithdrawNo()
	request := &model.WithdrawRequest{
		WithdrawNo: withdrawNo,
		RequestID:  req.RequestID,
		MemberID:   req.MemberID,
		Amount:     req.Amount,
		Status:     model.WithdrawStatusPending,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawRepo.Create(ctx, tx, request); err != nil {
			return fmt.Errorf("创建提现申请失败: %w", err)
		}

		if err := s.walletRepo.Deduct(ctx, tx, req.MemberID, req.Amount, wallet.Version); err != nil {
			if errors.Is(err, repository.ErrOptimisticLock) {
				return errors.New("系统繁忙，请重试")
			}
			return fmt.Errorf("提现扣款失败: %w", err)
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			MemberID:      req.MemberID,
			RefNo:         withdrawNo,
			Amount:        -req.Amount,
			Type:          model.TransactionTypeWithdraw,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance - req.Amount,
			Remark:        "提现申请",
		}
		return s.transRepo.Create(ctx, tx, transaction)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("提现申请成功: withdrawNo=%s, memberID=%d, amount=%d", withdrawNo, req.MemberID, req.Amount)
	return request, nil
}

// Approve 管理员审核通过，等待打款
func (s *WithdrawService) Approve(ctx context.Context, withdrawNo string) error {
	return s.withdrawRepo.UpdateStatus(ctx, nil, withdrawNo, model.WithdrawStatusPending, model.WithdrawStatusApproved)
}

// MarkPaid 网关打款完成后回填
func (s *WithdrawService) MarkPaid(ctx context.Context, withdrawNo string) error {
	return s.withdrawRepo.UpdateStatus(ctx, nil, withdrawNo, model.WithdrawStatusApproved, model.WithdrawStatusPaid)
}

// Reject 驳回并返还余额，返还同样记一条 WITHDRAW 正数流水
func (s *WithdrawService) Reject(ctx context.Context, withdrawNo string, reason string) error {
	request, err := s.withdrawRepo.GetByWithdrawNo(ctx, withdrawNo)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.withdrawRepo.UpdateStatus(ctx, tx, withdrawNo, model.WithdrawStatusPending, model.WithdrawStatusRejected); err != nil {
			return err
		}

		wallet, err := s.walletRepo.GetByMemberIDTx(ctx, tx, request.MemberID)
		if err != nil {
			return err
		}
		if err := s.walletRepo.Increase(ctx, tx, request.MemberID, request.Amount); err != nil {
			return fmt.Errorf("提现返还失败: %w", err)
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			MemberID:      request.MemberID,
			RefNo:         withdrawNo,
			Amount:        request.Amount,
			Type:          model.TransactionTypeWithdraw,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance + request.Amount,
			Remark:        fmt.Sprintf("提现驳回返还-%s", reason),
		}
		return s.transRepo.Create(ctx, tx, transaction)
	})
}

func (s *WithdrawService) ListByMember(ctx context.Context, memberID int64, page, pageSize int) ([]*model.WithdrawRequest, int64, error) {
	return s.withdrawRepo.ListByMemberID(ctx, memberID, page, pageSize)
}

func (s *WithdrawService) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.WithdrawRequest, int64, error) {
	return s.withdrawRepo.ListByStatus(ctx, status, page, pageSize)
}
