package service

import (
	"context"
	"encoding/json"
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

// PurchaseService 消费服务
//
// 合格消费是奖金引擎的唯一入口事件，一次支付事务内完成：
//  1. 订单创建与扣款（幂等、乐观锁）
//  2. 直推奖入账（给推荐人，不是安置父节点）
//  3. 首单激活时沿安置树向上累计成员数和 BV（之后的单只加 BV）
//  4. 为计数器变化的每个上级投递碰对结算任务（异步消费）
//  5. 发件箱事件
//
// 支付确认不等奖金计算，结算由 MatchingWorker 异步完成
type PurchaseService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	memberRepo  *repository.MemberRepository
	orderRepo   *repository.OrderRepository
	walletRepo  *repository.WalletRepository
	transRepo   *repository.TransactionRepository
	taskRepo    *repository.TaskRepository
	outboxRepo  *repository.OutboxRepository
}

func NewPurchaseService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *PurchaseService {
	return &PurchaseService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		memberRepo:  repository.NewMemberRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		transRepo:   repository.NewTransactionRepository(db),
		taskRepo:    repository.NewTaskRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

type PurchaseRequest struct {
	RequestID string `json:"request_id" binding:"required"` // 幂等ID，客户端生成
	MemberID  int64  `json:"member_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
}

type PurchaseResponse struct {
	OrderNo   string `json:"order_no"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	BV        int64  `json:"bv"`
	Activated bool   `json:"activated"`
	Message   string `json:"message,omitempty"`
}

// Purchase 执行消费（分布式锁入口）
func (s *PurchaseService) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	// 幂等校验
	existingOrder, err := s.orderRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if existingOrder != nil {
		return &PurchaseResponse{
			OrderNo:   existingOrder.OrderNo,
			Status:    existingOrder.Status,
			Amount:    existingOrder.Amount,
			BV:        existingOrder.BV,
			Activated: existingOrder.Activated,
			Message:   "订单已存在",
		}, nil
	}

	purchaseLock := lock.NewPurchaseLock(s.redisClient, req.MemberID, req.RequestID)
	if err := purchaseLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer purchaseLock.Unlock(ctx)

	// 获取锁后再次检查幂等
	existingOrder, err = s.orderRepo.GetByRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, fmt.Errorf("查询订单失败: %w", err)
	}
	if existingOrder != nil {
		return &PurchaseResponse{
			OrderNo:   existingOrder.OrderNo,
			Status:    existingOrder.Status,
			Amount:    existingOrder.Amount,
			BV:        existingOrder.BV,
			Activated: existingOrder.Activated,
			Message:   "订单已存在",
		}, nil
	}

	return s.doPurchase(ctx, req)
}

// doPurchase 支付主体（锁内执行）
func (s *PurchaseService) doPurchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResponse, error) {
	member, err := s.memberRepo.GetByID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("查询会员失败: %w", err)
	}
	if member.IsBlocked {
		return nil, ErrMemberBlocked
	}

	wallet, err := s.walletRepo.GetOrCreate(ctx, nil, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("获取钱包失败: %w", err)
	}
	if wallet.Balance < req.Amount {
		return nil, repository.ErrBalanceNotEnough
	}

	orderNo := idgen.GenerateOrderNo()
	bv := s.cfg.Business.ProductBV
	activating := !member.IsActive

	order := &model.PurchaseOrder{
		OrderNo:   orderNo,
		RequestID: req.RequestID,
		MemberID:  req.MemberID,
		ProductID: req.ProductID,
		Amount:    req.Amount,
		BV:        bv,
		Activated: activating,
		Status:    model.OrderStatusCreated,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("创建订单失败: %w", err)
		}
		if err := s.orderRepo.UpdateStatus(ctx, tx, orderNo, model.OrderStatusCreated, model.OrderStatusPaying); err != nil {
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		// 扣款
		if err := s.walletRepo.Deduct(ctx, tx, req.MemberID, req.Amount, wallet.Version); err != nil {
			if errors.Is(err, repository.ErrBalanceNotEnough) {
				return repository.ErrBalanceNotEnough
			}
			if errors.Is(err, repository.ErrOptimisticLock) {
				return errors.New("系统繁忙，请重试")
			}
			return fmt.Errorf("扣款失败: %w", err)
		}
		purchaseTrans := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			MemberID:      req.MemberID,
			RefNo:         orderNo,
			Amount:        -req.Amount,
			Type:          model.TransactionTypePurchase,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance - req.Amount,
			Remark:        fmt.Sprintf("消费-%s", req.ProductID),
		}
		if err := s.transRepo.Create(ctx, tx, purchaseTrans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		// 直推奖：每次合格消费给推荐人一笔固定奖金
		if err := s.payDirectBonus(ctx, tx, member, orderNo); err != nil {
			return err
		}

		// 激活与向上传播
		if activating {
			if err := s.memberRepo.Activate(ctx, tx, member.ID); err != nil {
				return fmt.Errorf("激活会员失败: %w", err)
			}
		}
		if err := s.propagate(ctx, tx, member, orderNo, activating, bv); err != nil {
			return err
		}

		if err := s.orderRepo.UpdateStatus(ctx, tx, orderNo, model.OrderStatusPaying, model.OrderStatusPaid); err != nil {
			return fmt.Errorf("更新订单状态失败: %w", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"order_no":   orderNo,
			"member_id":  req.MemberID,
			"amount":     req.Amount,
			"bv":         bv,
			"product_id": req.ProductID,
			"activated":  activating,
			"status":     model.OrderStatusPaid,
			"paid_at":    time.Now().Format(time.RFC3339),
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: orderNo,
			Topic:      s.cfg.Kafka.Topic.PurchaseResult,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("消费成功: orderNo=%s, memberID=%d, amount=%d, bv=%d, activated=%v",
		orderNo, req.MemberID, req.Amount, bv, activating)

	return &PurchaseResponse{
		OrderNo:   orderNo,
		Status:    model.OrderStatusPaid,
		Amount:    req.Amount,
		BV:        bv,
		Activated: activating,
		Message:   "消费成功",
	}, nil
}

// payDirectBonus 给推荐人发直推奖，推荐人已禁用时跳过
func (s *PurchaseService) payDirectBonus(ctx context.Context, tx *gorm.DB, member *model.Member, orderNo string) error {
	if member.SponsorID == nil || s.cfg.Business.DirectBonus <= 0 {
		return nil
	}

	sponsor, err := s.memberRepo.GetByIDTx(ctx, tx, *member.SponsorID)
	if err != nil {
		return fmt.Errorf("查询推荐人失败: %w", err)
	}
	if sponsor.IsBlocked {
		log.Printf("推荐人已禁用，跳过直推奖: sponsorID=%d, orderNo=%s", sponsor.ID, orderNo)
		return nil
	}

	amount := s.cfg.Business.DirectBonus
	sponsorWallet, err := s.walletRepo.GetOrCreate(ctx, tx, sponsor.ID)
	if err != nil {
		return fmt.Errorf("查询推荐人钱包失败: %w", err)
	}
	if err := s.walletRepo.Increase(ctx, tx, sponsor.ID, amount); err != nil {
		return fmt.Errorf("直推奖入账失败: %w", err)
	}

	transaction := &model.WalletTransaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		MemberID:      sponsor.ID,
		RefNo:         orderNo,
		Amount:        amount,
		Type:          model.TransactionTypeDirect,
		BalanceBefore: sponsorWallet.Balance,
		BalanceAfter:  sponsorWallet.Balance + amount,
		Remark:        fmt.Sprintf("直推奖-会员%d", member.ID),
	}
	if err := s.transRepo.Create(ctx, tx, transaction); err != nil {
		return fmt.Errorf("记录流水失败: %w", err)
	}
	return nil
}

// propagate 沿安置树向上累计
//
// 每个祖先一条自增 UPDATE（绝不 read-modify-write）；
// 激活单同时 +1 成员数并投递结算任务，复购单只加 BV。
// 侧别由回溯经过的直接子节点位置决定，与消费者自己的 position 无关
func (s *PurchaseService) propagate(ctx context.Context, tx *gorm.DB, member *model.Member, orderNo string, activating bool, bv int64) error {
	path, err := ancestorPath(ctx, tx, s.memberRepo, member, s.cfg.Business.MaxTreeDepth)
	if err != nil {
		return fmt.Errorf("回溯安置树失败: %w", err)
	}

	memberDelta := 0
	if activating {
		memberDelta = 1
	}

	for _, step := range path {
		if err := s.memberRepo.AddSideCounts(ctx, tx, step.MemberID, step.Side, memberDelta, bv); err != nil {
			return fmt.Errorf("累计上级计数失败: memberID=%d: %w", step.MemberID, err)
		}
		if activating {
			task := &model.MatchingTask{
				MemberID: step.MemberID,
				OrderNo:  orderNo,
				Status:   model.TaskStatusPending,
			}
			if err := s.taskRepo.Create(ctx, tx, task); err != nil {
				return fmt.Errorf("投递结算任务失败: %w", err)
			}
		}
	}
	return nil
}

func (s *PurchaseService) GetOrder(ctx context.Context, orderNo string) (*model.PurchaseOrder, error) {
	return s.orderRepo.GetByOrderNo(ctx, orderNo)
}

func (s *PurchaseService) ListOrders(ctx context.Context, memberID int64, page, pageSize int) ([]*model.PurchaseOrder, int64, error) {
	return s.orderRepo.ListByMemberID(ctx, memberID, page, pageSize)
}
