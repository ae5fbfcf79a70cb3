package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"mlmsystem/internal/config"
	"mlmsystem/internal/engine"
	"mlmsystem/internal/infrastructure/lock"
	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
	"mlmsystem/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// BonusService 碰对奖结算服务
//
// 【正确性核心】结算是"读计数器 -> 纯函数计算 -> 写计数器/结算单/流水"的
// 非原子序列，同一会员的两次并发结算读到相同旧值会重复发奖。
// 两层防护：
//  1. 按会员维度的 Redis 分布式锁串行化整个结算
//  2. 计数器落库 UPDATE 带读取值守卫（SettleCounters），锁失效兜底
//
// 结算对重复投递是幂等的：一切从持久化计数器重算，
// 第一次结算消耗完成员后，立刻重跑只会得到 0 对、不产生任何写入
type BonusService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	memberRepo  *repository.MemberRepository
	walletRepo  *repository.WalletRepository
	transRepo   *repository.TransactionRepository
	payoutRepo  *repository.PayoutRepository
	dailyRepo   *repository.DailyCounterRepository
	outboxRepo  *repository.OutboxRepository
	rankService *RankService
}

func NewBonusService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *BonusService {
	return &BonusService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		memberRepo:  repository.NewMemberRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		transRepo:   repository.NewTransactionRepository(db),
		payoutRepo:  repository.NewPayoutRepository(db),
		dailyRepo:   repository.NewDailyCounterRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		rankService: NewRankService(db, cfg),
	}
}

// SettleResult 一次结算的结果，nil 表示本次没有可结算的碰对
type SettleResult struct {
	Payout      *model.PairPayoutRecord `json:"payout"`
	RankChanges []*model.RankChange     `json:"rank_changes,omitempty"`
	Deferred    int                     `json:"deferred"` // 因日封顶推迟的对数
}

// SettleMatching 对某会员执行一次碰对结算（分布式锁入口）
func (s *BonusService) SettleMatching(ctx context.Context, memberID int64) (*SettleResult, error) {
	matchLock := lock.NewMatchLock(s.redisClient, memberID, idgen.GenerateTransactionNo())
	if err := matchLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer matchLock.Unlock(ctx)

	return s.settle(ctx, memberID)
}

// settle 结算主体。计数器守卫冲突时重读重算（有限次），
// 冲突意味着结算期间有新的传播进来，重算只会把新成员也纳入，不会丢
func (s *BonusService) settle(ctx context.Context, memberID int64) (*SettleResult, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.Business.SettleRetryCount; attempt++ {
		result, err := s.settleOnce(ctx, memberID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrCounterConflict) {
			return nil, err
		}
		lastErr = err
		log.Printf("结算计数器冲突，重试: memberID=%d, attempt=%d", memberID, attempt+1)
	}
	return nil, fmt.Errorf("结算重试次数耗尽: %w", lastErr)
}

func (s *BonusService) settleOnce(ctx context.Context, memberID int64) (*SettleResult, error) {
	var result *SettleResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		member, err := s.memberRepo.GetByIDTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member.IsBlocked {
			log.Printf("会员已禁用，跳过结算: memberID=%d", memberID)
			return nil
		}

		leftTotal := member.LeftMemberCount + member.LeftCarryCount
		rightTotal := member.RightMemberCount + member.RightCarryCount

		demand := engine.RemainingPairs(leftTotal, rightTotal)
		if demand == 0 {
			// 两腿凑不出任何一对，不是错误，状态原样保留
			return nil
		}

		// 日封顶：当日剩余额度之外的对数留在结转顺延，区别于"无可碰对"
		day := model.DayKey(time.Now())
		limit := 0
		deferred := 0
		if s.cfg.Business.DailyPairCap > 0 {
			paidToday, err := s.dailyRepo.GetPairCount(ctx, tx, memberID, day)
			if err != nil {
				return err
			}
			limit = s.cfg.Business.DailyPairCap - paidToday
			if limit <= 0 {
				log.Printf("当日碰对已达上限，全部顺延: memberID=%d, day=%s, demand=%d",
					memberID, day, demand)
				return nil
			}
		}

		match := engine.MatchWithLimit(leftTotal, rightTotal, limit)
		if !match.Matched() {
			return nil
		}
		deferred = demand - match.Pairs
		if deferred > 0 {
			log.Printf("日封顶生效，部分顺延: memberID=%d, paid=%d, deferred=%d",
				memberID, match.Pairs, deferred)
		}

		// 未结算成员数清零：消耗部分进结算单，剩余折入结转
		if err := s.memberRepo.SettleCounters(ctx, tx, member, match.CarryLeft, match.CarryRight, match.Pairs); err != nil {
			return err
		}

		amount := int64(match.Pairs) * s.cfg.Business.PairBonus
		payout := &model.PairPayoutRecord{
			PayoutNo:      idgen.GeneratePayoutNo(),
			MemberID:      memberID,
			Pairs:         match.Pairs,
			TwoOnePairs:   match.TwoOnePairs,
			OneTwoPairs:   match.OneTwoPairs,
			LeftConsumed:  match.LeftConsumed,
			RightConsumed: match.RightConsumed,
			Amount:        amount,
			MatchType:     model.DeriveMatchType(match.TwoOnePairs, match.OneTwoPairs),
			DeferredPairs: deferred,
		}
		if err := s.payoutRepo.Create(ctx, tx, payout); err != nil {
			return fmt.Errorf("写入结算单失败: %w", err)
		}

		// 钱包入账和流水必须与结算单同事务，不允许只发钱不留痕
		wallet, err := s.walletRepo.GetOrCreate(ctx, tx, memberID)
		if err != nil {
			return fmt.Errorf("查询钱包失败: %w", err)
		}
		if err := s.walletRepo.Increase(ctx, tx, memberID, amount); err != nil {
			return fmt.Errorf("奖金入账失败: %w", err)
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			MemberID:      memberID,
			RefNo:         payout.PayoutNo,
			Amount:        amount,
			Type:          model.TransactionTypeMatching,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance + amount,
			Remark:        fmt.Sprintf("碰对奖-%d对-%s", match.Pairs, payout.MatchType),
		}
		if err := s.transRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := s.dailyRepo.AddPairs(ctx, tx, memberID, day, match.Pairs); err != nil {
			return fmt.Errorf("更新日计数失败: %w", err)
		}

		rankChanges, err := s.rankService.EvaluateTx(ctx, tx, member, member.TotalPairs+match.Pairs)
		if err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"payout_no":  payout.PayoutNo,
			"member_id":  memberID,
			"pairs":      match.Pairs,
			"amount":     amount,
			"match_type": payout.MatchType,
			"settled_at": time.Now().Format(time.RFC3339),
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: payout.PayoutNo,
			Topic:      s.cfg.Kafka.Topic.BonusResult,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入消息失败: %w", err)
		}

		result = &SettleResult{Payout: payout, RankChanges: rankChanges, Deferred: deferred}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if result != nil {
		log.Printf("碰对结算成功: memberID=%d, payoutNo=%s, pairs=%d, amount=%d",
			memberID, result.Payout.PayoutNo, result.Payout.Pairs, result.Payout.Amount)
	}
	return result, nil
}

func (s *BonusService) ListPayouts(ctx context.Context, memberID int64, page, pageSize int) ([]*model.PairPayoutRecord, int64, error) {
	return s.payoutRepo.ListByMemberID(ctx, memberID, page, pageSize)
}
