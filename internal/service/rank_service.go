package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mlmsystem/internal/config"
	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
	"mlmsystem/pkg/idgen"

	"gorm.io/gorm"
)

// rankTable 职级表：配置优先，未配置时用内置表
func rankTable(cfg *config.Config) []model.RankTier {
	if cfg == nil || len(cfg.Business.Ranks) == 0 {
		return model.DefaultRankTable
	}
	table := make([]model.RankTier, 0, len(cfg.Business.Ranks))
	for _, tier := range cfg.Business.Ranks {
		table = append(table, model.RankTier{Name: tier.Name, Pairs: tier.Pairs, Reward: tier.Reward})
	}
	return table
}

type RankService struct {
	db          *gorm.DB
	cfg         *config.Config
	memberRepo  *repository.MemberRepository
	rankRepo    *repository.RankRepository
	walletRepo  *repository.WalletRepository
	transRepo   *repository.TransactionRepository
	dailyRepo   *repository.DailyCounterRepository
	outboxRepo  *repository.OutboxRepository
}

func NewRankService(db *gorm.DB, cfg *config.Config) *RankService {
	return &RankService{
		db:          db,
		cfg:         cfg,
		memberRepo:  repository.NewMemberRepository(db),
		rankRepo:    repository.NewRankRepository(db),
		walletRepo:  repository.NewWalletRepository(db),
		transRepo:   repository.NewTransactionRepository(db),
		dailyRepo:   repository.NewDailyCounterRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
	}
}

// EvaluateTx 在事务内重估职级
//
// totalPairs 增加后：找到不超过 totalPairs 的最高档位，严格高于当前职级才晋升。
// 跨多个档位时逐档写 RankChange，保证每条边界都有且只有一行记录。
// 职级只升不降
func (s *RankService) EvaluateTx(ctx context.Context, tx *gorm.DB, member *model.Member, totalPairs int) ([]*model.RankChange, error) {
	table := rankTable(s.cfg)

	currentIdx := model.RankIndexOf(table, member.Rank)
	resolvedIdx := model.ResolveRankIndex(table, totalPairs)
	if resolvedIdx <= currentIdx {
		return nil, nil
	}

	var changes []*model.RankChange
	for i := currentIdx + 1; i <= resolvedIdx; i++ {
		change := &model.RankChange{
			MemberID:      member.ID,
			FromRank:      table[i-1].Name,
			ToRank:        table[i].Name,
			PairsAtChange: totalPairs,
			Rewarded:      false,
		}
		if err := s.rankRepo.Create(ctx, tx, change); err != nil {
			return nil, fmt.Errorf("写入职级变更失败: %w", err)
		}
		changes = append(changes, change)
	}

	newRank := table[resolvedIdx].Name
	if err := s.memberRepo.UpdateRank(ctx, tx, member.ID, newRank); err != nil {
		return nil, fmt.Errorf("更新职级失败: %w", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"member_id":   member.ID,
		"from_rank":   member.Rank,
		"to_rank":     newRank,
		"total_pairs": totalPairs,
		"changed_at":  time.Now().Format(time.RFC3339),
	})
	outboxMsg := &model.OutboxMessage{
		MessageKey: fmt.Sprintf("%d", member.ID),
		Topic:      s.cfg.Kafka.Topic.RankChanged,
		Payload:    string(payload),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return nil, fmt.Errorf("写入消息失败: %w", err)
	}

	log.Printf("职级晋升: memberID=%d, %s -> %s, totalPairs=%d",
		member.ID, member.Rank, newRank, totalPairs)
	return changes, nil
}

// AcknowledgeReward 管理员确认晋升并发放领导奖
//
// rewarded 置位带守卫，重复确认直接报错不会重复发钱；
// 发放受 daily_leadership_cap 日封顶限制
func (s *RankService) AcknowledgeReward(ctx context.Context, changeID int64) error {
	change, err := s.rankRepo.GetByID(ctx, changeID)
	if err != nil {
		return err
	}
	if change.Rewarded {
		return fmt.Errorf("晋升奖励已发放: changeID=%d", changeID)
	}

	table := rankTable(s.cfg)
	reward := table[model.RankIndexOf(table, change.ToRank)].Reward

	day := model.DayKey(time.Now())

	return s.db.Transaction(func(tx *gorm.DB) error {
		if s.cfg.Business.DailyLeadershipCap > 0 {
			count, err := s.dailyRepo.GetLeadershipCount(ctx, tx, change.MemberID, day)
			if err != nil {
				return err
			}
			if count >= s.cfg.Business.DailyLeadershipCap {
				return fmt.Errorf("当日领导奖已达上限: memberID=%d, day=%s", change.MemberID, day)
			}
		}

		if err := s.rankRepo.MarkRewarded(ctx, tx, changeID); err != nil {
			return err
		}

		if reward <= 0 {
			return nil
		}

		wallet, err := s.walletRepo.GetOrCreate(ctx, tx, change.MemberID)
		if err != nil {
			return fmt.Errorf("查询钱包失败: %w", err)
		}
		if err := s.walletRepo.Increase(ctx, tx, change.MemberID, reward); err != nil {
			return fmt.Errorf("发放晋升奖励失败: %w", err)
		}

		transaction := &model.WalletTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			MemberID:      change.MemberID,
			RefNo:         fmt.Sprintf("RANK%d", change.ID),
			Amount:        reward,
			Type:          model.TransactionTypeLeadership,
			BalanceBefore: wallet.Balance,
			BalanceAfter:  wallet.Balance + reward,
			Remark:        fmt.Sprintf("晋升奖励-%s", change.ToRank),
		}
		if err := s.transRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.dailyRepo.AddLeadership(ctx, tx, change.MemberID, day, 1)
	})
}

func (s *RankService) ListRankHistory(ctx context.Context, memberID int64) ([]*model.RankChange, error) {
	return s.rankRepo.ListByMemberID(ctx, memberID)
}

func (s *RankService) ListUnrewarded(ctx context.Context, limit int) ([]*model.RankChange, error) {
	return s.rankRepo.ListUnrewarded(ctx, limit)
}
