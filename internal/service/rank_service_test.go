package service

import (
	"context"
	"testing"

	"mlmsystem/internal/config"
	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"

	"gorm.io/gorm"
)

func TestEvaluateTxMultiTier(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewRankService(db, cfg)
	memberRepo := repository.NewMemberRepository(db)
	ctx := context.Background()

	m := &model.Member{
		MemberNo: "RANK001", Username: "climber", Email: "r@example.com",
		Role: model.RoleUser, Position: model.PositionRoot,
		Rank: model.DefaultRankTable[0].Name,
	}
	if err := memberRepo.Create(ctx, nil, m); err != nil {
		t.Fatalf("创建会员失败: %v", err)
	}

	// 一次结算从 0 冲到 120 对，跨 Bronze(25) 和 Silver(100) 两档
	var changes []*model.RankChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		changes, err = svc.EvaluateTx(ctx, tx, m, 120)
		return err
	})
	if err != nil {
		t.Fatalf("EvaluateTx: %v", err)
	}

	if len(changes) != 2 {
		t.Fatalf("应逐档产生 2 条变更, got %d", len(changes))
	}
	if changes[0].FromRank != "Rookie" || changes[0].ToRank != "Bronze" {
		t.Errorf("第一条 = %s->%s, want Rookie->Bronze", changes[0].FromRank, changes[0].ToRank)
	}
	if changes[1].FromRank != "Bronze" || changes[1].ToRank != "Silver" {
		t.Errorf("第二条 = %s->%s, want Bronze->Silver", changes[1].FromRank, changes[1].ToRank)
	}

	after, _ := memberRepo.GetByID(ctx, m.ID)
	if after.Rank != "Silver" {
		t.Errorf("rank = %s, want Silver", after.Rank)
	}

	t.Run("职级只升不降", func(t *testing.T) {
		var again []*model.RankChange
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			// 传入低于当前档位的碰对数（理论上不会发生），不应降级
			again, err = svc.EvaluateTx(ctx, tx, after, 30)
			return err
		})
		if err != nil {
			t.Fatalf("EvaluateTx: %v", err)
		}
		if again != nil {
			t.Errorf("不应产生降级变更: %+v", again)
		}
		cur, _ := memberRepo.GetByID(ctx, m.ID)
		if cur.Rank != "Silver" {
			t.Errorf("rank = %s, want Silver", cur.Rank)
		}
	})
}

func TestAcknowledgeReward(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewRankService(db, cfg)
	memberRepo := repository.NewMemberRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	ctx := context.Background()

	m := &model.Member{
		MemberNo: "RANK002", Username: "winner", Email: "w@example.com",
		Role: model.RoleUser, Position: model.PositionRoot,
		Rank: model.DefaultRankTable[0].Name,
	}
	if err := memberRepo.Create(ctx, nil, m); err != nil {
		t.Fatalf("创建会员失败: %v", err)
	}

	var changes []*model.RankChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		changes, err = svc.EvaluateTx(ctx, tx, m, 26)
		return err
	})
	if err != nil || len(changes) != 1 {
		t.Fatalf("EvaluateTx: %v, changes=%d", err, len(changes))
	}

	if err := svc.AcknowledgeReward(ctx, changes[0].ID); err != nil {
		t.Fatalf("AcknowledgeReward: %v", err)
	}

	// Bronze 晋升奖励入账
	wallet, err := walletRepo.GetByMemberID(ctx, m.ID)
	if err != nil {
		t.Fatalf("查询钱包: %v", err)
	}
	wantReward := model.DefaultRankTable[1].Reward
	if wallet.Balance != wantReward {
		t.Errorf("balance = %d, want %d", wallet.Balance, wantReward)
	}

	var trans []*model.WalletTransaction
	db.Where("member_id = ? AND type = ?", m.ID, model.TransactionTypeLeadership).Find(&trans)
	if len(trans) != 1 {
		t.Fatalf("应有一条领导奖流水: %d", len(trans))
	}

	t.Run("重复确认不重复发钱", func(t *testing.T) {
		if err := svc.AcknowledgeReward(ctx, changes[0].ID); err == nil {
			t.Fatal("重复确认应报错")
		}
		wallet, _ := walletRepo.GetByMemberID(ctx, m.ID)
		if wallet.Balance != wantReward {
			t.Errorf("余额不应变化: %d", wallet.Balance)
		}
	})
}

func TestAcknowledgeRewardDailyCap(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	cfg.Business.DailyLeadershipCap = 1
	svc := NewRankService(db, cfg)
	memberRepo := repository.NewMemberRepository(db)
	ctx := context.Background()

	m := &model.Member{
		MemberNo: "RANK003", Username: "capped", Email: "cap@example.com",
		Role: model.RoleUser, Position: model.PositionRoot,
		Rank: model.DefaultRankTable[0].Name,
	}
	if err := memberRepo.Create(ctx, nil, m); err != nil {
		t.Fatalf("创建会员失败: %v", err)
	}

	// 一口气跨两档，两条待确认记录
	var changes []*model.RankChange
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		changes, err = svc.EvaluateTx(ctx, tx, m, 120)
		return err
	})
	if err != nil || len(changes) != 2 {
		t.Fatalf("EvaluateTx: %v, changes=%d", err, len(changes))
	}

	if err := svc.AcknowledgeReward(ctx, changes[0].ID); err != nil {
		t.Fatalf("第一次确认: %v", err)
	}
	// 当日额度 1，第二次确认被日封顶拦下
	if err := svc.AcknowledgeReward(ctx, changes[1].ID); err == nil {
		t.Fatal("超出日封顶应报错")
	}
}

func TestRankTableFromConfig(t *testing.T) {
	custom := testConfig()
	custom.Business.Ranks = []config.RankTierConfig{
		{Name: "Starter", Pairs: 0, Reward: 0},
		{Name: "Pro", Pairs: 10, Reward: 100},
	}

	table := rankTable(custom)
	if len(table) != 2 || table[1].Name != "Pro" {
		t.Fatalf("应使用配置职级表: %+v", table)
	}

	// 未配置时回落内置表
	table = rankTable(testConfig())
	if len(table) != len(model.DefaultRankTable) {
		t.Fatalf("应回落内置职级表: %d", len(table))
	}
}
