package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"mlmsystem/internal/model"
)

func TestWalletDeduct(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	wallet, err := repo.GetOrCreate(ctx, nil, 1)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if err := repo.Increase(ctx, nil, 1, 1000); err != nil {
		t.Fatalf("Increase: %v", err)
	}
	wallet, err = repo.GetByMemberID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByMemberID: %v", err)
	}

	t.Run("正常扣款", func(t *testing.T) {
		if err := repo.Deduct(ctx, nil, 1, 300, wallet.Version); err != nil {
			t.Fatalf("Deduct: %v", err)
		}
		got, _ := repo.GetByMemberID(ctx, 1)
		if got.Balance != 700 {
			t.Errorf("balance = %d, want 700", got.Balance)
		}
		if got.Version != wallet.Version+1 {
			t.Errorf("version = %d, want %d", got.Version, wallet.Version+1)
		}
	})

	t.Run("版本号过期返回乐观锁冲突", func(t *testing.T) {
		// 上个子测试已经把版本推进了一次
		err := repo.Deduct(ctx, nil, 1, 100, wallet.Version)
		if !errors.Is(err, ErrOptimisticLock) {
			t.Fatalf("want ErrOptimisticLock, got %v", err)
		}
	})

	t.Run("余额不足", func(t *testing.T) {
		got, _ := repo.GetByMemberID(ctx, 1)
		err := repo.Deduct(ctx, nil, 1, got.Balance+1, got.Version)
		if !errors.Is(err, ErrBalanceNotEnough) {
			t.Fatalf("want ErrBalanceNotEnough, got %v", err)
		}
	})
}

func TestWalletGetOrCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	w1, err := repo.GetOrCreate(ctx, nil, 7)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	w2, err := repo.GetOrCreate(ctx, nil, 7)
	if err != nil {
		t.Fatalf("GetOrCreate 第二次: %v", err)
	}
	if w1.ID != w2.ID {
		t.Errorf("两次 GetOrCreate 应返回同一钱包: %d != %d", w1.ID, w2.ID)
	}

	if _, err := repo.GetByMemberID(ctx, 404); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("不存在的钱包应返回 ErrWalletNotFound, got %v", err)
	}
}

func TestWalletIncreaseUnknownMember(t *testing.T) {
	db := newTestDB(t)
	repo := NewWalletRepository(db)

	if err := repo.Increase(context.Background(), nil, 404, 100); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("给不存在的钱包入账应报错, got %v", err)
	}
}

func TestDailyPairCounter(t *testing.T) {
	db := newTestDB(t)
	repo := NewDailyCounterRepository(db)
	ctx := context.Background()

	day := model.DayKey(time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC))

	n, err := repo.GetPairCount(ctx, nil, 1, day)
	if err != nil {
		t.Fatalf("GetPairCount: %v", err)
	}
	if n != 0 {
		t.Errorf("无记录应返回 0, got %d", n)
	}

	if err := repo.AddPairs(ctx, nil, 1, day, 4); err != nil {
		t.Fatalf("AddPairs: %v", err)
	}
	if err := repo.AddPairs(ctx, nil, 1, day, 6); err != nil {
		t.Fatalf("AddPairs 第二次: %v", err)
	}

	n, err = repo.GetPairCount(ctx, nil, 1, day)
	if err != nil {
		t.Fatalf("GetPairCount: %v", err)
	}
	if n != 10 {
		t.Errorf("累计对数 = %d, want 10", n)
	}

	// 不同自然日互不影响
	n, _ = repo.GetPairCount(ctx, nil, 1, "2026-08-29")
	if n != 0 {
		t.Errorf("次日计数应为 0, got %d", n)
	}
}
