package service

import (
	"context"
	"errors"
	"testing"

	"mlmsystem/internal/model"
	"mlmsystem/internal/repository"
)

func newWithdrawFixture(t *testing.T) (*WithdrawService, *WalletService, int64) {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	members := NewMemberService(db, cfg)
	wallets := NewWalletService(db)
	withdraws := NewWithdrawService(db, nil, cfg)

	root, err := members.CreateRoot(context.Background(), "root", "root@example.com")
	if err != nil {
		t.Fatalf("CreateRoot: %v", err)
	}
	if err := wallets.Recharge(context.Background(), root.ID, 1000); err != nil {
		t.Fatalf("Recharge: %v", err)
	}
	return withdraws, wallets, root.ID
}

func TestWithdrawApplyAndPay(t *testing.T) {
	withdraws, wallets, memberID := newWithdrawFixture(t)
	ctx := context.Background()

	req, err := withdraws.doApply(ctx, &WithdrawApplyRequest{
		RequestID: "wd-1", MemberID: memberID, Amount: 400,
	})
	if err != nil {
		t.Fatalf("doApply: %v", err)
	}
	if req.Status != model.WithdrawStatusPending {
		t.Errorf("status = %s, want PENDING", req.Status)
	}

	// 申请即扣款
	balance, _ := wallets.GetBalance(ctx, memberID)
	if balance != 600 {
		t.Errorf("balance = %d, want 600", balance)
	}

	t.Run("幂等重放返回原申请", func(t *testing.T) {
		again, err := withdraws.Apply(ctx, &WithdrawApplyRequest{
			RequestID: "wd-1", MemberID: memberID, Amount: 400,
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if again.WithdrawNo != req.WithdrawNo {
			t.Errorf("应返回原申请: %s != %s", again.WithdrawNo, req.WithdrawNo)
		}
		balance, _ := wallets.GetBalance(ctx, memberID)
		if balance != 600 {
			t.Errorf("幂等重放不应重复扣款: %d", balance)
		}
	})

	t.Run("审核通过后打款", func(t *testing.T) {
		if err := withdraws.Approve(ctx, req.WithdrawNo); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if err := withdraws.MarkPaid(ctx, req.WithdrawNo); err != nil {
			t.Fatalf("MarkPaid: %v", err)
		}

		got, err := withdraws.withdrawRepo.GetByWithdrawNo(ctx, req.WithdrawNo)
		if err != nil {
			t.Fatalf("GetByWithdrawNo: %v", err)
		}
		if got.Status != model.WithdrawStatusPaid {
			t.Errorf("status = %s, want PAID", got.Status)
		}
		if got.PaidAt == nil {
			t.Error("打款时间应已回填")
		}
	})

	t.Run("已打款不能再驳回", func(t *testing.T) {
		err := withdraws.Reject(ctx, req.WithdrawNo, "too late")
		if err == nil {
			t.Fatal("已打款的申请不应能驳回")
		}
		balance, _ := wallets.GetBalance(ctx, memberID)
		if balance != 600 {
			t.Errorf("驳回失败不应改动余额: %d", balance)
		}
	})
}

func TestWithdrawReject(t *testing.T) {
	withdraws, wallets, memberID := newWithdrawFixture(t)
	ctx := context.Background()

	req, err := withdraws.doApply(ctx, &WithdrawApplyRequest{
		RequestID: "wd-2", MemberID: memberID, Amount: 300,
	})
	if err != nil {
		t.Fatalf("doApply: %v", err)
	}

	if err := withdraws.Reject(ctx, req.WithdrawNo, "资料不全"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	// 驳回原路返还
	balance, _ := wallets.GetBalance(ctx, memberID)
	if balance != 1000 {
		t.Errorf("balance = %d, want 1000", balance)
	}

	got, _ := withdraws.withdrawRepo.GetByWithdrawNo(ctx, req.WithdrawNo)
	if got.Status != model.WithdrawStatusRejected {
		t.Errorf("status = %s, want REJECTED", got.Status)
	}

	// 扣款和返还各一条 WITHDRAW 流水，相互抵消
	var trans []*model.WalletTransaction
	withdraws.db.Where("member_id = ? AND type = ?", memberID, model.TransactionTypeWithdraw).Find(&trans)
	if len(trans) != 2 {
		t.Fatalf("WITHDRAW 流水数 = %d, want 2", len(trans))
	}
	if trans[0].Amount+trans[1].Amount != 0 {
		t.Errorf("扣款与返还应抵消: %d + %d", trans[0].Amount, trans[1].Amount)
	}
}

func TestWithdrawBalanceNotEnough(t *testing.T) {
	withdraws, _, memberID := newWithdrawFixture(t)

	_, err := withdraws.doApply(context.Background(), &WithdrawApplyRequest{
		RequestID: "wd-3", MemberID: memberID, Amount: 5000,
	})
	if !errors.Is(err, repository.ErrBalanceNotEnough) {
		t.Fatalf("want ErrBalanceNotEnough, got %v", err)
	}
}
