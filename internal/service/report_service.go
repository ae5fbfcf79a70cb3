package service

import (
	"context"
	"fmt"

	"mlmsystem/internal/config"
	"mlmsystem/internal/repository"

	"gorm.io/gorm"
)

// ReportService 报表与对账
//
// 所有视图都是纯聚合派生，不维护独立状态：
//
//	paidBV   = Σ(结算单 consumed) × pair_unit_bv
//	carryBV  = carry_count × pair_unit_bv
//	unpaidBV = max(0, 累计BV − paidBV)
//
// 派生结果与存储计数器出现偏差即为数据完整性故障，
// 由 Reconcile 系列方法检出并在后台任务中大声报错
type ReportService struct {
	db         *gorm.DB
	cfg        *config.Config
	memberRepo *repository.MemberRepository
	payoutRepo *repository.PayoutRepository
	walletRepo *repository.WalletRepository
	transRepo  *repository.TransactionRepository
}

func NewReportService(db *gorm.DB, cfg *config.Config) *ReportService {
	return &ReportService{
		db:         db,
		cfg:        cfg,
		memberRepo: repository.NewMemberRepository(db),
		payoutRepo: repository.NewPayoutRepository(db),
		walletRepo: repository.NewWalletRepository(db),
		transRepo:  repository.NewTransactionRepository(db),
	}
}

// SideBV 单侧 BV 视图
type SideBV struct {
	AccumulatedBV int64 `json:"accumulated_bv"` // 历史累计 BV
	PaidBV        int64 `json:"paid_bv"`        // 已结算部分折算 BV
	UnpaidBV      int64 `json:"unpaid_bv"`      // 未结算部分折算 BV
	CarryBV       int64 `json:"carry_bv"`       // 结转部分折算 BV
}

// BVSummary 某会员的两腿 BV 汇总
type BVSummary struct {
	MemberID   int64  `json:"member_id"`
	Left       SideBV `json:"left"`
	Right      SideBV `json:"right"`
	TotalPairs int    `json:"total_pairs"`
	Rank       string `json:"rank"`
}

func (s *ReportService) GetBVSummary(ctx context.Context, memberID int64) (*BVSummary, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	sums, err := s.payoutRepo.SumConsumedByMemberID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	unitBV := s.cfg.Business.PairUnitBV

	summary := &BVSummary{
		MemberID:   memberID,
		TotalPairs: member.TotalPairs,
		Rank:       member.Rank,
	}
	summary.Left = deriveSideBV(member.LeftBV, sums.LeftConsumed, member.LeftCarryCount, unitBV)
	summary.Right = deriveSideBV(member.RightBV, sums.RightConsumed, member.RightCarryCount, unitBV)
	return summary, nil
}

func deriveSideBV(accumulated int64, consumed, carry int, unitBV int64) SideBV {
	paid := int64(consumed) * unitBV
	unpaid := accumulated - paid
	if unpaid < 0 {
		unpaid = 0
	}
	return SideBV{
		AccumulatedBV: accumulated,
		PaidBV:        paid,
		UnpaidBV:      unpaid,
		CarryBV:       int64(carry) * unitBV,
	}
}

// ReconcileReport 单个会员的对账结果
type ReconcileReport struct {
	MemberID      int64  `json:"member_id"`
	LeftOK        bool   `json:"left_ok"`
	RightOK       bool   `json:"right_ok"`
	WalletOK      bool   `json:"wallet_ok"`
	PairsOK       bool   `json:"pairs_ok"`
	Detail        string `json:"detail,omitempty"`
}

// ReconcileMember 校验三条恒等式：
//  1. 成员守恒（两侧）：Σ(consumed) + carry + 未结算 == total_count
//  2. 钱包守恒：balance == Σ(流水 amount)
//  3. 碰对守恒：member.total_pairs == Σ(结算单 pairs)
func (s *ReportService) ReconcileMember(ctx context.Context, memberID int64) (*ReconcileReport, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	sums, err := s.payoutRepo.SumConsumedByMemberID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{MemberID: memberID, LeftOK: true, RightOK: true, WalletOK: true, PairsOK: true}

	leftTotal := sums.LeftConsumed + member.LeftCarryCount + member.LeftMemberCount
	if leftTotal != member.LeftTotalCount {
		report.LeftOK = false
		report.Detail += fmt.Sprintf("left: %d+%d+%d != %d; ",
			sums.LeftConsumed, member.LeftCarryCount, member.LeftMemberCount, member.LeftTotalCount)
	}

	rightTotal := sums.RightConsumed + member.RightCarryCount + member.RightMemberCount
	if rightTotal != member.RightTotalCount {
		report.RightOK = false
		report.Detail += fmt.Sprintf("right: %d+%d+%d != %d; ",
			sums.RightConsumed, member.RightCarryCount, member.RightMemberCount, member.RightTotalCount)
	}

	wallet, err := s.walletRepo.GetByMemberID(ctx, memberID)
	if err == nil {
		sum, err := s.transRepo.SumByMemberID(ctx, memberID)
		if err != nil {
			return nil, err
		}
		if wallet.Balance != sum {
			report.WalletOK = false
			report.Detail += fmt.Sprintf("wallet: balance=%d, ledger=%d; ", wallet.Balance, sum)
		}
	}

	if member.TotalPairs != sums.TotalPairs {
		report.PairsOK = false
		report.Detail += fmt.Sprintf("pairs: member=%d, ledger=%d; ", member.TotalPairs, sums.TotalPairs)
	}

	return report, nil
}

// OK 对账是否全部通过
func (r *ReconcileReport) OK() bool {
	return r.LeftOK && r.RightOK && r.WalletOK && r.PairsOK
}
