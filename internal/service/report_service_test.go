package service

import (
	"context"
	"testing"
)

func TestDeriveSideBV(t *testing.T) {
	tests := []struct {
		name        string
		accumulated int64
		consumed    int
		carry       int
		want        SideBV
	}{
		{
			name: "部分结算", accumulated: 5000, consumed: 27, carry: 23,
			want: SideBV{AccumulatedBV: 5000, PaidBV: 2700, UnpaidBV: 2300, CarryBV: 2300},
		},
		{
			name: "全部结算", accumulated: 5100, consumed: 51, carry: 0,
			want: SideBV{AccumulatedBV: 5100, PaidBV: 5100, UnpaidBV: 0, CarryBV: 0},
		},
		{
			name: "尚未结算", accumulated: 300, consumed: 0, carry: 0,
			want: SideBV{AccumulatedBV: 300, PaidBV: 0, UnpaidBV: 300, CarryBV: 0},
		},
		{
			// BV 口径与成员口径可能有偏差（复购只加 BV），未付部分不为负
			name: "消耗折算超过累计时钳为零", accumulated: 100, consumed: 2, carry: 0,
			want: SideBV{AccumulatedBV: 100, PaidBV: 200, UnpaidBV: 0, CarryBV: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveSideBV(tt.accumulated, tt.consumed, tt.carry, 100)
			if got != tt.want {
				t.Errorf("deriveSideBV = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGetBVSummaryAfterSettle(t *testing.T) {
	db := newTestDB(t)
	cfg := testConfig()
	bonus := NewBonusService(db, nil, cfg)
	reports := NewReportService(db, cfg)
	ctx := context.Background()

	m := seedCountedMember(t, db, 51, 50)
	if _, err := bonus.settle(ctx, m.ID); err != nil {
		t.Fatalf("settle: %v", err)
	}

	summary, err := reports.GetBVSummary(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetBVSummary: %v", err)
	}

	if summary.TotalPairs != 26 {
		t.Errorf("totalPairs = %d, want 26", summary.TotalPairs)
	}
	// 左腿 51 人全部消耗
	if summary.Left.PaidBV != 5100 || summary.Left.UnpaidBV != 0 || summary.Left.CarryBV != 0 {
		t.Errorf("左腿 = %+v", summary.Left)
	}
	// 右腿消耗 27，结转 23
	if summary.Right.PaidBV != 2700 || summary.Right.CarryBV != 2300 {
		t.Errorf("右腿 = %+v", summary.Right)
	}
}
