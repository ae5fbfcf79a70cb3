package engine

import (
	"testing"
)

func TestCalculate2To1Matching_Table(t *testing.T) {
	tests := []struct {
		name       string
		left       int
		right      int
		pairs      int
		twoOne     int
		oneTwo     int
		carryLeft  int
		carryRight int
	}{
		{name: "2:1 exact", left: 2, right: 1, pairs: 1, twoOne: 1, carryLeft: 0, carryRight: 0},
		{name: "1:2 exact", left: 1, right: 2, pairs: 1, oneTwo: 1, carryLeft: 0, carryRight: 0},
		{name: "left only", left: 5, right: 0, pairs: 0, carryLeft: 5, carryRight: 0},
		{name: "right only", left: 0, right: 5, pairs: 0, carryLeft: 0, carryRight: 5},
		{name: "empty", left: 0, right: 0, pairs: 0, carryLeft: 0, carryRight: 0},
		{name: "one each", left: 1, right: 1, pairs: 0, carryLeft: 1, carryRight: 1},
		// (51,50)：先连续 2:1 共 25 对（l 51->1, r 50->25），
		// 再 1:2 一对（l 1->0, r 25->23），共 26 对，结转 (0,23)
		{name: "51 vs 50", left: 51, right: 50, pairs: 26, twoOne: 25, oneTwo: 1, carryLeft: 0, carryRight: 23},
		// (4,4)：2:1 -> (2,3)，2:1 -> (0,2)，共 2 对
		{name: "balanced 4", left: 4, right: 4, pairs: 2, twoOne: 2, carryLeft: 0, carryRight: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate2To1Matching(tt.left, tt.right)
			if got.Pairs != tt.pairs {
				t.Errorf("pairs: expected %d, got %d", tt.pairs, got.Pairs)
			}
			if got.TwoOnePairs != tt.twoOne || got.OneTwoPairs != tt.oneTwo {
				t.Errorf("rule split: expected (%d,%d), got (%d,%d)",
					tt.twoOne, tt.oneTwo, got.TwoOnePairs, got.OneTwoPairs)
			}
			if got.CarryLeft != tt.carryLeft || got.CarryRight != tt.carryRight {
				t.Errorf("carry: expected (%d,%d), got (%d,%d)",
					tt.carryLeft, tt.carryRight, got.CarryLeft, got.CarryRight)
			}
		})
	}
}

// 对所有小规模 (l, r) 验证三条性质：
// 1. 结转上不可能再碰对
// 2. 消耗守恒：consumed + carry == 输入
// 3. 消耗与规则计数一致：left = 2*twoOne + oneTwo（右侧对称）
func TestCalculate2To1Matching_Properties(t *testing.T) {
	for l := 0; l <= 60; l++ {
		for r := 0; r <= 60; r++ {
			got := Calculate2To1Matching(l, r)

			if (got.CarryLeft >= 2 && got.CarryRight >= 1) ||
				(got.CarryLeft >= 1 && got.CarryRight >= 2) {
				t.Fatalf("(%d,%d): carry (%d,%d) still matchable",
					l, r, got.CarryLeft, got.CarryRight)
			}
			if got.LeftConsumed+got.CarryLeft != l || got.RightConsumed+got.CarryRight != r {
				t.Fatalf("(%d,%d): consumption not conserved: %+v", l, r, got)
			}
			if got.LeftConsumed != 2*got.TwoOnePairs+got.OneTwoPairs {
				t.Fatalf("(%d,%d): left consumed %d != 2*%d+%d",
					l, r, got.LeftConsumed, got.TwoOnePairs, got.OneTwoPairs)
			}
			if got.RightConsumed != got.TwoOnePairs+2*got.OneTwoPairs {
				t.Fatalf("(%d,%d): right consumed %d != %d+2*%d",
					l, r, got.RightConsumed, got.TwoOnePairs, got.OneTwoPairs)
			}
			if got.Pairs != got.TwoOnePairs+got.OneTwoPairs {
				t.Fatalf("(%d,%d): pairs %d != %d+%d",
					l, r, got.Pairs, got.TwoOnePairs, got.OneTwoPairs)
			}
		}
	}
}

func TestMatchWithLimit(t *testing.T) {
	t.Run("limit caps pairs", func(t *testing.T) {
		got := MatchWithLimit(51, 50, 10)
		if got.Pairs != 10 {
			t.Fatalf("expected 10 pairs, got %d", got.Pairs)
		}
		// 前 10 对全部是 2:1
		if got.TwoOnePairs != 10 || got.OneTwoPairs != 0 {
			t.Errorf("expected 10 two-one pairs, got %+v", got)
		}
		if got.CarryLeft != 31 || got.CarryRight != 40 {
			t.Errorf("expected carry (31,40), got (%d,%d)", got.CarryLeft, got.CarryRight)
		}
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		limited := MatchWithLimit(51, 50, 0)
		unlimited := Calculate2To1Matching(51, 50)
		if limited != unlimited {
			t.Errorf("expected identical results, got %+v vs %+v", limited, unlimited)
		}
	})

	t.Run("limit above demand", func(t *testing.T) {
		got := MatchWithLimit(2, 1, 100)
		if got.Pairs != 1 {
			t.Errorf("expected 1 pair, got %d", got.Pairs)
		}
	})

	t.Run("negative input treated as zero", func(t *testing.T) {
		got := MatchWithLimit(-3, 5, 0)
		if got.Pairs != 0 || got.CarryLeft != 0 || got.CarryRight != 5 {
			t.Errorf("unexpected result for negative input: %+v", got)
		}
	})
}

// 结算是幂等的：在结转上重跑一定得到 0 对
func TestCalculate2To1Matching_Idempotent(t *testing.T) {
	first := Calculate2To1Matching(51, 50)
	second := Calculate2To1Matching(first.CarryLeft, first.CarryRight)
	if second.Pairs != 0 {
		t.Fatalf("rerun on carry produced %d pairs, want 0", second.Pairs)
	}
	if second.CarryLeft != first.CarryLeft || second.CarryRight != first.CarryRight {
		t.Fatalf("rerun changed carry: %+v -> %+v", first, second)
	}
}

func TestRemainingPairs(t *testing.T) {
	if got := RemainingPairs(51, 50); got != 26 {
		t.Errorf("expected 26, got %d", got)
	}
	if got := RemainingPairs(1, 1); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
