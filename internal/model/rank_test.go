package model

import (
	"testing"
)

func TestResolveRankIndex(t *testing.T) {
	table := []RankTier{
		{Name: "Rookie", Pairs: 0},
		{Name: "Bronze", Pairs: 25},
		{Name: "Silver", Pairs: 100},
		{Name: "Gold", Pairs: 500},
	}

	tests := []struct {
		name       string
		totalPairs int
		wantIdx    int
	}{
		{"零对是最低档", 0, 0},
		{"门槛下一档不变", 24, 0},
		{"恰好到达门槛", 25, 1},
		{"门槛之间", 99, 1},
		{"跨档", 100, 2},
		{"超过最高门槛封顶", 100000, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRankIndex(table, tt.totalPairs); got != tt.wantIdx {
				t.Errorf("ResolveRankIndex(%d) = %d, want %d", tt.totalPairs, got, tt.wantIdx)
			}
		})
	}
}

func TestRankIndexOf(t *testing.T) {
	table := DefaultRankTable

	if got := RankIndexOf(table, "Silver"); got != 2 {
		t.Errorf("RankIndexOf(Silver) = %d, want 2", got)
	}
	// 未知名称视为最低档，不 panic
	if got := RankIndexOf(table, "NotARank"); got != 0 {
		t.Errorf("RankIndexOf(NotARank) = %d, want 0", got)
	}
}

func TestDefaultRankTableOrdered(t *testing.T) {
	for i := 1; i < len(DefaultRankTable); i++ {
		if DefaultRankTable[i].Pairs <= DefaultRankTable[i-1].Pairs {
			t.Errorf("职级表门槛必须严格递增: %s(%d) <= %s(%d)",
				DefaultRankTable[i].Name, DefaultRankTable[i].Pairs,
				DefaultRankTable[i-1].Name, DefaultRankTable[i-1].Pairs)
		}
	}
	if DefaultRankTable[0].Pairs != 0 {
		t.Errorf("最低档门槛必须为 0, got %d", DefaultRankTable[0].Pairs)
	}
}

func TestDeriveMatchType(t *testing.T) {
	tests := []struct {
		twoOne int
		oneTwo int
		want   string
	}{
		{5, 0, MatchTypeTwoOne},
		{0, 3, MatchTypeOneTwo},
		{25, 1, MatchTypeMixed},
		{0, 0, MatchTypeTwoOne},
	}

	for _, tt := range tests {
		if got := DeriveMatchType(tt.twoOne, tt.oneTwo); got != tt.want {
			t.Errorf("DeriveMatchType(%d, %d) = %s, want %s", tt.twoOne, tt.oneTwo, got, tt.want)
		}
	}
}
