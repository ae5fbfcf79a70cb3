// Package engine 实现两腿碰对（2:1 / 1:2 交替规则）的纯算法部分。
// 这里不碰数据库、不碰配置，输入输出都是整数，
// 结算服务负责把结果落到计数器、结算单和钱包流水上。
package engine

// MatchResult 一次碰对计算的完整结果
type MatchResult struct {
	Pairs         int // 本次可结算碰对总数
	TwoOnePairs   int // 其中 2:1 规则（左2右1）的对数
	OneTwoPairs   int // 其中 1:2 规则（左1右2）的对数
	LeftConsumed  int // 左侧消耗成员数 = 2*TwoOnePairs + OneTwoPairs
	RightConsumed int // 右侧消耗成员数 = TwoOnePairs + 2*OneTwoPairs
	CarryLeft     int // 左侧结转成员数
	CarryRight    int // 右侧结转成员数
}

// Matched 本次是否产生了可结算的碰对
func (r MatchResult) Matched() bool {
	return r.Pairs > 0
}

// Calculate2To1Matching 在 (left, right) 两腿未消耗成员数上计算可结算碰对
//
// 规则（必须严格保持）：
//
//	循环判断，只要 (l>=2 && r>=1) 或 (l>=1 && r>=2) 就继续：
//	  - 优先尝试 2:1（l-=2, r-=1）
//	  - 否则应用 1:2（l-=1, r-=2）
//	  每轮 pairs++，两条规则的前置条件都不满足时停止
//
// 剩余的 l、r 即为结转（carry-forward），留待下次结算
func Calculate2To1Matching(left, right int) MatchResult {
	return MatchWithLimit(left, right, 0)
}

// MatchWithLimit 与 Calculate2To1Matching 相同，但最多结算 maxPairs 对
// maxPairs <= 0 表示不限制。日封顶场景下传入当日剩余额度，
// 超出额度的成员原样留在结转中顺延
func MatchWithLimit(left, right, maxPairs int) MatchResult {
	if left < 0 {
		left = 0
	}
	if right < 0 {
		right = 0
	}

	result := MatchResult{}
	l, r := left, right

	for (l >= 2 && r >= 1) || (l >= 1 && r >= 2) {
		if maxPairs > 0 && result.Pairs >= maxPairs {
			break
		}
		if l >= 2 && r >= 1 {
			// 优先 2:1
			l -= 2
			r -= 1
			result.TwoOnePairs++
		} else {
			// 兜底 1:2
			l -= 1
			r -= 2
			result.OneTwoPairs++
		}
		result.Pairs++
	}

	result.LeftConsumed = left - l
	result.RightConsumed = right - r
	result.CarryLeft = l
	result.CarryRight = r
	return result
}

// RemainingPairs 计算 (left, right) 上在不限额时还能结算多少对
// 用于区分"日封顶推迟"和"无可碰对"两种不发奖的情况
func RemainingPairs(left, right int) int {
	return Calculate2To1Matching(left, right).Pairs
}
