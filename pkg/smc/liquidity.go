package smc

import "fmt"

// DefaultRangePercent 默认以全序列振幅的 1% 作为聚类半径
const DefaultRangePercent = 0.01

// Liquidity 识别流动性池
//
// 聚类半径 pipRange = (max(high) - min(low)) * rangePercent。
// 先处理高点再处理低点：从每个尚未被吸收的摆动点出发，向后把落在 [level-pipRange, level+pipRange]
// 内的同类摆动点吸收进来，直到某根 K 线的影线越过区间外沿 (记为 SweptAt)。
// 至少包含两个摆动点才算流动性池，level 取平均值。rangePercent 为 0 时只聚合价位完全相同的摆动点。
// 传入的摆动点表不会被修改。
func Liquidity(s *Series, swings []*SwingPoint, rangePercent float64) ([]*LiquidityPool, error) {
	if err := s.checkSwings(swings); err != nil {
		return nil, err
	}
	if rangePercent < 0 {
		return nil, fmt.Errorf("range percent must not be negative, got %v", rangePercent)
	}

	n := s.Len()
	out := make([]*LiquidityPool, n)
	if n == 0 {
		return out, nil
	}

	highs, lows := s.Highs(), s.Lows()
	maxHigh, minLow := highs[0], lows[0]
	for i := 1; i < n; i++ {
		maxHigh = max(maxHigh, highs[i])
		minLow = min(minLow, lows[i])
	}
	pipRange := (maxHigh - minLow) * rangePercent

	// 工作副本：被吸收的摆动点置为空，不能再发起或加入其他池
	kinds := make([]SwingKind, n)
	levels := make([]float64, n)
	for i, sp := range swings {
		if sp != nil {
			kinds[i], levels[i] = sp.Kind, sp.Level
		}
	}

	collectPools(out, kinds, levels, highs, SwingHigh, pipRange)
	collectPools(out, kinds, levels, lows, SwingLow, pipRange)

	return out, nil
}

// collectPools 处理一侧的摆动点；prices 为该侧用于判断扫荡的价格 (高点看 high，低点看 low)
func collectPools(out []*LiquidityPool, kinds []SwingKind, levels, prices []float64, kind SwingKind, pipRange float64) {
	n := len(kinds)
	for i := 0; i < n; i++ {
		if kinds[i] != kind {
			continue
		}

		level := levels[i]
		rangeLow, rangeHigh := level-pipRange, level+pipRange
		absorbed := []float64{level}
		end := i
		var swept *int

		for c := i + 1; c < n; c++ {
			if kinds[c] == kind && levels[c] >= rangeLow && levels[c] <= rangeHigh {
				end = c
				absorbed = append(absorbed, levels[c])
				kinds[c] = ""
			}
			if (kind == SwingHigh && prices[c] >= rangeHigh) ||
				(kind == SwingLow && prices[c] <= rangeLow) {
				swept = intPtr(c)
				break
			}
		}

		if len(absorbed) < 2 {
			continue
		}

		var sum float64
		for _, v := range absorbed {
			sum += v
		}
		side := BuySide
		if kind == SwingLow {
			side = SellSide
		}
		out[i] = &LiquidityPool{
			Index:    i,
			Side:     side,
			Level:    sum / float64(len(absorbed)),
			EndIndex: end,
			SweptAt:  swept,
		}
	}
}
