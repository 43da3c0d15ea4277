package smc

import (
	"fmt"

	"github.com/markcheno/go-talib"
)

// DefaultSwingLength 默认前后各看 50 根
const DefaultSwingLength = 50

// SwingHighsLows 识别摆动高/低点
//
// 候选高点：high[i] 等于窗口 [i-swingLength+1, i+swingLength] 内的最高价；低点同理取最低价。
// 窗口要求完整 (i >= 2*swingLength-1 且 i+swingLength < N)，同一根 K 线两者都满足时按高点处理。
// 之后反复消除相邻同类点 (保留更极端的一个) 直到高低点交替，
// 最后保证序列以低点开始、以高点结束。
func SwingHighsLows(s *Series, swingLength int) ([]*SwingPoint, error) {
	if swingLength < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSwingLength, swingLength)
	}

	n := s.Len()
	out := make([]*SwingPoint, n)

	window := swingLength * 2
	first, last := window-1, n-1-swingLength
	if first > last {
		// 序列太短，没有任何完整窗口
		return out, nil
	}

	highs, lows := s.Highs(), s.Lows()
	// talib 的滚动窗口是向后看的，位置 i+swingLength 的值覆盖 [i-swingLength+1, i+swingLength]
	rollingMax := talib.Max(highs, window)
	rollingMin := talib.Min(lows, window)

	marks := make([]SwingKind, n)
	for i := first; i <= last; i++ {
		switch {
		case highs[i] == rollingMax[i+swingLength]:
			marks[i] = SwingHigh
		case lows[i] == rollingMin[i+swingLength]:
			marks[i] = SwingLow
		}
	}

	resolveAdjacent(marks, highs, lows)

	positions := markedPositions(marks)
	if len(positions) == 0 {
		return out, nil
	}
	if marks[positions[0]] == SwingHigh {
		marks[0] = SwingLow
	}
	if marks[positions[len(positions)-1]] == SwingLow {
		marks[n-1] = SwingHigh
	}

	for i, kind := range marks {
		switch kind {
		case SwingHigh:
			out[i] = &SwingPoint{Index: i, Kind: SwingHigh, Level: highs[i]}
		case SwingLow:
			out[i] = &SwingPoint{Index: i, Kind: SwingLow, Level: lows[i]}
		}
	}
	return out, nil
}

// resolveAdjacent 不动点迭代：每一轮扫描所有相邻标记对，同类时删掉较不极端的那个，
// 直到某一轮没有任何删除。每轮开始时重新取标记位置，本轮中已删除的点不再参与比较。
func resolveAdjacent(marks []SwingKind, highs, lows []float64) {
	for changed := true; changed; {
		changed = false
		positions := markedPositions(marks)
		for k := 0; k+1 < len(positions); k++ {
			cur, next := positions[k], positions[k+1]
			if marks[cur] == "" || marks[cur] != marks[next] {
				continue
			}

			remove := next
			switch marks[cur] {
			case SwingLow:
				if lows[cur] > lows[next] {
					remove = cur
				}
			case SwingHigh:
				if highs[cur] < highs[next] {
					remove = cur
				}
			}
			marks[remove] = ""
			changed = true
		}
	}
}

func markedPositions(marks []SwingKind) []int {
	positions := make([]int, 0, len(marks)/4+1)
	for i, kind := range marks {
		if kind != "" {
			positions = append(positions, i)
		}
	}
	return positions
}
