package smc

// DefaultCloseBreak 默认用收盘价确认突破
const DefaultCloseBreak = true

// swingRecord 扫描过程中记录的摆动点
type swingRecord struct {
	index int
	kind  SwingKind
	level float64
}

// BOSCHOCH 识别结构突破 (BOS) 与性质转变 (CHOCH)
//
// 按顺序收集摆动点，每出现一个新点就用最近四个点判断形态，事件锚定在倒数第三个点上，
// 价位取该点的 level。之后从锚点 +2 开始向后寻找第一根突破该价位的 K 线；
// closeBreak 为 true 时用收盘价，否则看涨用最高价、看跌用最低价。
// 找不到突破 K 线的事件直接丢弃。
func BOSCHOCH(s *Series, swings []*SwingPoint, closeBreak bool) ([]*StructureBreak, error) {
	if err := s.checkSwings(swings); err != nil {
		return nil, err
	}

	n := s.Len()
	out := make([]*StructureBreak, n)

	pending := make([]*StructureBreak, 0)
	seen := make([]swingRecord, 0, n/2+1)
	for i, sp := range swings {
		if sp == nil {
			continue
		}
		seen = append(seen, swingRecord{index: i, kind: sp.Kind, level: sp.Level})
		if len(seen) < 4 {
			continue
		}
		if ev := classifyStructure(seen[len(seen)-4:]); ev != nil {
			pending = append(pending, ev)
		}
	}

	for _, ev := range pending {
		brokenAt, ok := findBreak(s, ev, closeBreak)
		if !ok {
			continue
		}
		ev.BrokenAt = brokenAt
		out[ev.Index] = ev
	}

	return out, nil
}

// classifyStructure 根据最近四个摆动点判断形态，返回待确认的事件
//
// 两类形态互斥：BOS 要求 l4 < l2，CHOCH 要求 l2 < l4 (看涨方向；看跌镜像)，
// 因此同一锚点最多只有一个事件。
func classifyStructure(last4 []swingRecord) *StructureBreak {
	l4, l3, l2, l1 := last4[0].level, last4[1].level, last4[2].level, last4[3].level
	anchor := last4[1]

	upSequence := kindsMatch(last4, SwingLow, SwingHigh, SwingLow, SwingHigh)
	downSequence := kindsMatch(last4, SwingHigh, SwingLow, SwingHigh, SwingLow)

	var kind EventKind
	var dir Direction
	switch {
	case upSequence && l4 < l2 && l2 < l3 && l3 < l1:
		kind, dir = BOS, Bullish
	case downSequence && l4 > l2 && l2 > l3 && l3 > l1:
		kind, dir = BOS, Bearish
	case upSequence && l1 > l3 && l3 > l4 && l4 > l2:
		kind, dir = CHOCH, Bullish
	case downSequence && l1 < l3 && l3 < l4 && l4 < l2:
		kind, dir = CHOCH, Bearish
	default:
		return nil
	}

	return &StructureBreak{
		Index:     anchor.index,
		Kind:      kind,
		Direction: dir,
		Level:     anchor.level,
	}
}

func kindsMatch(records []swingRecord, kinds ...SwingKind) bool {
	for i, k := range kinds {
		if records[i].kind != k {
			return false
		}
	}
	return true
}

// findBreak 从锚点 +2 开始寻找第一根突破 level 的 K 线
func findBreak(s *Series, ev *StructureBreak, closeBreak bool) (int, bool) {
	for j := ev.Index + 2; j < s.Len(); j++ {
		c := s.At(j)
		if ev.Direction == Bullish {
			price := c.High
			if closeBreak {
				price = c.Close
			}
			if price > ev.Level {
				return j, true
			}
			continue
		}

		price := c.Low
		if closeBreak {
			price = c.Close
		}
		if price < ev.Level {
			return j, true
		}
	}
	return 0, false
}
