package smc

import "math"

// DefaultCloseMitigation 默认用影线 (最高/最低价) 判断订单块失效
const DefaultCloseMitigation = false

// zoneState 单个订单块在一次扫描中的可变状态，按 K 线下标存放
type zoneState struct {
	live        bool
	top         float64
	bottom      float64
	volume      float64
	strength    *float64
	mitigatedAt *int
	breaker     bool
}

// zoneArena 一次扫描私有的状态：crossed 按摆动点位置，zones 按锚点位置
type zoneArena struct {
	crossed []bool
	zones   []zoneState
}

func newZoneArena(n int) *zoneArena {
	return &zoneArena{
		crossed: make([]bool, n),
		zones:   make([]zoneState, n),
	}
}

// OrderBlocks 识别订单块
//
// 看涨、看跌两个方向各自独立从左到右扫描，互不共享状态，结束后合并；
// 同一根 K 线上两个方向都有订单块时保留看跌的那个。
func OrderBlocks(s *Series, swings []*SwingPoint, closeMitigation bool) ([]*OrderBlock, error) {
	if err := s.checkSwings(swings); err != nil {
		return nil, err
	}
	if !s.HasVolume() {
		return nil, ErrMissingVolume
	}

	n := s.Len()
	out := make([]*OrderBlock, n)

	bull := bullishOrderBlocks(s, swings, closeMitigation)
	bear := bearishOrderBlocks(s, swings, closeMitigation)

	for i := 0; i < n; i++ {
		if bear.zones[i].live {
			out[i] = bear.zones[i].block(i, Bearish)
		} else if bull.zones[i].live {
			out[i] = bull.zones[i].block(i, Bullish)
		}
	}
	return out, nil
}

func (z *zoneState) block(index int, dir Direction) *OrderBlock {
	return &OrderBlock{
		Index:           index,
		Direction:       dir,
		Top:             z.top,
		Bottom:          z.bottom,
		Volume:          z.volume,
		StrengthPercent: z.strength,
		MitigatedAt:     z.mitigatedAt,
	}
}

// bullishOrderBlocks 看涨订单块：收盘价上穿最近一个未被穿越的摆动高点时形成，
// 区间取摆动高点与突破 K 线之间最低影线的那根 K 线
func bullishOrderBlocks(s *Series, swings []*SwingPoint, closeMitigation bool) *zoneArena {
	n := s.Len()
	arena := newZoneArena(n)
	lastTop := -1

	for i := 0; i < n; i++ {
		c := s.At(i)
		if i > 0 && swings[i-1] != nil && swings[i-1].Kind == SwingHigh {
			lastTop = i - 1
		}

		// 1. 失效检查，从最新的订单块开始
		for j := n - 1; j >= 0; j-- {
			z := &arena.zones[j]
			if !z.live {
				continue
			}
			if z.breaker {
				if c.High > z.top {
					*z = zoneState{}
				}
				continue
			}
			if (!closeMitigation && c.Low < z.bottom) ||
				(closeMitigation && math.Min(c.Open, c.Close) < z.bottom) {
				z.breaker = true
				z.mitigatedAt = intPtr(i - 1)
			}
		}

		// 2. 形成检查
		if lastTop < 0 || arena.crossed[lastTop] || c.Close <= s.At(lastTop).High {
			continue
		}
		arena.crossed[lastTop] = true

		obIndex := i - 1
		obBtm, obTop := s.At(obIndex).Low, s.At(obIndex).High
		// 向前回溯到摆动点之后，取最低价最低的 K 线；相同最低价时取更靠近突破的那根
		for j := i - 1; j > lastTop; j-- {
			if low := s.At(j).Low; low < obBtm {
				obBtm, obTop, obIndex = low, s.At(j).High, j
			}
		}

		highVolume := volumeAt(s, i) + volumeAt(s, i-1)
		lowVolume := volumeAt(s, i-2)
		arena.zones[obIndex] = zoneState{
			live:     true,
			top:      obTop,
			bottom:   obBtm,
			volume:   highVolume + lowVolume,
			strength: strengthPercent(highVolume, lowVolume),
		}
	}

	return arena
}

// bearishOrderBlocks 看跌订单块：收盘价下穿最近一个未被穿越的摆动低点时形成，
// 区间取摆动低点与突破 K 线之间最高影线的那根 K 线
func bearishOrderBlocks(s *Series, swings []*SwingPoint, closeMitigation bool) *zoneArena {
	n := s.Len()
	arena := newZoneArena(n)
	lastBtm := -1

	for i := 0; i < n; i++ {
		c := s.At(i)
		if i > 0 && swings[i-1] != nil && swings[i-1].Kind == SwingLow {
			lastBtm = i - 1
		}

		for j := n - 1; j >= 0; j-- {
			z := &arena.zones[j]
			if !z.live {
				continue
			}
			if z.breaker {
				if c.Low < z.bottom {
					*z = zoneState{}
				}
				continue
			}
			if (!closeMitigation && c.High > z.top) ||
				(closeMitigation && math.Max(c.Open, c.Close) > z.top) {
				z.breaker = true
				z.mitigatedAt = intPtr(i)
			}
		}

		if lastBtm < 0 || arena.crossed[lastBtm] || c.Close >= s.At(lastBtm).Low {
			continue
		}
		arena.crossed[lastBtm] = true

		obIndex := i - 1
		obTop, obBtm := s.At(obIndex).High, s.At(obIndex).Low
		// 从摆动点之后向突破方向前进，最高价不低于当前极值即更新，相同时取更靠后的那根
		for j := lastBtm + 1; j < i; j++ {
			if high := s.At(j).High; high >= obTop {
				obTop, obBtm, obIndex = high, s.At(j).Low, j
			}
		}

		lowVolume := volumeAt(s, i) + volumeAt(s, i-1)
		highVolume := volumeAt(s, i-2)
		arena.zones[obIndex] = zoneState{
			live:     true,
			top:      obTop,
			bottom:   obBtm,
			volume:   highVolume + lowVolume,
			strength: strengthPercent(highVolume, lowVolume),
		}
	}

	return arena
}

// volumeAt 序列开头不足三根时缺失的成交量按 0 计
func volumeAt(s *Series, i int) float64 {
	if i < 0 {
		return 0
	}
	return s.At(i).Volume
}

// strengthPercent min/max*100，两者都为 0 时无定义
func strengthPercent(highVolume, lowVolume float64) *float64 {
	hi := math.Max(highVolume, lowVolume)
	if hi == 0 {
		return nil
	}
	return floatPtr(math.Min(highVolume, lowVolume) / hi * 100)
}
