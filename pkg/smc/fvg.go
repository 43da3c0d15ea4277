package smc

// FVG 识别公允价值缺口 (Fair Value Gap)
//
// 看涨缺口：前一根的最高价 < 后一根的最低价，且当前 K 线收阳；
// 看跌缺口：前一根的最低价 > 后一根的最高价，且当前 K 线收阴。
// 从 i+2 开始向后扫描，第一根回补缺口的 K 线记为 MitigatedAt。
func FVG(s *Series) []*FairValueGap {
	n := s.Len()
	out := make([]*FairValueGap, n)

	for i := 1; i < n-1; i++ {
		prev, cur, next := s.At(i-1), s.At(i), s.At(i+1)

		var gap *FairValueGap
		switch {
		case prev.High < next.Low && cur.Bullish():
			gap = &FairValueGap{Index: i, Direction: Bullish, Top: next.Low, Bottom: prev.High}
		case prev.Low > next.High && cur.Bearish():
			gap = &FairValueGap{Index: i, Direction: Bearish, Top: prev.Low, Bottom: next.High}
		default:
			continue
		}

		gap.MitigatedAt = gapMitigation(s, gap)
		out[i] = gap
	}

	return out
}

// gapMitigation 返回第一根回补缺口的 K 线下标，没有则为 nil
func gapMitigation(s *Series, gap *FairValueGap) *int {
	for j := gap.Index + 2; j < s.Len(); j++ {
		c := s.At(j)
		if gap.Direction == Bullish && c.Low <= gap.Top {
			return intPtr(j)
		}
		if gap.Direction == Bearish && c.High >= gap.Bottom {
			return intPtr(j)
		}
	}
	return nil
}
