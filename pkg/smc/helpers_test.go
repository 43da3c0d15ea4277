package smc

import (
	"math"
	"testing"
)

// ohlcv 测试用的一行 K 线：open, high, low, close, volume
type ohlcv [5]float64

func seriesOf(rows ...ohlcv) *Series {
	candles := make([]Candle, len(rows))
	for i, r := range rows {
		candles[i] = Candle{Open: r[0], High: r[1], Low: r[2], Close: r[3], Volume: r[4]}
	}
	return NewSeries(candles, true)
}

// waveSeries 27 根 K 线：上涨 → 回调 → 创新高 → 深跌 → 反弹。
// open 取上一根收盘，high/low 在实体外各加 0.5，volume = 10+i。
func waveSeries() *Series {
	closes := []float64{100, 102, 104, 103, 101, 99, 101, 104, 107, 109, 108, 106, 104, 106,
		109, 112, 114, 113, 111, 108, 105, 102, 100, 98, 101, 103, 105}
	rows := make([]ohlcv, len(closes))
	prev := 99.0
	for i, c := range closes {
		rows[i] = ohlcv{prev, math.Max(prev, c) + 0.5, math.Min(prev, c) - 0.5, c, float64(10 + i)}
		prev = c
	}
	return seriesOf(rows...)
}

// waveSwings waveSeries 在 swingLength=2 下的摆动点
func waveSwings(n int) []*SwingPoint {
	out := make([]*SwingPoint, n)
	set := func(i int, kind SwingKind, level float64) {
		out[i] = &SwingPoint{Index: i, Kind: kind, Level: level}
	}
	set(0, SwingLow, 98.5)
	set(3, SwingHigh, 104.5)
	set(5, SwingLow, 98.5)
	set(9, SwingHigh, 109.5)
	set(12, SwingLow, 103.5)
	set(16, SwingHigh, 114.5)
	set(23, SwingLow, 97.5)
	set(26, SwingHigh, 105.5)
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func assertIndex(t *testing.T, label string, got *int, want int) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: got <nil>, want %d", label, want)
		return
	}
	if *got != want {
		t.Errorf("%s: got %d, want %d", label, *got, want)
	}
}

func countNonNil[T any](rows []*T) int {
	n := 0
	for _, r := range rows {
		if r != nil {
			n++
		}
	}
	return n
}
