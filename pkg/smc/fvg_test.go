package smc

import "testing"

func TestFVG_Bullish(t *testing.T) {
	// i=1: high[0]=10 < low[2]=11 且收阳 → top=11, bottom=10
	// 从 i+2=3 开始回补：low[3]=12 > 11，low[4]=10.5 <= 11 → MitigatedAt=4
	s := seriesOf(
		ohlcv{9, 10, 8, 9.5, 1},
		ohlcv{10, 13, 9.8, 12.5, 1},
		ohlcv{12.5, 14, 11, 13.5, 1},
		ohlcv{13.5, 14, 12, 13, 1},
		ohlcv{13, 13.5, 10.5, 11, 1},
	)

	got := FVG(s)
	if len(got) != s.Len() {
		t.Fatalf("len=%d, want %d", len(got), s.Len())
	}
	if countNonNil(got) != 1 || got[1] == nil {
		t.Fatalf("expected a single gap at index 1, got %d gaps", countNonNil(got))
	}

	g := got[1]
	if g.Direction != Bullish {
		t.Errorf("direction=%s, want bullish", g.Direction)
	}
	assertClose(t, "top", g.Top, 11, 1e-9)
	assertClose(t, "bottom", g.Bottom, 10, 1e-9)
	assertIndex(t, "mitigated", g.MitigatedAt, 4)
}

func TestFVG_TruncatedSeriesLeavesGapOpen(t *testing.T) {
	s := seriesOf(
		ohlcv{9, 10, 8, 9.5, 1},
		ohlcv{10, 13, 9.8, 12.5, 1},
		ohlcv{12.5, 14, 11, 13.5, 1},
		ohlcv{13.5, 14, 12, 13, 1},
	)

	got := FVG(s)
	if got[1] == nil {
		t.Fatal("expected gap at index 1")
	}
	if got[1].MitigatedAt != nil {
		t.Errorf("mitigated=%d, want <nil>", *got[1].MitigatedAt)
	}
}

func TestFVG_Bearish(t *testing.T) {
	// i=1: low[0]=19 > high[2]=18 且收阴 → top=19, bottom=18
	// high[3]=18.5 >= 18 → MitigatedAt=3
	s := seriesOf(
		ohlcv{20, 21, 19, 20, 1},
		ohlcv{19, 19.5, 16, 16.5, 1},
		ohlcv{16.5, 18, 15, 15.5, 1},
		ohlcv{15.5, 18.5, 15, 18, 1},
	)

	got := FVG(s)
	if countNonNil(got) != 1 || got[1] == nil {
		t.Fatalf("expected a single gap at index 1, got %d", countNonNil(got))
	}
	g := got[1]
	if g.Direction != Bearish {
		t.Errorf("direction=%s, want bearish", g.Direction)
	}
	assertClose(t, "top", g.Top, 19, 1e-9)
	assertClose(t, "bottom", g.Bottom, 18, 1e-9)
	assertIndex(t, "mitigated", g.MitigatedAt, 3)
}

func TestFVG_CandleColourMustMatch(t *testing.T) {
	// 存在上方缺口但中间 K 线收阴，不算缺口
	s := seriesOf(
		ohlcv{9, 10, 8, 9.5, 1},
		ohlcv{12.5, 13, 9.8, 10, 1},
		ohlcv{12.5, 14, 11, 13.5, 1},
	)
	if n := countNonNil(FVG(s)); n != 0 {
		t.Errorf("got %d gaps, want 0", n)
	}
}

func TestFVG_Wave(t *testing.T) {
	s := waveSeries()
	got := FVG(s)

	tests := []struct {
		index     int
		dir       Direction
		top       float64
		bottom    float64
		mitigated int // -1 表示未回补
	}{
		{1, Bullish, 101.5, 100.5, 4},
		{4, Bearish, 102.5, 101.5, 6},
		{7, Bullish, 103.5, 101.5, 12},
		{8, Bullish, 106.5, 104.5, 11},
		{11, Bearish, 107.5, 106.5, 13},
		{14, Bullish, 108.5, 106.5, 19},
		{15, Bullish, 111.5, 109.5, 18},
		{18, Bearish, 112.5, 111.5, -1},
		{19, Bearish, 110.5, 108.5, -1},
		{20, Bearish, 107.5, 105.5, 26},
		{21, Bearish, 104.5, 102.5, 25},
		{22, Bearish, 101.5, 100.5, 24},
		{25, Bullish, 102.5, 101.5, -1},
	}

	if n := countNonNil(got); n != len(tests) {
		t.Fatalf("got %d gaps, want %d", n, len(tests))
	}
	for _, tt := range tests {
		g := got[tt.index]
		if g == nil {
			t.Errorf("index %d: missing gap", tt.index)
			continue
		}
		if g.Direction != tt.dir {
			t.Errorf("index %d: direction=%s, want %s", tt.index, g.Direction, tt.dir)
		}
		assertClose(t, "top", g.Top, tt.top, 1e-9)
		assertClose(t, "bottom", g.Bottom, tt.bottom, 1e-9)
		if tt.mitigated < 0 {
			if g.MitigatedAt != nil {
				t.Errorf("index %d: mitigated=%d, want <nil>", tt.index, *g.MitigatedAt)
			}
			continue
		}
		assertIndex(t, "mitigated", g.MitigatedAt, tt.mitigated)

		// 回补下标必须是满足条件的最小下标
		for j := tt.index + 2; j < *g.MitigatedAt; j++ {
			c := s.At(j)
			if (g.Direction == Bullish && c.Low <= g.Top) || (g.Direction == Bearish && c.High >= g.Bottom) {
				t.Errorf("index %d: earlier mitigation candidate at %d", tt.index, j)
			}
		}
	}
}

func TestFVG_Degenerate(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		rows := make([]ohlcv, n)
		for i := range rows {
			rows[i] = ohlcv{1, 2, 0.5, 1.5, 1}
		}
		got := FVG(seriesOf(rows...))
		if len(got) != n || countNonNil(got) != 0 {
			t.Errorf("n=%d: len=%d events=%d", n, len(got), countNonNil(got))
		}
	}
}
