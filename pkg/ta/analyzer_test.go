package ta

import (
	"errors"
	"math"
	"testing"
	"time"

	"market-structure-analyzer/internal/model"
	"market-structure-analyzer/pkg/smc"

	"go.uber.org/zap"
)

var waveCloses = []float64{100, 102, 104, 103, 101, 99, 101, 104, 107, 109, 108, 106, 104, 106,
	109, 112, 114, 113, 111, 108, 105, 102, 100, 98, 101, 103, 105}

// waveKLines 上涨 → 回调 → 创新高 → 深跌 → 反弹，每小时一根
func waveKLines() []model.KLine {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.KLine, len(waveCloses))
	prev := 99.0
	for i, c := range waveCloses {
		out[i] = model.KLine{
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			Open:      prev,
			High:      math.Max(prev, c) + 0.5,
			Low:       math.Min(prev, c) - 0.5,
			Close:     c,
			Volume:    float64(10 + i),
			StartTime: start.Add(time.Duration(i) * time.Hour),
		}
		prev = c
	}
	return out
}

func waveSeries(hasVolume bool) *smc.Series {
	h := History{KLines: waveKLines()}
	s := h.Series()
	if hasVolume {
		return s
	}
	candles := make([]smc.Candle, s.Len())
	for i := range candles {
		candles[i] = s.At(i)
	}
	return smc.NewSeries(candles, false)
}

func waveParams() Params {
	p := DefaultParams()
	p.SwingLength = 2
	return p
}

func TestAnalyze_Wave(t *testing.T) {
	res, err := Analyze(waveSeries(true), waveParams())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := Counts{FVG: 13, Swings: 8, Structure: 2, OrderBlocks: 2, Liquidity: 1}
	if got := res.Counts(); got != want {
		t.Errorf("counts=%+v, want %+v", got, want)
	}

	latest := res.LatestBreak()
	if latest == nil || latest.Kind != smc.CHOCH || latest.Direction != smc.Bearish ||
		latest.Index != 12 || latest.BrokenAt != 21 {
		t.Errorf("latest break: %+v", latest)
	}
	if res.Len != len(waveCloses) || len(res.FVG) != res.Len || len(res.Liquidity) != res.Len {
		t.Errorf("tables not aligned to series length %d", res.Len)
	}
}

func TestAnalyze_NoVolumeSkipsOrderBlocks(t *testing.T) {
	res, err := Analyze(waveSeries(false), waveParams())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.OrderBlocks != nil {
		t.Errorf("order blocks computed without volume: %d rows", len(res.OrderBlocks))
	}
	if res.Counts().Structure != 2 {
		t.Errorf("structure count=%d, want 2", res.Counts().Structure)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	p := waveParams()
	p.SwingLength = 0
	if _, err := Analyze(waveSeries(true), p); !errors.Is(err, smc.ErrInvalidSwingLength) {
		t.Errorf("err=%v, want ErrInvalidSwingLength", err)
	}

	p = waveParams()
	p.RangePercent = -0.01
	if _, err := Analyze(waveSeries(true), p); err == nil {
		t.Error("expected error for negative range percent")
	}
}

func TestStructureCalculator_UpdateKLine(t *testing.T) {
	calc := NewStructureCalculator(waveParams(), 10, 100, zap.NewNop().Sugar())
	klines := waveKLines()

	for i, k := range klines {
		res, err := calc.UpdateKLine(k)
		if err != nil {
			t.Fatalf("kline %d: %v", i, err)
		}
		if i < 9 && res != nil {
			t.Fatalf("kline %d: analysis ran before MinHistoryLen", i)
		}
		if i >= 9 && res == nil {
			t.Fatalf("kline %d: no analysis result", i)
		}
	}

	res, err := calc.GetResult("1h")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got := res.Counts(); got.Structure != 2 || got.OrderBlocks != 2 {
		t.Errorf("counts=%+v", got)
	}

	// 重复推送最后一根 K 线被忽略
	if res, err := calc.UpdateKLine(klines[len(klines)-1]); res != nil || err != nil {
		t.Errorf("duplicate kline: res=%v err=%v", res, err)
	}
	if calc.Len("1h") != len(klines) {
		t.Errorf("len=%d, want %d", calc.Len("1h"), len(klines))
	}

	if _, err := calc.GetResult("4h"); err == nil {
		t.Error("expected error for unknown interval")
	}
}

func TestStructureCalculator_BoundedWindow(t *testing.T) {
	calc := NewStructureCalculator(waveParams(), 5, 12, zap.NewNop().Sugar())
	klines := waveKLines()
	for _, k := range klines {
		if _, err := calc.UpdateKLine(k); err != nil {
			t.Fatal(err)
		}
	}
	if calc.Len("1h") != 12 {
		t.Fatalf("len=%d, want 12", calc.Len("1h"))
	}
	res, err := calc.GetResult("1h")
	if err != nil {
		t.Fatal(err)
	}
	if res.Len != 12 {
		t.Errorf("result len=%d, want 12", res.Len)
	}
}
