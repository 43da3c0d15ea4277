package smc

import (
	"errors"
	"math/rand"
	"testing"
)

func swingFixture() *Series {
	return seriesOf(
		ohlcv{5, 6, 4, 5, 1},
		ohlcv{5, 7, 4.5, 6.5, 1},
		ohlcv{6.5, 8, 6, 7.5, 1},
		ohlcv{7.5, 7.8, 5, 5.5, 1},
		ohlcv{5.5, 6, 3, 3.5, 1},
		ohlcv{3.5, 5, 3.2, 4.8, 1},
		ohlcv{4.8, 6.5, 4.6, 6.2, 1},
		ohlcv{6.2, 6.4, 4, 4.2, 1},
		ohlcv{4.2, 9, 4.1, 8.8, 1},
		ohlcv{8.8, 9.2, 8, 9, 1},
	)
}

func TestSwingHighsLows_ResolvesAdjacentKinds(t *testing.T) {
	// swingLength=1 时的候选：1L 2H 3H 4H 5L 6H 7L 8L
	// 第一轮：(2,3) 删 3，(7,8) 删 8；第二轮：(2,4) 删 4；
	// 最后一个是低点 → 强制最后一根为高点
	got, err := SwingHighsLows(swingFixture(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[int]SwingPoint{
		1: {Index: 1, Kind: SwingLow, Level: 4.5},
		2: {Index: 2, Kind: SwingHigh, Level: 8},
		5: {Index: 5, Kind: SwingLow, Level: 3.2},
		6: {Index: 6, Kind: SwingHigh, Level: 6.5},
		7: {Index: 7, Kind: SwingLow, Level: 4},
		9: {Index: 9, Kind: SwingHigh, Level: 9.2},
	}
	for i, sp := range got {
		w, ok := want[i]
		if !ok {
			if sp != nil {
				t.Errorf("index %d: unexpected %s swing", i, sp.Kind)
			}
			continue
		}
		if sp == nil {
			t.Errorf("index %d: missing swing", i)
			continue
		}
		if *sp != w {
			t.Errorf("index %d: got %+v, want %+v", i, *sp, w)
		}
	}
}

func TestSwingHighsLows_LongerWindow(t *testing.T) {
	// swingLength=2 时只有 4L 与 7L 是候选，7 被删掉，末尾补一个高点
	got, err := SwingHighsLows(swingFixture(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if countNonNil(got) != 2 {
		t.Fatalf("got %d swings, want 2", countNonNil(got))
	}
	if got[4] == nil || got[4].Kind != SwingLow || got[4].Level != 3 {
		t.Errorf("index 4: got %+v, want low 3", got[4])
	}
	if got[9] == nil || got[9].Kind != SwingHigh || got[9].Level != 9.2 {
		t.Errorf("index 9: got %+v, want high 9.2", got[9])
	}
}

func TestSwingHighsLows_Wave(t *testing.T) {
	s := waveSeries()
	got, err := SwingHighsLows(s, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := waveSwings(s.Len())
	for i := range want {
		switch {
		case want[i] == nil && got[i] != nil:
			t.Errorf("index %d: unexpected %+v", i, *got[i])
		case want[i] != nil && got[i] == nil:
			t.Errorf("index %d: missing %+v", i, *want[i])
		case want[i] != nil && *want[i] != *got[i]:
			t.Errorf("index %d: got %+v, want %+v", i, *got[i], *want[i])
		}
	}
}

func TestSwingHighsLows_Alternation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, length := range []int{1, 3, 5, 10} {
		rows := make([]ohlcv, 400)
		price := 100.0
		for i := range rows {
			next := price + rng.NormFloat64()
			hi := max(price, next) + rng.Float64()
			lo := min(price, next) - rng.Float64()
			rows[i] = ohlcv{price, hi, lo, next, rng.Float64() * 100}
			price = next
		}

		got, err := SwingHighsLows(seriesOf(rows...), length)
		if err != nil {
			t.Fatalf("length=%d: %v", length, err)
		}

		var kinds []SwingKind
		for i, sp := range got {
			if sp == nil {
				continue
			}
			if sp.Index != i {
				t.Fatalf("length=%d: swing at %d carries index %d", length, i, sp.Index)
			}
			kinds = append(kinds, sp.Kind)
		}
		if len(kinds) < 2 {
			t.Fatalf("length=%d: only %d swings", length, len(kinds))
		}
		if kinds[0] != SwingLow || kinds[len(kinds)-1] != SwingHigh {
			t.Errorf("length=%d: first=%s last=%s", length, kinds[0], kinds[len(kinds)-1])
		}
		for k := 1; k < len(kinds); k++ {
			if kinds[k] == kinds[k-1] {
				t.Errorf("length=%d: adjacent %s swings at position %d", length, kinds[k], k)
			}
		}
	}
}

func TestSwingHighsLows_Degenerate(t *testing.T) {
	// 窗口超出序列长度：全部为空，不报错
	got, err := SwingHighsLows(swingFixture(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 || countNonNil(got) != 0 {
		t.Errorf("len=%d swings=%d, want 10/0", len(got), countNonNil(got))
	}

	empty, err := SwingHighsLows(seriesOf(), 1)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty series: len=%d err=%v", len(empty), err)
	}

	if _, err := SwingHighsLows(swingFixture(), 0); !errors.Is(err, ErrInvalidSwingLength) {
		t.Errorf("err=%v, want ErrInvalidSwingLength", err)
	}
}
