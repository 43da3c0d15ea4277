package ta

import (
	"fmt"
	"sync"

	"market-structure-analyzer/pkg/smc"
)

// Params 检测器参数
type Params struct {
	SwingLength     int     `yaml:"swing_length" json:"swing_length"`
	CloseBreak      bool    `yaml:"close_break" json:"close_break"`
	CloseMitigation bool    `yaml:"close_mitigation" json:"close_mitigation"`
	RangePercent    float64 `yaml:"range_percent" json:"range_percent"`
}

// DefaultParams 与各检测器的默认值一致
func DefaultParams() Params {
	return Params{
		SwingLength:     smc.DefaultSwingLength,
		CloseBreak:      smc.DefaultCloseBreak,
		CloseMitigation: smc.DefaultCloseMitigation,
		RangePercent:    smc.DefaultRangePercent,
	}
}

// Result 一次完整分析的全部叠加表，每张表都与序列逐位对齐
type Result struct {
	Len         int
	FVG         []*smc.FairValueGap
	Swings      []*smc.SwingPoint
	Structure   []*smc.StructureBreak
	OrderBlocks []*smc.OrderBlock // 序列没有成交量时为 nil
	Liquidity   []*smc.LiquidityPool
}

// Analyze 对整段序列跑完所有检测器
//
// FVG 与摆动点互不依赖，并发执行；结构突破、订单块、流动性只读摆动点表，
// 在摆动点完成后再并发执行。
func Analyze(s *smc.Series, p Params) (*Result, error) {
	res := &Result{Len: s.Len()}

	var swingErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		res.FVG = smc.FVG(s)
	}()
	go func() {
		defer wg.Done()
		res.Swings, swingErr = smc.SwingHighsLows(s, p.SwingLength)
	}()
	wg.Wait()
	if swingErr != nil {
		return nil, fmt.Errorf("swing highs/lows: %w", swingErr)
	}

	var structErr, obErr, liqErr error
	wg.Add(3)
	go func() {
		defer wg.Done()
		res.Structure, structErr = smc.BOSCHOCH(s, res.Swings, p.CloseBreak)
	}()
	go func() {
		defer wg.Done()
		if !s.HasVolume() {
			return
		}
		res.OrderBlocks, obErr = smc.OrderBlocks(s, res.Swings, p.CloseMitigation)
	}()
	go func() {
		defer wg.Done()
		res.Liquidity, liqErr = smc.Liquidity(s, res.Swings, p.RangePercent)
	}()
	wg.Wait()

	switch {
	case structErr != nil:
		return nil, fmt.Errorf("bos/choch: %w", structErr)
	case obErr != nil:
		return nil, fmt.Errorf("order blocks: %w", obErr)
	case liqErr != nil:
		return nil, fmt.Errorf("liquidity: %w", liqErr)
	}
	return res, nil
}

// LatestBreak 返回最近被确认的结构突破 (BrokenAt 最大)，没有则为 nil
func (r *Result) LatestBreak() *smc.StructureBreak {
	var latest *smc.StructureBreak
	for _, ev := range r.Structure {
		if ev == nil {
			continue
		}
		if latest == nil || ev.BrokenAt > latest.BrokenAt ||
			(ev.BrokenAt == latest.BrokenAt && ev.Index > latest.Index) {
			latest = ev
		}
	}
	return latest
}

// Counts 各类事件数量，用于日志和报告摘要
type Counts struct {
	FVG         int `json:"fvg" yaml:"fvg"`
	Swings      int `json:"swings" yaml:"swings"`
	Structure   int `json:"structure" yaml:"structure"`
	OrderBlocks int `json:"order_blocks" yaml:"order_blocks"`
	Liquidity   int `json:"liquidity" yaml:"liquidity"`
}

func (r *Result) Counts() Counts {
	return Counts{
		FVG:         nonNil(r.FVG),
		Swings:      nonNil(r.Swings),
		Structure:   nonNil(r.Structure),
		OrderBlocks: nonNil(r.OrderBlocks),
		Liquidity:   nonNil(r.Liquidity),
	}
}

func nonNil[T any](rows []*T) int {
	n := 0
	for _, r := range rows {
		if r != nil {
			n++
		}
	}
	return n
}
