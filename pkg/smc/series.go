// Package smc 实现基于 K 线序列的市场结构识别 (Smart Money Concepts)。
//
// 所有检测器都是对完整序列的一次性批处理：输入不可变的 Series，输出与序列逐位对齐的表，
// 没有事件的位置为 nil。
package smc

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthMismatch 摆动点表与 K 线序列长度不一致
	ErrLengthMismatch = errors.New("swing table length does not match series length")
	// ErrMissingVolume 订单块检测需要成交量
	ErrMissingVolume = errors.New("series has no volume column")
	// ErrInvalidSwingLength swingLength 必须 >= 1
	ErrInvalidSwingLength = errors.New("swing length must be at least 1")
)

// Candle 单根 K 线 (OHLCV)
type Candle struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Bullish 收盘价高于开盘价
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish 收盘价低于开盘价
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Series 不可变的 K 线序列，下标即位置索引 (从 0 开始，连续)
type Series struct {
	candles   []Candle
	hasVolume bool
}

// NewSeries 复制传入的 K 线，构造一个不可变序列
func NewSeries(candles []Candle, hasVolume bool) *Series {
	cp := make([]Candle, len(candles))
	copy(cp, candles)
	return &Series{candles: cp, hasVolume: hasVolume}
}

// Len 序列长度 N
func (s *Series) Len() int { return len(s.candles) }

// At 返回第 i 根 K 线的副本
func (s *Series) At(i int) Candle { return s.candles[i] }

// HasVolume 序列是否携带成交量
func (s *Series) HasVolume() bool { return s.hasVolume }

// Highs 返回最高价序列的副本
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.High
	}
	return out
}

// Lows 返回最低价序列的副本
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Low
	}
	return out
}

// checkSwings 下游检测器只信任摆动点表的形状
func (s *Series) checkSwings(swings []*SwingPoint) error {
	if len(swings) != len(s.candles) {
		return fmt.Errorf("%w: series=%d swings=%d", ErrLengthMismatch, len(s.candles), len(swings))
	}
	return nil
}
