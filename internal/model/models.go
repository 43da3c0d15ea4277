package model

import "time"

// Ticker 代表最小粒度的市场数据 (逐笔成交)
type Ticker struct {
	Symbol    string  // 所属交易对，例如 "BTCUSDT"
	Timestamp int64   // 毫秒时间戳
	Price     float64 // 成交价格
	Volume    float64 // 成交数量
}

// KLine 代表聚合后的 K 线数据
type KLine struct {
	Symbol    string // 所属交易对
	Interval  string // 周期，例如 "1m", "5m", "1h"
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	StartTime time.Time // 周期起始时间 (含)
	EndTime   time.Time // 周期结束时间 (含，毫秒精度)
}
