package model

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"market-structure-analyzer/internal/service"

	"go.uber.org/zap"
)

// DataEngine 负责接收 Ticker，按多个周期聚合 K 线，并把已完成的 K 线发送给结构计算层
type DataEngine struct {
	tickerChan  <-chan Ticker
	klineChan   chan KLine
	aggregators []*KlineAggregator // 每个周期一个聚合器
	symbol      string
}

// NewDataEngine 创建并初始化 DataEngine，intervals 形如 "1m", "15m", "1h"
func NewDataEngine(tickerChan <-chan Ticker, symbol string, intervals []string) (*DataEngine, error) {
	de := &DataEngine{
		tickerChan: tickerChan,
		klineChan:  make(chan KLine, 100),
		symbol:     symbol,
	}

	for _, intervalStr := range intervals {
		d, err := service.ParseIntervalDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("data engine %s: %w", symbol, err)
		}
		// 统一周期字符串的写法，例如 "60m" -> "1h"
		de.aggregators = append(de.aggregators, NewKlineAggregator(symbol, service.FormatInterval(d), d))
	}

	return de, nil
}

// Start 启动数据处理循环，直到 ctx 结束或 Ticker 通道关闭
func (de *DataEngine) Start(ctx context.Context) {
	service.Logger.Info("Data Engine started, monitoring ticker stream...", zap.String("Symbol", de.symbol))
	defer close(de.klineChan)

	for {
		select {
		case <-ctx.Done():
			return
		case ticker, ok := <-de.tickerChan:
			if !ok {
				return
			}
			// 只处理与本 DataEngine 实例 Symbol 匹配的数据
			if ticker.Symbol != de.symbol {
				continue
			}
			// 每个 Ticker 都要交给所有周期的聚合器
			for _, agg := range de.aggregators {
				completed, done := agg.ProcessTicker(ticker)
				if !done {
					continue
				}
				select {
				case de.klineChan <- completed:
				default:
					service.Logger.Warn("KLine output channel full! Dropping completed KLine.",
						zap.String("Symbol", agg.Symbol), zap.String("Interval", agg.Interval))
				}
			}
		}
	}
}

// GetKlineChannel 供结构计算层获取已完成的 K 线
func (de *DataEngine) GetKlineChannel() <-chan KLine {
	return de.klineChan
}

// KlineAggregator K 线聚合器 (根据 Ticker 聚合特定周期和 Symbol 的 K 线)
type KlineAggregator struct {
	mu       sync.Mutex
	Symbol   string        // 所属交易对
	Interval string        // 聚合周期，如 "1m", "5m"
	Duration time.Duration // 周期长度
	Current  KLine         // 正在构建的当前 K 线
}

// NewKlineAggregator 创建一个新的聚合器
func NewKlineAggregator(symbol, intervalStr string, d time.Duration) *KlineAggregator {
	return &KlineAggregator{
		Symbol:   symbol,
		Interval: intervalStr,
		Duration: d,
		Current: KLine{
			Symbol:   symbol,
			Interval: intervalStr,
			// StartTime 为零值表示尚未初始化
		},
	}
}

// ProcessTicker 把 Ticker 聚合到当前 K 线；当 Ticker 进入新的周期时返回上一根已完成的 K 线
func (agg *KlineAggregator) ProcessTicker(ticker Ticker) (KLine, bool) {
	agg.mu.Lock()
	defer agg.mu.Unlock()

	// 将 Ticker 时间戳对齐到 K 线起始时间 (UTC)
	tickerTime := time.UnixMilli(ticker.Timestamp).UTC()
	start := tickerTime.Truncate(agg.Duration)

	// 乱序到达的旧 Ticker 直接丢弃
	if !agg.Current.StartTime.IsZero() && start.Before(agg.Current.StartTime) {
		return KLine{}, false
	}

	var completed KLine
	done := false
	if !agg.Current.StartTime.IsZero() && start.After(agg.Current.StartTime) {
		completed, done = agg.Current, true
		agg.Current = agg.newKLine(start, agg.Current.Close)
	}

	if agg.Current.StartTime.IsZero() {
		agg.Current = agg.newKLine(start, ticker.Price)
	}

	// 更新 OHLCV
	agg.Current.Close = ticker.Price
	agg.Current.High = math.Max(agg.Current.High, ticker.Price)
	agg.Current.Low = math.Min(agg.Current.Low, ticker.Price)
	agg.Current.Volume += ticker.Volume

	return completed, done
}

// newKLine 新 K 线的开盘价取上一根的收盘价 (第一根取首个成交价)
func (agg *KlineAggregator) newKLine(start time.Time, open float64) KLine {
	return KLine{
		Symbol:    agg.Symbol,
		Interval:  agg.Interval,
		Open:      open,
		High:      open,
		Low:       open,
		StartTime: start,
		EndTime:   start.Add(agg.Duration).Add(-time.Millisecond),
	}
}
