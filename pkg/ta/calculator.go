package ta

import (
	"fmt"
	"sync"

	"market-structure-analyzer/internal/model"
	"market-structure-analyzer/pkg/smc"

	"go.uber.org/zap"
)

// History 单个周期的 K 线窗口以及最近一次分析结果
type History struct {
	Symbol   string
	Interval string
	KLines   []model.KLine // 已完成的 K 线，按时间顺序
	Result   *Result       // 最近一次对整个窗口的分析结果
}

// Series 把窗口内的 K 线转换为检测器使用的序列
func (h *History) Series() *smc.Series {
	candles := make([]smc.Candle, len(h.KLines))
	for i, k := range h.KLines {
		candles[i] = smc.Candle{Open: k.Open, High: k.High, Low: k.Low, Close: k.Close, Volume: k.Volume}
	}
	return smc.NewSeries(candles, true)
}

// StructureCalculator 维护各周期的 K 线窗口，每根新 K 线收盘后对整个窗口重新跑一遍检测
type StructureCalculator struct {
	mu            sync.RWMutex
	HistoryMap    map[string]*History // Key: K 线周期 (e.g., "1h", "15m")
	MinHistoryLen int                 // 开始分析所需的最少 K 线数
	MaxHistoryLen int                 // 每个周期最多保留的 K 线数
	Params        Params
	Logger        *zap.SugaredLogger
}

// NewStructureCalculator 初始化结构计算器
func NewStructureCalculator(params Params, minHistory, maxHistory int, logger *zap.SugaredLogger) *StructureCalculator {
	if maxHistory < minHistory {
		maxHistory = minHistory
	}
	return &StructureCalculator{
		HistoryMap:    make(map[string]*History),
		MinHistoryLen: minHistory,
		MaxHistoryLen: maxHistory,
		Params:        params,
		Logger:        logger,
	}
}

// UpdateKLine 追加一根已完成的 K 线，并在数据足够时重新分析
// 返回本次的分析结果；数据不足或重复 K 线时返回 nil
func (tc *StructureCalculator) UpdateKLine(kline model.KLine) (*Result, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	interval := kline.Interval

	h, ok := tc.HistoryMap[interval]
	if !ok {
		h = &History{
			Symbol:   kline.Symbol,
			Interval: interval,
			KLines:   make([]model.KLine, 0, tc.MaxHistoryLen),
		}
		tc.HistoryMap[interval] = h
		tc.Logger.Debugw("Initialized structure history for interval", "interval", interval)
	}

	// 同一根 K 线重复推送时忽略；早于窗口末尾的 K 线同样忽略
	if n := len(h.KLines); n > 0 && !kline.StartTime.After(h.KLines[n-1].StartTime) {
		return nil, nil
	}

	h.KLines = append(h.KLines, kline)
	if len(h.KLines) > tc.MaxHistoryLen {
		h.KLines = h.KLines[len(h.KLines)-tc.MaxHistoryLen:]
	}

	if len(h.KLines) < tc.MinHistoryLen {
		tc.Logger.Debugw("Not enough history for structure analysis", "interval", interval, "len", len(h.KLines))
		return nil, nil
	}

	res, err := Analyze(h.Series(), tc.Params)
	if err != nil {
		return nil, fmt.Errorf("analyze %s %s: %w", h.Symbol, interval, err)
	}
	h.Result = res

	c := res.Counts()
	tc.Logger.Debugw("Structure analysis updated",
		"interval", interval,
		"bars", res.Len,
		"fvg", c.FVG,
		"swings", c.Swings,
		"breaks", c.Structure,
		"orderBlocks", c.OrderBlocks,
		"liquidity", c.Liquidity,
	)
	return res, nil
}

// GetResult 用于查询特定周期最近一次的分析结果
func (tc *StructureCalculator) GetResult(interval string) (*Result, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	h, ok := tc.HistoryMap[interval]
	if !ok || h.Result == nil {
		return nil, fmt.Errorf("structure result not available or history too short for interval %s", interval)
	}
	return h.Result, nil
}

// Len 当前周期窗口内的 K 线数量
func (tc *StructureCalculator) Len(interval string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if h, ok := tc.HistoryMap[interval]; ok {
		return len(h.KLines)
	}
	return 0
}
