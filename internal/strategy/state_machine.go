package strategy

import (
	"sync"

	"market-structure-analyzer/internal/model"
	"market-structure-analyzer/internal/service"
	"market-structure-analyzer/pkg/smc"
	"market-structure-analyzer/pkg/ta"

	"go.uber.org/zap"
)

// 市场结构状态常量
type MarketState string

const (
	// 最近一次确认的突破为 BOS：趋势延续
	StateBullishStructure MarketState = "BULLISH_STRUCTURE"
	StateBearishStructure MarketState = "BEARISH_STRUCTURE"

	// 最近一次确认的突破为 CHOCH：趋势反转
	StateBullishReversal MarketState = "BULLISH_REVERSAL"
	StateBearishReversal MarketState = "BEARISH_REVERSAL"

	// 有分析结果但还没有任何确认的突破
	StateRanging MarketState = "RANGING"

	// 初始状态
	StateInitial MarketState = "INITIALIZING"
)

// ResultSource 提供某个周期最近一次的分析结果 (由 ta.StructureCalculator 实现)
type ResultSource interface {
	GetResult(interval string) (*ta.Result, error)
}

// StateMachine 根据最近一次被确认的 BOS/CHOCH 给出市场结构偏向，只做标注，不产生订单
type StateMachine struct {
	mu           sync.RWMutex
	CurrentState MarketState
	LastBreak    *smc.StructureBreak // 决定当前状态的突破事件
	source       ResultSource
	Interval     string // 驱动状态机的周期
	logger       *zap.Logger
}

// NewStateMachine 初始化状态机
func NewStateMachine(source ResultSource, interval string, logger *zap.Logger) *StateMachine {
	if logger == nil {
		logger = service.Logger
	}
	return &StateMachine{
		CurrentState: StateInitial,
		source:       source,
		Interval:     interval,
		logger:       logger,
	}
}

// StateFromResult 由分析结果推导状态
func StateFromResult(res *ta.Result) (MarketState, *smc.StructureBreak) {
	if res == nil {
		return StateInitial, nil
	}
	latest := res.LatestBreak()
	if latest == nil {
		return StateRanging, nil
	}
	switch {
	case latest.Kind == smc.CHOCH && latest.Direction == smc.Bullish:
		return StateBullishReversal, latest
	case latest.Kind == smc.CHOCH:
		return StateBearishReversal, latest
	case latest.Direction == smc.Bullish:
		return StateBullishStructure, latest
	default:
		return StateBearishStructure, latest
	}
}

// CheckAndTransition 由 Interval 周期的已完成 K 线驱动，其他周期忽略
func (sm *StateMachine) CheckAndTransition(kline model.KLine) {
	if kline.Interval != sm.Interval {
		return
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	res, err := sm.source.GetResult(sm.Interval)
	if err != nil {
		sm.logger.Debug("Structure result not ready, skipping state transition.", zap.String("Interval", sm.Interval))
		return
	}

	newState, latest := StateFromResult(res)
	sm.LastBreak = latest
	if newState == sm.CurrentState {
		return
	}

	fields := []zap.Field{
		zap.String("From", string(sm.CurrentState)),
		zap.String("To", string(newState)),
		zap.String("Interval", sm.Interval),
		zap.Time("KLineStart", kline.StartTime),
	}
	if latest != nil {
		fields = append(fields,
			zap.String("Event", string(latest.Kind)),
			zap.Float64("Level", latest.Level),
			zap.Int("BrokenAt", latest.BrokenAt),
		)
	}
	sm.logger.Info("!!! State Transition !!!", fields...)
	sm.CurrentState = newState
}

// GetCurrentState 查询当前状态
func (sm *StateMachine) GetCurrentState() MarketState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.CurrentState
}
