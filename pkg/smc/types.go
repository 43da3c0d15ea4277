package smc

// Direction 事件方向
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

func (d Direction) String() string {
	return string(d)
}

// SwingKind 摆动点类型
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// EventKind 结构突破类型
type EventKind string

const (
	BOS   EventKind = "BOS"   // Break of Structure，趋势延续
	CHOCH EventKind = "CHOCH" // Change of Character，趋势反转
)

// PoolSide 流动性池所在一侧
type PoolSide string

const (
	BuySide  PoolSide = "buy-side"  // 由摆动高点聚集而成
	SellSide PoolSide = "sell-side" // 由摆动低点聚集而成
)

// FairValueGap 三根 K 线形成的价格失衡缺口，锚定在中间那根
type FairValueGap struct {
	Index       int       `json:"index" yaml:"index"`
	Direction   Direction `json:"direction" yaml:"direction"`
	Top         float64   `json:"top" yaml:"top"`
	Bottom      float64   `json:"bottom" yaml:"bottom"`
	MitigatedAt *int      `json:"mitigated_at,omitempty" yaml:"mitigated_at,omitempty"`
}

// SwingPoint 摆动高/低点
type SwingPoint struct {
	Index int       `json:"index" yaml:"index"`
	Kind  SwingKind `json:"kind" yaml:"kind"`
	Level float64   `json:"level" yaml:"level"`
}

// StructureBreak 已被确认的 BOS/CHOCH，锚定在形态的枢轴摆动点
type StructureBreak struct {
	Index     int       `json:"index" yaml:"index"`
	Kind      EventKind `json:"kind" yaml:"kind"`
	Direction Direction `json:"direction" yaml:"direction"`
	Level     float64   `json:"level" yaml:"level"`
	BrokenAt  int       `json:"broken_at" yaml:"broken_at"`
}

// OrderBlock 订单块 (供需区间)
type OrderBlock struct {
	Index           int       `json:"index" yaml:"index"`
	Direction       Direction `json:"direction" yaml:"direction"`
	Top             float64   `json:"top" yaml:"top"`
	Bottom          float64   `json:"bottom" yaml:"bottom"`
	Volume          float64   `json:"volume" yaml:"volume"`
	StrengthPercent *float64  `json:"strength_percent,omitempty" yaml:"strength_percent,omitempty"`
	MitigatedAt     *int      `json:"mitigated_at,omitempty" yaml:"mitigated_at,omitempty"`
}

// LiquidityPool 相近摆动点聚集形成的流动性价位
type LiquidityPool struct {
	Index    int      `json:"index" yaml:"index"`
	Side     PoolSide `json:"side" yaml:"side"`
	Level    float64  `json:"level" yaml:"level"`
	EndIndex int      `json:"end_index" yaml:"end_index"`
	SweptAt  *int     `json:"swept_at,omitempty" yaml:"swept_at,omitempty"`
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
