package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"market-structure-analyzer/internal/model"
	"market-structure-analyzer/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const reconnectDelay = 5 * time.Second

// OkxWsData 适用于 Okx V5 的通用响应结构
type OkxWsData struct {
	Arg struct {
		Channel string `json:"channel"`
		InstId  string `json:"instId"`
	} `json:"arg"`
	Data  json.RawMessage `json:"data"` // 延迟解析
	Event string          `json:"event"`
	Msg   string          `json:"msg"`
}

// OkxTradeData 适配 Okx trades 频道数据结构
type OkxTradeData struct {
	Timestamp string `json:"ts"`   // 成交时间 (毫秒字符串)
	Price     string `json:"px"`   // 成交价格
	Size      string `json:"sz"`   // 成交数量
	Side      string `json:"side"` // buy 或 sell
	TradeId   string `json:"tradeId"`
	InstId    string `json:"instId"`
}

// 映射 InstId 到 Symbol (例如 BTC-USDT-SWAP -> BTCUSDT)
type InstMap map[string]string

// Connector 订阅 Okx 逐笔成交，并按 Symbol 分发 Ticker
type Connector struct {
	wsURL        string
	instToSymbol InstMap
	mu           sync.RWMutex
	subscribers  map[string]chan model.Ticker // Symbol -> 该 Symbol 专用的通道
}

// NewConnector 创建连接器；symbols 形如 "BTCUSDT"
func NewConnector(wsURL string, symbols []string) *Connector {
	instToSymbol := make(InstMap, len(symbols))
	for _, symbol := range symbols {
		instToSymbol[SymbolToInstID(symbol)] = symbol
	}

	service.Logger.Info("Connector initialized", zap.Strings("Symbols", symbols))

	return &Connector{
		wsURL:        wsURL,
		instToSymbol: instToSymbol,
		subscribers:  make(map[string]chan model.Ticker),
	}
}

// SymbolToInstID 构造永续合约 instId：BTCUSDT -> BTC-USDT-SWAP
func SymbolToInstID(symbol string) string {
	for _, quote := range []string{"USDT", "USDC", "USD"} {
		if base, ok := strings.CutSuffix(symbol, quote); ok && base != "" {
			return base + "-" + quote + "-SWAP"
		}
	}
	return symbol
}

// Subscribe 返回某个 Symbol 的 Ticker 通道；同一 Symbol 多次调用返回同一通道
// 必须在 Start 之前调用
func (c *Connector) Subscribe(symbol string) <-chan model.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.subscribers[symbol]
	if !ok {
		// 确保通道有足够的缓冲区来应对高频数据
		ch = make(chan model.Ticker, 2048)
		c.subscribers[symbol] = ch
	}
	return ch
}

// Start 连接并读取数据，断线后自动重连，直到 ctx 结束；返回时关闭所有订阅通道
func (c *Connector) Start(ctx context.Context) {
	defer c.closeSubscribers()

	for {
		err := c.run(ctx)
		if ctx.Err() != nil {
			return
		}
		service.Logger.Error("WS session ended, attempting to reconnect...", zap.Error(err), zap.Duration("Delay", reconnectDelay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// run 一次完整的连接会话：拨号、订阅、读循环
func (c *Connector) run(ctx context.Context) error {
	service.Logger.Info("Starting Okx WS multi-symbol connection...", zap.String("URL", c.wsURL))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.wsURL, err)
	}
	defer conn.Close()

	// ctx 结束时关闭连接以打断阻塞的 ReadMessage
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteJSON(c.subscribeMessage()); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	service.Logger.Info("Subscribed to Okx TRADES streams", zap.Int("Instruments", len(c.instToSymbol)))

	return c.readLoop(conn)
}

func (c *Connector) subscribeMessage() map[string]interface{} {
	var args []map[string]string
	for instID := range c.instToSymbol {
		args = append(args, map[string]string{"channel": "trades", "instId": instID})
	}
	return map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	}
}

// readLoop 持续读取 WS 消息，直到连接出错
func (c *Connector) readLoop(conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}
		c.handleMessage(message)
	}
}

// handleMessage 解析一条 WS 消息并把其中的成交分发出去
func (c *Connector) handleMessage(message []byte) {
	var wsResp OkxWsData
	if err := json.Unmarshal(message, &wsResp); err != nil {
		return
	}

	if wsResp.Event != "" {
		if wsResp.Event == "error" {
			service.Logger.Error("Okx WS error event", zap.String("Msg", wsResp.Msg))
		}
		return // 忽略订阅成功或取消订阅事件
	}

	if wsResp.Arg.Channel != "trades" || len(wsResp.Data) == 0 {
		return
	}

	symbol, ok := c.instToSymbol[wsResp.Arg.InstId] // 根据 InstID 查找 Symbol
	if !ok {
		return
	}

	var trades []OkxTradeData
	if err := json.Unmarshal(wsResp.Data, &trades); err != nil {
		service.Logger.Error("Trade data unmarshal error", zap.Error(err))
		return
	}

	for _, okxTrade := range trades {
		ticker, err := toTicker(symbol, okxTrade)
		if err != nil {
			service.Logger.Debug("Skipping malformed trade", zap.String("Symbol", symbol), zap.Error(err))
			continue
		}
		c.dispatch(ticker)
	}
}

// toTicker 把 Okx 成交转换为内部 Ticker
func toTicker(symbol string, t OkxTradeData) (model.Ticker, error) {
	price, err := service.StringToFloat(t.Price)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("price %q: %w", t.Price, err)
	}
	volume, err := service.StringToFloat(t.Size)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("size %q: %w", t.Size, err)
	}
	timestamp, err := service.StringToInt64(t.Timestamp)
	if err != nil {
		return model.Ticker{}, fmt.Errorf("ts %q: %w", t.Timestamp, err)
	}

	return model.Ticker{
		Symbol:    symbol,
		Timestamp: timestamp,
		Price:     price,
		Volume:    volume,
	}, nil
}

// dispatch 使用 select/default 防止阻塞 Connector
func (c *Connector) dispatch(ticker model.Ticker) {
	c.mu.RLock()
	ch, ok := c.subscribers[ticker.Symbol]
	c.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- ticker:
	default:
		service.Logger.Warn("Ticker channel full! Dropping trade data", zap.String("Symbol", ticker.Symbol))
	}
}

func (c *Connector) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for symbol, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, symbol)
	}
}
