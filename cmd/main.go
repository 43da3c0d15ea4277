package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"market-structure-analyzer/internal/api"
	"market-structure-analyzer/internal/loader"
	"market-structure-analyzer/internal/model"
	"market-structure-analyzer/internal/report"
	"market-structure-analyzer/internal/service"
	"market-structure-analyzer/internal/strategy"
	"market-structure-analyzer/pkg/ta"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	service.BindFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := service.LoadConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := service.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer service.Logger.Sync()

	params := toParams(cfg.Analysis)

	if cfg.Output.Input != "" {
		if err := runBatch(cfg, params); err != nil {
			service.Logger.Fatal("Batch analysis failed", zap.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := runLive(ctx, cfg, params); err != nil {
		service.Logger.Fatal("Live analysis failed", zap.Error(err))
	}
}

func toParams(a service.AnalysisConfig) ta.Params {
	return ta.Params{
		SwingLength:     a.SwingLength,
		CloseBreak:      a.CloseBreak,
		CloseMitigation: a.CloseMitigation,
		RangePercent:    a.RangePercent,
	}
}

// runBatch 读取 CSV，跑完全部检测器并输出报告
func runBatch(cfg *service.Config, params ta.Params) error {
	series, err := loader.LoadFile(cfg.Output.Input)
	if err != nil {
		return err
	}
	service.Logger.Info("Loaded candle series",
		zap.String("Input", cfg.Output.Input),
		zap.Int("Bars", series.Len()),
		zap.Bool("HasVolume", series.HasVolume()))
	if !series.HasVolume() {
		service.Logger.Warn("No volume column, order block detection skipped")
	}

	res, err := ta.Analyze(series, params)
	if err != nil {
		return err
	}

	rep, err := report.Build(series, res, report.Meta{Interval: cfg.Output.Interval, Params: params})
	if err != nil {
		return err
	}

	state, latest := strategy.StateFromResult(res)
	fields := []zap.Field{
		zap.String("RunID", rep.RunID),
		zap.String("State", string(state)),
		zap.Any("Summary", rep.Summary),
	}
	if latest != nil {
		fields = append(fields, zap.Any("LatestBreak", latest))
	}
	service.Logger.Info("Structure analysis complete", fields...)

	var w io.Writer = os.Stdout
	if cfg.Output.Path != "" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}
	return rep.Write(w, report.Format(cfg.Output.Format))
}

// runLive 订阅实时成交，为每个实例启动隔离的分析流水线
func runLive(ctx context.Context, cfg *service.Config, params ta.Params) error {
	if len(cfg.Instances) == 0 {
		return fmt.Errorf("no Instances configured and no --input given")
	}

	// 1. 收集所有要订阅的 Symbol
	var symbols []string
	for _, instanceCfg := range cfg.Instances {
		symbols = append(symbols, instanceCfg.Symbol)
	}

	// 2. 初始化单个 Connector (连接器只负责连接和分发数据)
	connector := api.NewConnector(cfg.Exchange.WSURL, symbols)

	// 3. 为每个实例准备 DataEngine；订阅必须在 Connector 启动前完成
	var wg sync.WaitGroup
	for instanceName, instanceCfg := range cfg.Instances {
		dataEngine, err := model.NewDataEngine(connector.Subscribe(instanceCfg.Symbol), instanceCfg.Symbol, instanceCfg.Intervals)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(name string, instance service.InstanceConfig, de *model.DataEngine) {
			defer wg.Done()
			runInstance(ctx, name, instance, de, cfg.Analysis, params)
		}(instanceName, instanceCfg, dataEngine)
	}

	// 4. 启动 Connector，直到 ctx 结束
	connector.Start(ctx)
	wg.Wait()
	return nil
}

// runInstance 消费已完成的 K 线，更新结构分析并驱动状态机
func runInstance(ctx context.Context, name string, instance service.InstanceConfig, de *model.DataEngine,
	analysis service.AnalysisConfig, params ta.Params) {
	// 使用专用的 logger
	instanceLogger := service.Logger.With(zap.String("Instance", name), zap.String("Symbol", instance.Symbol))
	instanceLogger.Info("Starting isolated structure pipeline...", zap.Strings("Intervals", instance.Intervals))

	calc := ta.NewStructureCalculator(params, analysis.MinHistory, analysis.MaxHistory, instanceLogger.Sugar())

	// 每个周期一个状态机
	machines := make(map[string]*strategy.StateMachine, len(instance.Intervals))
	for _, interval := range instance.Intervals {
		d, err := service.ParseIntervalDuration(interval)
		if err != nil {
			continue
		}
		iv := service.FormatInterval(d)
		machines[iv] = strategy.NewStateMachine(calc, iv, instanceLogger)
	}

	go de.Start(ctx)

	for kline := range de.GetKlineChannel() {
		// A: 更新结构分析
		if _, err := calc.UpdateKLine(kline); err != nil {
			instanceLogger.Error("Structure analysis failed", zap.String("Interval", kline.Interval), zap.Error(err))
			continue
		}
		// B: 状态机检查状态
		if sm, ok := machines[kline.Interval]; ok {
			sm.CheckAndTransition(kline)
		}
	}
	instanceLogger.Info("Structure pipeline stopped")
}
