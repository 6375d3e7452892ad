// cmd/backtest is the CLI entrypoint for running one strategy over one
// or more CSV data feeds: flag-provided config path, structured
// startup/shutdown logging, context.WithCancel wired to SIGINT/SIGTERM,
// a one-shot batch run rather than a long-lived HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/jaxquant/backtest/internal/broker"
	"github.com/jaxquant/backtest/internal/config"
	"github.com/jaxquant/backtest/internal/engine"
	"github.com/jaxquant/backtest/internal/observer"
	"github.com/jaxquant/backtest/internal/persist"
	"github.com/jaxquant/backtest/internal/resample"
	"github.com/jaxquant/backtest/internal/risk"
	"github.com/jaxquant/backtest/internal/strategy"
	"github.com/jaxquant/backtest/internal/telemetry"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to run config JSON (required)")
	dbPath := flag.String("db", "", "path to SQLite ledger file (optional, skip persistence if empty)")
	metricsPath := flag.String("metrics-out", "", "path to write Prometheus text-format metrics (optional, skip if empty)")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("backtest: -config is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("backtest: shutdown signal received")
		cancel()
	}()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("backtest: load config: %v", err)
	}

	runID := telemetry.NewRunID()
	ctx = telemetry.WithRunInfo(ctx, telemetry.RunInfo{RunID: runID, StrategyID: cfg.StrategyID})

	log.Printf("starting backtest v%s (built %s) run=%s strategy=%s", version, buildTime, runID, cfg.StrategyID)
	telemetry.LogRunStart(ctx, cfg.StrategyID)
	started := time.Now()

	if err := run(ctx, cfg, *dbPath, *metricsPath); err != nil {
		telemetry.LogRunEnd(ctx, cfg.StrategyID, time.Since(started), err)
		log.Fatalf("backtest: %v", err)
	}
	telemetry.LogRunEnd(ctx, cfg.StrategyID, time.Since(started), nil)
}

func run(ctx context.Context, cfg *config.Config, dbPath, metricsPath string) error {
	br := broker.New(brokerConfig(cfg.Broker))

	metrics := telemetry.NewMetrics()
	runID := telemetry.RunInfoFromContext(ctx).RunID
	br.UseMetrics(metrics)

	registry := strategy.NewRegistry()
	if err := strategy.RegisterBuiltins(registry); err != nil {
		return fmt.Errorf("register strategies: %w", err)
	}

	cerebro := engine.New(br)
	cerebro.UseMetrics(metrics, runID)
	lastPrices := make(map[string]float64)

	var boundStrategy strategy.Strategy
	for _, fc := range cfg.Feeds {
		bars, err := engine.LoadCSVBars(fc.DataFile)
		if err != nil {
			return fmt.Errorf("load feed %s: %w", fc.DataID, err)
		}
		params := resampleParams(fc)
		feed := engine.NewFeed(fc.DataID, bars, params)
		cerebro.AddFeed(feed)

		if boundStrategy == nil {
			binder := strategy.NewBinder(fc.DataID, br, feed.Data)
			s, err := registry.New(cfg.StrategyID, binder)
			if err != nil {
				return fmt.Errorf("construct strategy %s: %w", cfg.StrategyID, err)
			}
			if gated, ok := s.(interface{ UseRiskGate(*risk.Enforcer) }); ok {
				policyPath := cfg.RiskPolicy
				policy, err := risk.LoadPolicy(policyPath)
				if err != nil {
					return fmt.Errorf("load risk policy: %w", err)
				}
				gated.UseRiskGate(risk.NewEnforcer(policy))
			}
			cerebro.AddStrategy(s)
			boundStrategy = s
		}
	}

	brokerObs := observer.NewBrokerObserver(br, lastPrices)
	tradesObs := observer.NewTradesObserver(true)
	ddObs := observer.NewDrawDownObserver(br, lastPrices)
	cerebro.AddObserver(brokerObs)
	cerebro.AddObserver(tradesObs)
	cerebro.AddObserver(ddObs)

	txAnalyzer := observer.NewTransactionsAnalyzer()
	cerebro.AddAnalyzer(txAnalyzer)

	results, err := cerebro.Run()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if dbPath != "" {
		if err := persistResults(ctx, dbPath, cfg.StrategyID, br, results); err != nil {
			return fmt.Errorf("persist results: %w", err)
		}
	}

	printReport(cfg.StrategyID, br, lastPrices, tradesObs.Stats(), ddObs)

	if metricsPath != "" {
		if err := writeMetrics(metricsPath, metrics); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func writeMetrics(path string, metrics *telemetry.Metrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return metrics.WriteText(f)
}

func brokerConfig(bc config.BrokerConfig) broker.Config {
	cfg := broker.Config{Cash: bc.Cash}

	switch bc.FillerKind {
	case "fixed_bar_perc":
		cfg.Filler = broker.FixedBarPerc{Perc: bc.FillerSize}
	case "bar_point_perc":
		cfg.Filler = broker.BarPointPerc{MinMov: bc.FillerMinMov, Perc: bc.FillerSize}
	default:
		cfg.Filler = broker.FixedSize{Size: bc.FillerSize}
	}

	switch bc.CommissionKind {
	case "percentage":
		cfg.Commission = broker.PercentageCommission{Pct: bc.CommissionRate}
	default:
		cfg.Commission = broker.PerShareCommission{PerShare: bc.CommissionRate}
	}

	return cfg
}

func resampleParams(fc config.FeedConfig) *resample.Params {
	if fc.ResampleTimeframe == "" {
		return nil
	}
	var tf resample.TimeFrame
	switch fc.ResampleTimeframe {
	case "minutes":
		tf = resample.Minutes
	case "days":
		tf = resample.Days
	case "weeks":
		tf = resample.Weeks
	default:
		return nil
	}
	size := fc.ResampleSize
	if size <= 0 {
		size = 1
	}
	p := resample.DefaultParams(tf, size)
	return &p
}

func persistResults(ctx context.Context, dbPath, strategyID string, br *broker.Broker, results map[string]map[string]any) error {
	store, err := persist.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := telemetry.RunInfoFromContext(ctx).RunID
	started := time.Now()
	if err := store.StartRun(ctx, runID, strategyID, started); err != nil {
		return err
	}
	for _, t := range br.ClosedTrades() {
		if err := store.SaveTrade(ctx, runID, t.DataID, t); err != nil {
			return err
		}
	}
	for name, analysis := range results {
		if err := store.SaveAnalysis(ctx, runID, name, analysis); err != nil {
			return err
		}
	}
	return store.FinishRun(ctx, runID, time.Now(), br.GetCash(), br.GetCash())
}

func printReport(strategyID string, br *broker.Broker, lastPrices map[string]float64, stats observer.TradeStats, dd *observer.DrawDownObserver) {
	fmt.Printf("\n=== backtest report: %s ===\n\n", strategyID)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Final cash", fmt.Sprintf("$%.2f", br.GetCash()))
	table.Append("Final value", fmt.Sprintf("$%.2f", br.GetValue(lastPrices)))
	table.Append("Total trades", fmt.Sprintf("%d", stats.TotalTrades))
	table.Append("Winning trades", fmt.Sprintf("%d", stats.TradesPlus))
	table.Append("Losing trades", fmt.Sprintf("%d", stats.TradesMinus))
	table.Append("Max drawdown", fmt.Sprintf("%.2f%%", dd.MaxDrawdownPct()))
	table.Render()
}
