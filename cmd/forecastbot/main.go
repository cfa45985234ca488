package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/forecastbot/config"
	"github.com/alejandrodnm/forecastbot/internal/adapters/marketdata"
	"github.com/alejandrodnm/forecastbot/internal/adapters/model"
	"github.com/alejandrodnm/forecastbot/internal/adapters/notify"
	"github.com/alejandrodnm/forecastbot/internal/adapters/storage"
	"github.com/alejandrodnm/forecastbot/internal/application/controller"
	"github.com/alejandrodnm/forecastbot/internal/application/evaluation"
	"github.com/alejandrodnm/forecastbot/internal/application/performance"
	"github.com/alejandrodnm/forecastbot/internal/application/portfolio"
	"github.com/alejandrodnm/forecastbot/internal/application/reconciler"
	"github.com/alejandrodnm/forecastbot/internal/domain"
	"github.com/alejandrodnm/forecastbot/internal/domain/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one data cycle and exit")
	evaluate := flag.Bool("evaluate", false, "run a full evaluation and exit")
	reconcile := flag.Bool("reconcile", false, "reconcile pending predictions and exit")
	decide := flag.Bool("decide", false, "run the live strategy once and exit")
	report := flag.Bool("report", false, "print the full report and exit")
	backtest := flag.Bool("backtest", false, "replay resolved predictions through the strategy and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("forecastbot starting",
		"config", *configPath,
		"symbol", cfg.Data.Symbol,
		"once", *once,
		"backtest", *backtest,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	client := marketdata.NewClient(cfg.Data.BaseURL)
	runner := model.NewRunner(cfg.Training.Commands, store)
	reporter := notify.NewConsole()

	engine := evaluation.NewEngine(store, store, cfg.Evaluation.LookbackDays)
	trigger := evaluation.NewTrigger(engine, runner, store, evaluation.TriggerConfig{
		Thresholds: domain.Thresholds{
			MAPE: cfg.Evaluation.MAPEThreshold,
			MAE:  cfg.Evaluation.MAEThreshold,
			RMSE: cfg.Evaluation.RMSEThreshold,
		},
		RowThreshold: cfg.Training.RowThreshold,
	})

	ledgerCfg := portfolio.Config{
		InitialCash: cfg.Trading.InitialCash,
		MinNotional: cfg.Trading.MinNotional,
		Strategy: strategy.Config{
			BuyThresholdPct:  cfg.Trading.BuyThresholdPct,
			SellThresholdPct: cfg.Trading.SellThresholdPct,
			BuyCashFraction:  cfg.Trading.BuyCashFraction,
			SellHoldFraction: cfg.Trading.SellHoldFraction,
		},
		Model:   domain.ModelType(cfg.Trading.StrategyModel),
		Horizon: cfg.Trading.StrategyHorizon,
	}
	ledger := portfolio.NewLedger(store, store, ledgerCfg)

	analyzer := performance.New(store, performance.HourlySamplesPerYear, 0.02)
	recon := reconciler.New(store, store, client)

	ctrl := controller.New(controller.Deps{
		Symbol:     cfg.Data.Symbol,
		Prices:     client,
		Candles:    store,
		Reconciler: recon,
		Engine:     engine,
		Trigger:    trigger,
		Ledger:     ledger,
		Analyzer:   analyzer,
		Forecaster: runner,
		Registry:   store,
		Reporter:   reporter,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *once:
		exitOn(ctrl.RunDataCycle(ctx), "data cycle failed")
	case *evaluate:
		exitOn(ctrl.RunFullEvaluation(ctx), "evaluation failed")
	case *reconcile:
		exitOn(ctrl.RunBackfill(ctx), "reconciliation failed")
	case *decide:
		exitOn(ctrl.RunStrategy(ctx), "strategy run failed")
	case *report:
		runReport(ctx, ctrl, reporter)
	case *backtest:
		runBacktest(ctx, store, ledgerCfg, cfg.Data.Symbol, cfg.Evaluation.LookbackDays)
	default:
		runScheduled(ctx, ctrl, cfg)
	}

	slog.Info("forecastbot stopped cleanly")
}

func runScheduled(ctx context.Context, ctrl *controller.Controller, cfg *config.Config) {
	sched := controller.NewScheduler(ctrl)
	if err := sched.Register(cfg.Data.FetchCron, cfg.Data.EvalCron, cfg.Data.BackfillCron); err != nil {
		slog.Error("failed to register jobs", "err", err)
		os.Exit(1)
	}

	// Run one cycle immediately so a fresh install has data before the
	// first cron tick.
	if err := ctrl.RunDataCycle(ctx); err != nil {
		slog.Error("initial data cycle failed", "err", err)
	}

	sched.Start()
	<-ctx.Done()
	sched.Stop()
}

func runReport(ctx context.Context, ctrl *controller.Controller, reporter *notify.Console) {
	rep, err := ctrl.Report(ctx)
	if err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}
	if err := reporter.Report(ctx, rep); err != nil {
		slog.Warn("reporter error", "err", err)
	}
}

func runBacktest(ctx context.Context, store *storage.SQLiteStorage, cfg portfolio.Config, symbol string, lookbackDays int) {
	res, err := portfolio.Backtest(ctx, store, store, cfg, symbol, lookbackDays)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	perf := performance.Compute(res.Samples, performance.HourlySamplesPerYear, 0.02)
	slog.Info("backtest complete",
		"symbol", res.Symbol,
		"trades", res.Trades,
		"initial_value", res.InitialValue,
		"final_value", res.FinalValue,
		"total_return_pct", perf.TotalReturn*100,
		"sharpe", perf.SharpeRatio,
		"max_drawdown_pct", perf.MaxDrawdown*100,
	)
}

func exitOn(err error, msg string) {
	if err != nil {
		slog.Error(msg, "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
