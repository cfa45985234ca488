package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Trading    TradingConfig    `yaml:"trading"`
	Training   TrainingConfig   `yaml:"training"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

// DataConfig controla la ingesta de datos y los schedules.
type DataConfig struct {
	Symbol       string `yaml:"symbol"`
	BaseURL      string `yaml:"base_url"`      // API de mercado (estilo Bybit v5)
	FetchCron    string `yaml:"fetch_cron"`    // ciclo de datos + estrategia
	EvalCron     string `yaml:"eval_cron"`     // evaluación completa
	BackfillCron string `yaml:"backfill_cron"` // reconciliación de actuals
}

// EvaluationConfig controla el cálculo de métricas y los umbrales de retrain.
type EvaluationConfig struct {
	LookbackDays  int     `yaml:"lookback_days"`
	MAPEThreshold float64 `yaml:"mape_threshold"` // % máximo aceptable
	MAEThreshold  float64 `yaml:"mae_threshold"`
	RMSEThreshold float64 `yaml:"rmse_threshold"`
}

// TradingConfig controla la estrategia de trading simulado.
type TradingConfig struct {
	InitialCash      float64 `yaml:"initial_cash"`
	BuyThresholdPct  float64 `yaml:"buy_threshold_pct"`
	SellThresholdPct float64 `yaml:"sell_threshold_pct"`
	BuyCashFraction  float64 `yaml:"buy_cash_fraction"`
	SellHoldFraction float64 `yaml:"sell_hold_fraction"`
	MinNotional      float64 `yaml:"min_notional"` // órdenes por debajo se saltan
	// StrategyModel fija qué modelo alimenta la estrategia live. Decisión
	// explícita de configuración: no se infiere del mejor métrico del momento.
	StrategyModel   string `yaml:"strategy_model"`
	StrategyHorizon string `yaml:"strategy_horizon"`
}

// TrainingConfig controla el re-entrenamiento externo.
type TrainingConfig struct {
	// RowThreshold: filas nuevas ingeridas que disparan un retrain por volumen.
	RowThreshold int `yaml:"row_threshold"`
	// Commands mapea tipo de modelo → comando externo de entrenamiento.
	Commands map[string]string `yaml:"commands"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		cfg.Data.BaseURL = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Data.Symbol == "" {
		cfg.Data.Symbol = "BTC-USD"
	}
	if cfg.Data.BaseURL == "" {
		cfg.Data.BaseURL = "https://api.bybit.com"
	}
	if cfg.Data.FetchCron == "" {
		cfg.Data.FetchCron = "@hourly"
	}
	if cfg.Data.EvalCron == "" {
		cfg.Data.EvalCron = "@daily"
	}
	if cfg.Data.BackfillCron == "" {
		cfg.Data.BackfillCron = "@hourly"
	}
	if cfg.Evaluation.LookbackDays <= 0 {
		cfg.Evaluation.LookbackDays = 30
	}
	if cfg.Evaluation.MAPEThreshold <= 0 {
		cfg.Evaluation.MAPEThreshold = 10.0
	}
	if cfg.Evaluation.MAEThreshold <= 0 {
		cfg.Evaluation.MAEThreshold = 500.0
	}
	if cfg.Evaluation.RMSEThreshold <= 0 {
		cfg.Evaluation.RMSEThreshold = 600.0
	}
	if cfg.Trading.InitialCash <= 0 {
		cfg.Trading.InitialCash = 10000
	}
	if cfg.Trading.BuyThresholdPct <= 0 {
		cfg.Trading.BuyThresholdPct = 0.02
	}
	if cfg.Trading.SellThresholdPct <= 0 {
		cfg.Trading.SellThresholdPct = 0.02
	}
	if cfg.Trading.BuyCashFraction <= 0 {
		cfg.Trading.BuyCashFraction = 0.10
	}
	if cfg.Trading.SellHoldFraction <= 0 {
		cfg.Trading.SellHoldFraction = 0.25
	}
	if cfg.Trading.MinNotional <= 0 {
		cfg.Trading.MinNotional = 10
	}
	if cfg.Trading.StrategyModel == "" {
		cfg.Trading.StrategyModel = "arima"
	}
	if cfg.Trading.StrategyHorizon == "" {
		cfg.Trading.StrategyHorizon = "24h"
	}
	if cfg.Training.RowThreshold <= 0 {
		cfg.Training.RowThreshold = 24
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "forecastbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
