package storage

// sqlite.go — persistencia única del sistema: las cuatro tablas durables
// (ledger de predicciones, log de métricas, estado del portfolio + log de
// transacciones), la serie de valor, la cache local de barras, el catálogo
// de versiones de modelo y los dos contadores escalares de retrain.
//
// Modelo single-writer: el scheduler ejecuta los jobs en serie, así que
// una única conexión basta y sobra.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
-- Ledger de predicciones. ts es el instante OBJETIVO de la predicción.
-- actual/error se rellenan una sola vez en la reconciliación.
CREATE TABLE IF NOT EXISTS predictions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ts         DATETIME NOT NULL,
    symbol     TEXT     NOT NULL,
    horizon    TEXT     NOT NULL,
    model_type TEXT     NOT NULL,
    predicted  REAL     NOT NULL,
    actual     REAL,
    error      REAL
);

-- Como mucho una predicción pendiente por (ts, symbol, model, horizon):
-- los duplicados se sobreescriben, no se acumulan.
CREATE UNIQUE INDEX IF NOT EXISTS idx_pred_key
    ON predictions(ts, symbol, model_type, horizon);
CREATE INDEX IF NOT EXISTS idx_pred_pending ON predictions(ts) WHERE actual IS NULL;

-- Log append-only de métricas de evaluación
CREATE TABLE IF NOT EXISTS metrics (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    computed_at DATETIME NOT NULL,
    model_type  TEXT     NOT NULL,
    horizon     TEXT     NOT NULL,
    symbol      TEXT     NOT NULL DEFAULT '',
    mae         REAL     NOT NULL,
    rmse        REAL     NOT NULL,
    mape        REAL     NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_key ON metrics(model_type, horizon, computed_at);

-- Estado singleton del portfolio (fila id=1, holdings como JSON)
CREATE TABLE IF NOT EXISTS portfolio (
    id       INTEGER PRIMARY KEY CHECK (id = 1),
    cash     REAL NOT NULL,
    holdings TEXT NOT NULL
);

-- Log append-only de transacciones ejecutadas
CREATE TABLE IF NOT EXISTS transactions (
    id       TEXT PRIMARY KEY,
    ts       DATETIME NOT NULL,
    symbol   TEXT     NOT NULL,
    type     TEXT     NOT NULL,
    quantity REAL     NOT NULL,
    price    REAL     NOT NULL,
    total    REAL     NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tx_ts ON transactions(ts DESC);

-- Serie temporal de valor del portfolio
CREATE TABLE IF NOT EXISTS portfolio_values (
    ts    DATETIME NOT NULL,
    value REAL     NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_values_ts ON portfolio_values(ts);

-- Cache local de barras OHLC (fuente de actuals de primera mano)
CREATE TABLE IF NOT EXISTS candles (
    symbol TEXT     NOT NULL,
    ts     DATETIME NOT NULL,
    open   REAL NOT NULL,
    high   REAL NOT NULL,
    low    REAL NOT NULL,
    close  REAL NOT NULL,
    volume REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, ts)
);

-- Catálogo de versiones de modelo entrenadas
CREATE TABLE IF NOT EXISTS model_versions (
    id          TEXT PRIMARY KEY,
    model_type  TEXT     NOT NULL,
    trained_at  DATETIME NOT NULL,
    range_from  DATETIME,
    range_to    DATETIME,
    hyperparams TEXT NOT NULL DEFAULT '{}',
    mae         REAL NOT NULL DEFAULT 0,
    rmse        REAL NOT NULL DEFAULT 0,
    mape        REAL NOT NULL DEFAULT 0
);

-- Escalares sueltos (contador de filas nuevas, timestamp del último retrain)
CREATE TABLE IF NOT EXISTS counters (
    name  TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// SQLiteStorage implementa todos los ports de persistencia sobre un único
// archivo SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica
// el schema. Una ruta inexistente no es un error: cold-start.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- contadores escalares ---

const (
	counterRows        = "rows_since_retrain"
	counterLastRetrain = "last_retrain_at"
)

// RowsSinceRetrain devuelve el contador de filas ingeridas desde el último
// retrain. Ausente = 0 (cold-start).
func (s *SQLiteStorage) RowsSinceRetrain(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT CAST(value AS INTEGER) FROM counters WHERE name = ?`, counterRows,
	).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("storage.RowsSinceRetrain: %w", err)
	}
	return n, nil
}

// SetRowsSinceRetrain fija el contador de filas nuevas.
func (s *SQLiteStorage) SetRowsSinceRetrain(ctx context.Context, n int) error {
	if err := s.setCounter(ctx, counterRows, fmt.Sprintf("%d", n)); err != nil {
		return fmt.Errorf("storage.SetRowsSinceRetrain: %w", err)
	}
	return nil
}

// LastRetrainAt devuelve el instante del último retrain, ok=false si nunca.
func (s *SQLiteStorage) LastRetrainAt(ctx context.Context) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE name = ?`, counterLastRetrain,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("storage.LastRetrainAt: %w", err)
	}
	ts, ok := parseTimestamp(raw)
	if !ok {
		return time.Time{}, false, nil
	}
	return ts, true, nil
}

// SetLastRetrainAt registra el instante del último retrain.
func (s *SQLiteStorage) SetLastRetrainAt(ctx context.Context, ts time.Time) error {
	if err := s.setCounter(ctx, counterLastRetrain, ts.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("storage.SetLastRetrainAt: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) setCounter(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value
	`, name, value)
	return err
}

// --- helpers de timestamps ---

// Los DATETIME de SQLite vuelven como texto y el formato depende de cómo
// entraron. parseTimestamp intenta los layouts conocidos; una fila que no
// parsea con ninguno se trata como error de calidad de datos (la descarta
// quien llama, nunca es fatal).
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
